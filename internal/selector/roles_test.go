package selector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasonKoogler/noc-lat/internal/config"
	"github.com/jasonKoogler/noc-lat/internal/modelerr"
	"github.com/jasonKoogler/noc-lat/internal/topology"
)

func mustSelect(t *testing.T, kind topology.Kind, opts Options, hashed bool) *TopologyConfig {
	t.Helper()

	params := config.DefaultConfig()
	params.Hashed = hashed

	tc, err := Select(kind, opts, params, quietLogger())
	require.NoError(t, err)
	return tc
}

func TestRolesCount(t *testing.T) {
	tests := []struct {
		name   string
		kind   topology.Kind
		opts   Options
		hashed bool
		want   int
	}{
		{"1 main", topology.OneMainFourCheckers, Options{}, false, 3},
		{"1 main hashed", topology.OneMainFourCheckers, Options{}, true, 5},
		{"2 mains", topology.TwoMains, Options{}, false, 5},
		{"4 mains", topology.FourMains, Options{}, false, 9},
		{"4 mains hashed", topology.FourMains, Options{}, true, 17},
		{"3 mains on mesh", topology.MeshInner, Options{NumMains: 3}, false, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := mustSelect(t, tt.kind, tt.opts, tt.hashed)
			assert.Len(t, tc.Roles(), tt.want)
		})
	}
}

func TestRolesOrder(t *testing.T) {
	tc := mustSelect(t, topology.TwoMains, Options{}, true)

	var got []string
	for _, r := range tc.Roles() {
		got = append(got, r.Substrings()[0])
	}

	assert.Equal(t, []string{
		"numCycles",
		"L1DAcc_m0", "LLCAcc_m0", "L1DReadAcc_m0", "L1DSwapAcc_m0",
		"L1DAcc_m1", "LLCAcc_m1", "L1DReadAcc_m1", "L1DSwapAcc_m1",
	}, got)
}

func TestMatchInputs(t *testing.T) {
	tc := mustSelect(t, topology.OneMainTwoCheckers, Options{}, true)

	roles, err := tc.MatchInputs([]string{
		"results/simSeconds.csv",
		"results/L1DAcc.csv",
		"results/LLCAcc.csv",
		"results/L1DReadAcc.csv",
		"results/L1DSwapAcc.csv",
	})
	require.NoError(t, err)
	assert.Len(t, roles, 5)
}

func TestMatchInputs_CountMismatch(t *testing.T) {
	tc := mustSelect(t, topology.FourMains, Options{}, false)

	_, err := tc.MatchInputs([]string{"numCycles.csv", "L1DAcc_m0.csv", "LLCAcc_m0.csv"})

	var cerr *InputCountMismatchError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, 9, cerr.Want)
	assert.Equal(t, 3, cerr.Got)
	assert.ErrorIs(t, err, modelerr.ErrInputShape)
	assert.Equal(t, "4M with 4 main core(s) requires 9 input files, 3 given", err.Error())
}

func TestMatchInputs_RoleMismatch(t *testing.T) {
	tests := []struct {
		name     string
		paths    []string
		position int
	}{
		{
			name:     "Cycles missing",
			paths:    []string{"L1DAcc_m0.csv", "L1DAcc_m0.csv", "LLCAcc_m0.csv", "L1DAcc_m1.csv", "LLCAcc_m1.csv"},
			position: 1,
		},
		{
			name:     "Swapped access tables",
			paths:    []string{"numCycles.csv", "LLCAcc_m0.csv", "L1DAcc_m0.csv", "L1DAcc_m1.csv", "LLCAcc_m1.csv"},
			position: 2,
		},
		{
			name:     "Wrong core index",
			paths:    []string{"numCycles.csv", "L1DAcc_m0.csv", "LLCAcc_m0.csv", "L1DAcc_m0.csv", "LLCAcc_m1.csv"},
			position: 4,
		},
		{
			name:     "Marker only in directory",
			paths:    []string{"numCycles/x.csv", "L1DAcc_m0.csv", "LLCAcc_m0.csv", "L1DAcc_m1.csv", "LLCAcc_m1.csv"},
			position: 1,
		},
	}

	tc := mustSelect(t, topology.TwoMains, Options{}, false)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tc.MatchInputs(tt.paths)

			var rerr *RoleMismatchError
			require.True(t, errors.As(err, &rerr), "got %v", err)
			assert.Equal(t, tt.position, rerr.Position)
			assert.Equal(t, tt.paths[tt.position-1], rerr.Path)
			assert.ErrorIs(t, err, modelerr.ErrRoleMismatch)
		})
	}
}

func TestInSeconds(t *testing.T) {
	assert.True(t, InSeconds("out/simSeconds.csv"))
	assert.False(t, InSeconds("out/numCycles.csv"))
}
