package selector

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasonKoogler/noc-lat/internal/config"
	"github.com/jasonKoogler/noc-lat/internal/modelerr"
	"github.com/jasonKoogler/noc-lat/internal/topology"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name         string
		kind         topology.Kind
		opts         Options
		wantLayout   topology.Layout
		wantMains    int
		wantCheckers int
		wantUplink   float64 // LSL packets out of 48 crossing the uplink
	}{
		{"1M2C", topology.OneMainTwoCheckers, Options{}, topology.Flat, 1, 2, 0},
		{"1M4C", topology.OneMainFourCheckers, Options{}, topology.Flat, 1, 4, 12},
		{"1M12C", topology.OneMainTwelveCheckers, Options{}, topology.Flat, 1, 12, 4},
		{"1M16C", topology.OneMainSixteenCheckers, Options{}, topology.Flat, 1, 16, 3},
		{"2M", topology.TwoMains, Options{}, topology.Flat, 2, 0, 0},
		{"4M", topology.FourMains, Options{}, topology.Flat, 4, 0, 0},
		{"4M ignores explicit mains", topology.FourMains, Options{NumMains: 2}, topology.Flat, 4, 0, 0},
		{"4x4i", topology.MeshInner, Options{NumMains: 3}, topology.Mesh4x4Inner, 3, 0, 0},
		{"4x4o", topology.MeshOuter, Options{NumMains: 2, NumCheckersPerMain: 2},
			topology.Mesh4x4Outer, 2, 2, 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc, err := Select(tt.kind, tt.opts, config.DefaultConfig(), quietLogger())
			require.NoError(t, err)

			assert.Equal(t, tt.kind, tc.Kind)
			assert.Equal(t, tt.wantLayout, tc.Layout)
			assert.Equal(t, tt.wantMains, tc.NumMains)
			assert.Equal(t, tt.wantCheckers, tc.NumCheckersPerMain)
			assert.Equal(t, tt.wantUplink, tc.UplinkLSL(48))
			assert.False(t, tc.NeedsEstimate())
		})
	}
}

func TestSelect_ArgumentErrors(t *testing.T) {
	tests := []struct {
		name string
		kind topology.Kind
		opts Options
	}{
		{"4x4i without mains", topology.MeshInner, Options{}},
		{"4x4i negative mains", topology.MeshInner, Options{NumMains: -1}},
		{"4x4i too many mains", topology.MeshInner, Options{NumMains: 5}},
		{"4x4o without checkers", topology.MeshOuter, Options{NumMains: 1}},
		{"4x4o negative checkers", topology.MeshOuter, Options{NumMains: 1, NumCheckersPerMain: -2}},
		{"Unknown kind", topology.Kind(42), Options{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Select(tt.kind, tt.opts, config.DefaultConfig(), quietLogger())

			var aerr *TopologyArgumentError
			require.True(t, errors.As(err, &aerr), "got %v", err)
			assert.ErrorIs(t, err, modelerr.ErrTopologyArgument)
		})
	}
}

func TestSelect_EstimateColumn(t *testing.T) {
	tests := []struct {
		kind topology.Kind
		opts Options
		want string
	}{
		{topology.OneMainTwoCheckers, Options{}, "X2_slowNoC"},
		{topology.OneMainFourCheckers, Options{}, "A510_slowNoC"},
		{topology.TwoMains, Options{}, "A510_slowNoC"},
		{topology.FourMains, Options{}, "A510_slowNoC"},
		{topology.MeshInner, Options{NumMains: 4}, "4x4i"},
		{topology.MeshOuter, Options{NumMains: 4, NumCheckersPerMain: 3}, "4x4o3c"},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			params := config.DefaultConfig()
			params.UseSlowNoC = true

			tc, err := Select(tt.kind, tt.opts, params, quietLogger())
			require.NoError(t, err)
			assert.True(t, tc.NeedsEstimate())
			assert.Equal(t, tt.want, tc.EstimateColumn)
		})
	}
}

func TestSelect_EstimateNotNeededWhenHashed(t *testing.T) {
	params := config.DefaultConfig()
	params.UseSlowNoC = true
	params.Hashed = true

	tc, err := Select(topology.OneMainTwelveCheckers, Options{}, params, quietLogger())
	require.NoError(t, err)
	assert.False(t, tc.NeedsEstimate())
}

func TestSelect_SlowNoCUnsupported(t *testing.T) {
	params := config.DefaultConfig()
	params.UseSlowNoC = true

	for _, kind := range []topology.Kind{topology.OneMainTwelveCheckers, topology.OneMainSixteenCheckers} {
		_, err := Select(kind, Options{}, params, quietLogger())
		assert.ErrorIs(t, err, modelerr.ErrTopologyArgument, kind.String())
	}
}

func TestSelect_ClonesParams(t *testing.T) {
	params := config.DefaultConfig()

	tc, err := Select(topology.TwoMains, Options{}, params, quietLogger())
	require.NoError(t, err)

	params.NoCWidth = 1
	assert.Equal(t, 256, tc.Params.NoCWidth)
}
