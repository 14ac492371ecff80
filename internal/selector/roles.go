package selector

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jasonKoogler/noc-lat/internal/modelerr"
)

// RoleKind is the statistic an input table must carry.
type RoleKind int

const (
	Cycles RoleKind = iota
	L1DAccesses
	LLCAccesses
	L1DReadAccesses
	L1DSwapAccesses
)

// Stat names searched for in input file names. The first input may carry
// simulated seconds instead of cycles.
const (
	CyclesStat     = "numCycles"
	SimSecondsStat = "simSeconds"
)

var roleStats = map[RoleKind]string{
	L1DAccesses:     "L1DAcc",
	LLCAccesses:     "LLCAcc",
	L1DReadAccesses: "L1DReadAcc",
	L1DSwapAccesses: "L1DSwapAcc",
}

var roleDescriptions = map[RoleKind]string{
	Cycles:          "number of cycles or simulated seconds",
	L1DAccesses:     "number of L1 data cache accesses",
	LLCAccesses:     "number of LLC accesses",
	L1DReadAccesses: "number of L1D read accesses",
	L1DSwapAccesses: "number of L1D swap accesses",
}

// Role is one expected input table. Main is -1 for the shared cycle count.
type Role struct {
	Kind RoleKind
	Main int

	// Suffixed is set when the file name must carry the main core index,
	// which is the case whenever there is more than one main core.
	Suffixed bool
}

// Substrings returns the accepted markers for the role; a file matches if
// its name contains any of them.
func (r Role) Substrings() []string {
	if r.Kind == Cycles {
		return []string{CyclesStat, SimSecondsStat}
	}

	stat := roleStats[r.Kind]
	if r.Suffixed {
		stat = fmt.Sprintf("%s_m%d", stat, r.Main)
	}
	return []string{stat}
}

func (r Role) String() string {
	desc := roleDescriptions[r.Kind]
	if r.Main >= 0 && r.Suffixed {
		desc = fmt.Sprintf("%s on main core %d", desc, r.Main)
	}
	return desc
}

// AccessRolesPerMain is the number of per-core inputs for the encoding.
func AccessRolesPerMain(hashed bool) int {
	if hashed {
		return 4
	}
	return 2
}

// Roles returns the ordered input roles the configuration expects: the
// cycle count, then for every main core its L1D and LLC access counts,
// followed by the L1D read and swap counts in hashed mode.
func (tc *TopologyConfig) Roles() []Role {
	hashed := tc.Params.Hashed
	suffixed := tc.NumMains > 1

	roles := []Role{{Kind: Cycles, Main: -1}}
	for m := 0; m < tc.NumMains; m++ {
		roles = append(roles,
			Role{Kind: L1DAccesses, Main: m, Suffixed: suffixed},
			Role{Kind: LLCAccesses, Main: m, Suffixed: suffixed},
		)
		if hashed {
			roles = append(roles,
				Role{Kind: L1DReadAccesses, Main: m, Suffixed: suffixed},
				Role{Kind: L1DSwapAccesses, Main: m, Suffixed: suffixed},
			)
		}
	}
	return roles
}

// InputCountMismatchError reports the wrong number of input tables.
type InputCountMismatchError struct {
	TopologyConfig *TopologyConfig
	Want, Got      int
}

func (e *InputCountMismatchError) Error() string {
	return fmt.Sprintf("%s with %d main core(s) requires %d input files, %d given",
		e.TopologyConfig.Kind, e.TopologyConfig.NumMains, e.Want, e.Got)
}

func (e *InputCountMismatchError) Unwrap() error { return modelerr.ErrInputShape }

// RoleMismatchError reports an input file whose name does not carry the
// statistic expected at its position.
type RoleMismatchError struct {
	Position int // 1-based
	Role     Role
	Path     string
}

func (e *RoleMismatchError) Error() string {
	return fmt.Sprintf("input file %d should be %s (name containing %s), %s given",
		e.Position, e.Role, strings.Join(e.Role.Substrings(), " or "), e.Path)
}

func (e *RoleMismatchError) Unwrap() error { return modelerr.ErrRoleMismatch }

// MatchInputs checks the count and order of the input paths against the
// expected roles. Only the base name of each path is matched, so
// directories named after a statistic do not satisfy a role.
func (tc *TopologyConfig) MatchInputs(paths []string) ([]Role, error) {
	roles := tc.Roles()
	if len(paths) != len(roles) {
		return nil, &InputCountMismatchError{
			TopologyConfig: tc, Want: len(roles), Got: len(paths),
		}
	}

	for i, role := range roles {
		if !matches(filepath.Base(paths[i]), role) {
			return nil, &RoleMismatchError{Position: i + 1, Role: role, Path: paths[i]}
		}
	}

	return roles, nil
}

func matches(name string, role Role) bool {
	for _, s := range role.Substrings() {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

// InSeconds reports whether the cycle input holds simulated seconds.
func InSeconds(path string) bool {
	return strings.Contains(filepath.Base(path), SimSecondsStat)
}
