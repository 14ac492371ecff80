// Package topology describes the interconnect layouts the latency model
// supports and expands symbolic routes into the ordered links and routers a
// packet traverses. It carries no traffic data.
package topology

import "fmt"

// Kind identifies one of the supported system configurations.
type Kind int

const (
	OneMainTwoCheckers Kind = iota
	OneMainFourCheckers
	OneMainTwelveCheckers
	OneMainSixteenCheckers
	TwoMains
	FourMains
	MeshInner
	MeshOuter
)

var kindNames = [...]string{
	OneMainTwoCheckers:     "1M2C",
	OneMainFourCheckers:    "1M4C",
	OneMainTwelveCheckers:  "1M12C",
	OneMainSixteenCheckers: "1M16C",
	TwoMains:               "2M",
	FourMains:              "4M",
	MeshInner:              "4x4i",
	MeshOuter:              "4x4o",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Kinds returns every supported kind in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, len(kindNames))
	for i := range kindNames {
		kinds[i] = Kind(i)
	}
	return kinds
}

// ParseKind maps a topology name such as "4x4o" to its Kind.
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown topology %q, expected one of %v", name, kindNames)
}

// Layout is the physical arrangement of routers and cache slices.
type Layout int

const (
	// Flat places every main core on its own router, chained to a single
	// router that holds the shared last-level cache.
	Flat Layout = iota

	// Mesh4x4Inner attaches each main core directly to the router of its
	// local cache slice.
	Mesh4x4Inner

	// Mesh4x4Outer puts each main core on its own router, one link away
	// from the router of its local cache slice.
	Mesh4x4Outer
)

func (l Layout) String() string {
	switch l {
	case Flat:
		return "flat"
	case Mesh4x4Inner:
		return "4x4-inner"
	case Mesh4x4Outer:
		return "4x4-outer"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// IsMesh reports whether the layout has four distributed cache slices.
func (l Layout) IsMesh() bool {
	return l == Mesh4x4Inner || l == Mesh4x4Outer
}

// NumSlices is the number of last-level cache slices in the layout.
func (l Layout) NumSlices() int {
	if l.IsMesh() {
		return MeshSlices
	}
	return 1
}

// MaxNodes bounds every core and slice index in all layouts.
const MaxNodes = 4

// MeshSlices is the number of cache slices on the 4x4 mesh.
const MeshSlices = 4

// Neighborhood lists the slices around one mesh node. Slices are named
// after the core they sit next to.
type Neighborhood struct {
	Local    int
	Adjacent [2]int
	Diagonal int
}

// meshNeighborhoods is the fixed slice arrangement of the 4x4 mesh:
//
//	0 - 1
//	|   |
//	2 - 3
var meshNeighborhoods = [MeshSlices]Neighborhood{
	{Local: 0, Adjacent: [2]int{1, 2}, Diagonal: 3},
	{Local: 1, Adjacent: [2]int{0, 3}, Diagonal: 2},
	{Local: 2, Adjacent: [2]int{0, 3}, Diagonal: 1},
	{Local: 3, Adjacent: [2]int{1, 2}, Diagonal: 0},
}

// MeshNeighborhood returns the neighborhood of slice (or core) i.
func MeshNeighborhood(i int) Neighborhood {
	return meshNeighborhoods[i]
}
