package topology

import "fmt"

// Class separates traffic without load-store-log pushes from traffic that
// includes them.
type Class int

const (
	Baseline Class = iota
	Checked
)

func (c Class) String() string {
	if c == Checked {
		return "checked"
	}
	return "baseline"
}

// Direction is the way demand traffic flows along a route.
type Direction int

const (
	// Request is core to cache slice.
	Request Direction = iota
	// Response is cache slice to core.
	Response
)

func (d Direction) String() string {
	if d == Response {
		return "response"
	}
	return "request"
}

// RouteKind distinguishes the destinations a core can reach.
type RouteKind int

const (
	// Direct reaches the local slice, or the shared cache on flat layouts.
	Direct RouteKind = iota
	// Adjacent reaches a slice one inter-slice link away.
	Adjacent
	// DiagonalVia reaches the diagonal slice through one adjacent slice.
	DiagonalVia
)

func (k RouteKind) String() string {
	switch k {
	case Direct:
		return "direct"
	case Adjacent:
		return "adjacent"
	case DiagonalVia:
		return "diagonal"
	default:
		return fmt.Sprintf("RouteKind(%d)", int(k))
	}
}

// Route is one end-to-end demand path of a main core. Via names the
// adjacent slice for Adjacent and DiagonalVia routes and is ignored for
// Direct ones.
type Route struct {
	Core      int
	Kind      RouteKind
	Via       int
	Direction Direction
}

func (r Route) String() string {
	var path string
	switch r.Kind {
	case Direct:
		path = "local"
	case Adjacent:
		path = fmt.Sprintf("slice%d", r.Via)
	case DiagonalVia:
		path = fmt.Sprintf("slice%d-via%d", MeshNeighborhood(r.Core).Diagonal, r.Via)
	}

	if r.Direction == Request {
		return fmt.Sprintf("core%d->%s", r.Core, path)
	}
	return fmt.Sprintf("%s->core%d", path, r.Core)
}

// Element is a kind of link or router.
type Element int

const (
	// CoreInject is the link from a main core into its router.
	CoreInject Element = iota
	// CoreEject is the link from the router into a main core.
	CoreEject
	// CoreRouter is a main core's own router on flat and outer layouts.
	CoreRouter
	// CoreUplink is the link from a core router to a slice router.
	CoreUplink
	// CoreDownlink is the link from a slice router to a core router.
	CoreDownlink
	// SliceRouter is the router a cache slice hangs off.
	SliceRouter
	// SliceInject is the link from a cache slice into its router.
	SliceInject
	// SliceEject is the link from a slice router into its cache slice.
	SliceEject
	// SliceLink is the link between two adjacent slice routers.
	SliceLink
)

var elementNames = [...]string{
	CoreInject:   "core-inject",
	CoreEject:    "core-eject",
	CoreRouter:   "core-router",
	CoreUplink:   "core-uplink",
	CoreDownlink: "core-downlink",
	SliceRouter:  "slice-router",
	SliceInject:  "slice-inject",
	SliceEject:   "slice-eject",
	SliceLink:    "slice-link",
}

func (e Element) String() string {
	if e < 0 || int(e) >= len(elementNames) {
		return fmt.Sprintf("Element(%d)", int(e))
	}
	return elementNames[e]
}

// Hop is one traversed link or router. At is the core or slice index the
// element belongs to; To is only meaningful for SliceLink.
type Hop struct {
	Element Element
	At      int
	To      int
}

func (h Hop) String() string {
	if h.Element == SliceLink {
		return fmt.Sprintf("%s[%d->%d]", h.Element, h.At, h.To)
	}
	return fmt.Sprintf("%s[%d]", h.Element, h.At)
}

// WeightedRoute pairs a route with the fraction of a core's demand traffic
// that takes it.
type WeightedRoute struct {
	Route  Route
	Weight float64
}

// Routes lists the request routes of a core on a layout together with
// their weights. Each entry has a matching response route with the same
// weight, obtained with Reverse. The weights of a core sum to 1.
func Routes(layout Layout, core int) []WeightedRoute {
	if !layout.IsMesh() {
		return []WeightedRoute{
			{Route: Route{Core: core, Kind: Direct, Direction: Request}, Weight: 1},
		}
	}

	// Destinations are uniform over the four slices. The diagonal slice is
	// reached through either adjacent slice with equal probability.
	n := MeshNeighborhood(core)
	routes := []WeightedRoute{
		{Route: Route{Core: core, Kind: Direct, Direction: Request}, Weight: 1.0 / 4},
	}
	for _, j := range n.Adjacent {
		routes = append(routes,
			WeightedRoute{
				Route:  Route{Core: core, Kind: Adjacent, Via: j, Direction: Request},
				Weight: 1.0 / 4,
			},
			WeightedRoute{
				Route:  Route{Core: core, Kind: DiagonalVia, Via: j, Direction: Request},
				Weight: 1.0 / 8,
			},
		)
	}
	return routes
}

// Reverse returns the same route in the opposite direction.
func (r Route) Reverse() Route {
	out := r
	if r.Direction == Request {
		out.Direction = Response
	} else {
		out.Direction = Request
	}
	return out
}

// Expand resolves a route into the ordered hops it traverses on a layout.
func Expand(layout Layout, r Route) ([]Hop, error) {
	if r.Core < 0 || r.Core >= MaxNodes {
		return nil, fmt.Errorf("core %d out of range", r.Core)
	}

	if !layout.IsMesh() {
		if r.Kind != Direct {
			return nil, fmt.Errorf("%s layout has no %s routes", layout, r.Kind)
		}
		return expandFlat(r), nil
	}

	slices, err := meshSlicePath(r)
	if err != nil {
		return nil, err
	}

	return expandMesh(layout, r, slices), nil
}

// expandFlat builds the fixed five-hop chain to the shared cache, which
// sits on slice router 0.
func expandFlat(r Route) []Hop {
	if r.Direction == Request {
		return []Hop{
			{Element: CoreInject, At: r.Core},
			{Element: CoreRouter, At: r.Core},
			{Element: CoreUplink, At: r.Core},
			{Element: SliceRouter, At: 0},
			{Element: SliceEject, At: 0},
		}
	}
	return []Hop{
		{Element: SliceInject, At: 0},
		{Element: SliceRouter, At: 0},
		{Element: CoreDownlink, At: r.Core},
		{Element: CoreRouter, At: r.Core},
		{Element: CoreEject, At: r.Core},
	}
}

// meshSlicePath returns the slice routers visited from the core's local
// slice to the destination slice.
func meshSlicePath(r Route) ([]int, error) {
	n := MeshNeighborhood(r.Core)

	switch r.Kind {
	case Direct:
		return []int{n.Local}, nil
	case Adjacent, DiagonalVia:
		if r.Via != n.Adjacent[0] && r.Via != n.Adjacent[1] {
			return nil, fmt.Errorf("slice %d is not adjacent to core %d", r.Via, r.Core)
		}
		if r.Kind == Adjacent {
			return []int{n.Local, r.Via}, nil
		}
		return []int{n.Local, r.Via, n.Diagonal}, nil
	default:
		return nil, fmt.Errorf("unknown route kind %s", r.Kind)
	}
}

func expandMesh(layout Layout, r Route, slices []int) []Hop {
	// Build the request path, then mirror it for responses.
	hops := []Hop{{Element: CoreInject, At: r.Core}}
	if layout == Mesh4x4Outer {
		hops = append(hops,
			Hop{Element: CoreRouter, At: r.Core},
			Hop{Element: CoreUplink, At: r.Core},
		)
	}

	for i, s := range slices {
		if i > 0 {
			hops = append(hops, Hop{Element: SliceLink, At: slices[i-1], To: s})
		}
		hops = append(hops, Hop{Element: SliceRouter, At: s})
	}
	hops = append(hops, Hop{Element: SliceEject, At: slices[len(slices)-1]})

	if r.Direction == Request {
		return hops
	}

	out := make([]Hop, len(hops))
	for i, h := range hops {
		out[len(hops)-1-i] = mirror(h)
	}
	return out
}

func mirror(h Hop) Hop {
	switch h.Element {
	case CoreInject:
		h.Element = CoreEject
	case CoreUplink:
		h.Element = CoreDownlink
	case SliceEject:
		h.Element = SliceInject
	case SliceLink:
		h.At, h.To = h.To, h.At
	}
	return h
}
