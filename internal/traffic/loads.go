package traffic

import (
	"fmt"

	"github.com/jasonKoogler/noc-lat/internal/selector"
	"github.com/jasonKoogler/noc-lat/internal/topology"
)

// Pair holds the packet count of an element for both traffic classes.
type Pair struct {
	Baseline float64
	Checked  float64
}

// Of returns the count for a traffic class.
func (p Pair) Of(class topology.Class) float64 {
	if class == topology.Checked {
		return p.Checked
	}
	return p.Baseline
}

func same(v float64) Pair {
	return Pair{Baseline: v, Checked: v}
}

// Loads is the number of packets crossing every link and router during a
// run, indexed by core or slice id. Elements a layout does not have stay
// zero.
type Loads struct {
	CoreInject   [topology.MaxNodes]Pair
	CoreEject    [topology.MaxNodes]Pair
	CoreRouter   [topology.MaxNodes]Pair
	CoreUplink   [topology.MaxNodes]Pair
	CoreDownlink [topology.MaxNodes]Pair

	SliceRouter [topology.MaxNodes]Pair
	SliceInject [topology.MaxNodes]Pair
	SliceEject  [topology.MaxNodes]Pair
	SliceLink   [topology.MaxNodes][topology.MaxNodes]Pair
}

// Build distributes the demand of every main core over the elements of the
// configured layout. cores is indexed by main core id.
func Build(tc *selector.TopologyConfig, cores []Core) (*Loads, error) {
	if len(cores) != tc.NumMains {
		return nil, fmt.Errorf("%s expects %d main cores, got %d",
			tc.Kind, tc.NumMains, len(cores))
	}
	if len(cores) > topology.MaxNodes {
		return nil, fmt.Errorf("at most %d main cores supported, got %d",
			topology.MaxNodes, len(cores))
	}

	l := &Loads{}
	for i, c := range cores {
		// Responses carry no log entries, so both classes see the same
		// downstream traffic.
		l.CoreInject[i] = Pair{Baseline: c.Baseline(), Checked: c.Checked()}
		l.CoreEject[i] = same(c.Responses)
		l.CoreUplink[i] = Pair{
			Baseline: c.Requests,
			Checked:  c.Requests + tc.UplinkLSL(c.LSLPackets),
		}
		l.CoreDownlink[i] = same(c.Responses)
		l.CoreRouter[i] = Pair{
			Baseline: c.Baseline() + c.Responses,
			Checked:  c.Checked() + c.Responses,
		}
	}

	if tc.Layout.IsMesh() {
		l.buildMesh(tc.Layout, cores)
	} else {
		l.buildFlat(cores)
	}

	return l, nil
}

// buildFlat loads the single shared-cache router, which collects the
// uplinks of every main core and the responses to all of them.
func (l *Loads) buildFlat(cores []Core) {
	var requests, responses, uplinkBase, uplinkChecked float64
	for i, c := range cores {
		requests += c.Requests
		responses += c.Responses
		uplinkBase += l.CoreUplink[i].Baseline
		uplinkChecked += l.CoreUplink[i].Checked
	}

	l.SliceEject[0] = same(requests)
	l.SliceInject[0] = same(responses)
	l.SliceRouter[0] = Pair{
		Baseline: uplinkBase + responses,
		Checked:  uplinkChecked + responses,
	}
}

// buildMesh spreads demand uniformly over the four slices. A quarter of a
// core's requests go to each slice; the diagonal slice is reached through
// either adjacent slice, an eighth each way.
func (l *Loads) buildMesh(layout topology.Layout, cores []Core) {
	isMain := func(i int) bool { return i < len(cores) }

	var requests, responses float64
	for _, c := range cores {
		requests += c.Requests
		responses += c.Responses
	}

	for x := 0; x < topology.MeshSlices; x++ {
		l.SliceInject[x] = same(responses / 4)
		l.SliceEject[x] = same(requests / 4)
	}

	for x := 0; x < topology.MeshSlices; x++ {
		nx := topology.MeshNeighborhood(x)
		for _, y := range nx.Adjacent {
			var v float64

			// Requests from core x to slice y and on to y's neighbor,
			// plus requests from the core diagonal to y passing x.
			if isMain(x) {
				v += cores[x].Requests * (1.0/4 + 1.0/8)
			}
			if d := topology.MeshNeighborhood(y).Diagonal; isMain(d) {
				v += cores[d].Requests / 8
			}

			// Responses to core y from slice x and from the slice diagonal
			// to y, plus responses to the core diagonal to x passing y.
			if isMain(y) {
				v += cores[y].Responses * (1.0/4 + 1.0/8)
			}
			if d := nx.Diagonal; isMain(d) {
				v += cores[d].Responses / 8
			}

			l.SliceLink[x][y] = same(v)
		}
	}

	for i := 0; i < topology.MeshSlices; i++ {
		var incoming float64
		for _, j := range topology.MeshNeighborhood(i).Adjacent {
			incoming += l.SliceLink[j][i].Baseline
		}

		through := l.SliceInject[i].Baseline + incoming
		l.SliceRouter[i] = same(through)

		if !isMain(i) {
			continue
		}

		// The main core's own traffic enters the slice router either
		// directly or over the core uplink.
		entry := l.CoreInject[i]
		if layout == topology.Mesh4x4Outer {
			entry = l.CoreUplink[i]
		}
		l.SliceRouter[i].Baseline += entry.Baseline
		l.SliceRouter[i].Checked += entry.Checked
	}
}

// Packets returns the packet count of a hop for a traffic class.
func (l *Loads) Packets(h topology.Hop, class topology.Class) (float64, error) {
	if h.At < 0 || h.At >= topology.MaxNodes || h.To < 0 || h.To >= topology.MaxNodes {
		return 0, fmt.Errorf("hop %s out of range", h)
	}

	var p Pair
	switch h.Element {
	case topology.CoreInject:
		p = l.CoreInject[h.At]
	case topology.CoreEject:
		p = l.CoreEject[h.At]
	case topology.CoreRouter:
		p = l.CoreRouter[h.At]
	case topology.CoreUplink:
		p = l.CoreUplink[h.At]
	case topology.CoreDownlink:
		p = l.CoreDownlink[h.At]
	case topology.SliceRouter:
		p = l.SliceRouter[h.At]
	case topology.SliceInject:
		p = l.SliceInject[h.At]
	case topology.SliceEject:
		p = l.SliceEject[h.At]
	case topology.SliceLink:
		p = l.SliceLink[h.At][h.To]
	default:
		return 0, fmt.Errorf("unknown element %s", h.Element)
	}

	return p.Of(class), nil
}
