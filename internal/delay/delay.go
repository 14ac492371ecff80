// Package delay applies the M/M/1 queueing model to the packet loads of an
// interconnect and derives the extra round-trip latency that load-store-log
// traffic adds to every main core.
package delay

import (
	"fmt"
	"math"

	"github.com/jasonKoogler/noc-lat/internal/modelerr"
	"github.com/jasonKoogler/noc-lat/internal/selector"
	"github.com/jasonKoogler/noc-lat/internal/topology"
	"github.com/jasonKoogler/noc-lat/internal/traffic"
)

// SaturationError reports a link or router whose arrival rate reaches its
// service rate, where the queueing model has no steady state.
type SaturationError struct {
	Route       topology.Route
	Class       topology.Class
	Hop         topology.Hop
	Packets     float64
	Cycles      float64
	Rate        float64
	ServiceRate float64
}

func (e *SaturationError) Error() string {
	if e.Packets == 0 && e.Cycles == 0 {
		return fmt.Sprintf("arrival rate %g packets/cycle reaches service rate %g",
			e.Rate, e.ServiceRate)
	}
	return fmt.Sprintf("%s %s: %s has too many packets (%g) for the NoC to process in time "+
		"(%g main core cycles with %g service rate)",
		e.Class, e.Route, e.Hop, e.Packets, e.Cycles, e.ServiceRate)
}

func (e *SaturationError) Unwrap() error { return modelerr.ErrNumericConsistency }

// CycleCountError reports a non-positive cycle count.
type CycleCountError struct {
	Class  topology.Class
	Cycles float64
}

func (e *CycleCountError) Error() string {
	return fmt.Sprintf("%s cycle count must be positive, got %g", e.Class, e.Cycles)
}

func (e *CycleCountError) Unwrap() error { return modelerr.ErrNumericConsistency }

// Wait is the mean M/M/1 sojourn time, in core cycles, of a server with the
// given service and arrival rates.
func Wait(serviceRate, rate float64) (float64, error) {
	if !(rate < serviceRate) {
		return 0, &SaturationError{Rate: rate, ServiceRate: serviceRate}
	}
	return 1 / (serviceRate - rate), nil
}

// Cycles are the run lengths the arrival rates are measured over.
type Cycles struct {
	Baseline float64
	Checked  float64
}

// Of returns the cycle count of a traffic class.
func (c Cycles) Of(class topology.Class) float64 {
	if class == topology.Checked {
		return c.Checked
	}
	return c.Baseline
}

// HopDelay is the queueing delay of one traversed element.
type HopDelay struct {
	Hop     topology.Hop
	Packets float64
	Delay   float64
}

// RouteDelay is the end-to-end delay of one route for one traffic class.
type RouteDelay struct {
	Route  topology.Route
	Class  topology.Class
	Weight float64
	Hops   []HopDelay
	Total  float64
}

// CoreDelay is the weighted round-trip delay of a main core.
type CoreDelay struct {
	Core     int
	Baseline float64
	Checked  float64
	Delta    float64
	Routes   []RouteDelay
}

// Model evaluates delays for one benchmark.
type Model struct {
	layout      topology.Layout
	serviceRate float64
	loads       *traffic.Loads
	cycles      Cycles
}

// New creates a model over precomputed loads.
func New(tc *selector.TopologyConfig, loads *traffic.Loads, cycles Cycles) (*Model, error) {
	for _, class := range []topology.Class{topology.Baseline, topology.Checked} {
		if c := cycles.Of(class); !(c > 0) || math.IsInf(c, 0) {
			return nil, &CycleCountError{Class: class, Cycles: c}
		}
	}

	return &Model{
		layout:      tc.Layout,
		serviceRate: tc.ServiceRate(),
		loads:       loads,
		cycles:      cycles,
	}, nil
}

// Route returns the delay of a route for a traffic class.
func (m *Model) Route(r topology.Route, class topology.Class) (RouteDelay, error) {
	hops, err := topology.Expand(m.layout, r)
	if err != nil {
		return RouteDelay{}, err
	}

	cycles := m.cycles.Of(class)
	rd := RouteDelay{Route: r, Class: class, Hops: make([]HopDelay, 0, len(hops))}
	waits := make([]float64, 0, len(hops))

	for _, h := range hops {
		pkts, err := m.loads.Packets(h, class)
		if err != nil {
			return RouteDelay{}, err
		}

		w, err := Wait(m.serviceRate, pkts/cycles)
		if err != nil {
			return RouteDelay{}, &SaturationError{
				Route:       r,
				Class:       class,
				Hop:         h,
				Packets:     pkts,
				Cycles:      cycles,
				Rate:        pkts / cycles,
				ServiceRate: m.serviceRate,
			}
		}

		rd.Hops = append(rd.Hops, HopDelay{Hop: h, Packets: pkts, Delay: w})
		waits = append(waits, w)
	}

	rd.Total = exactSum(waits)
	return rd, nil
}

// Core returns the weighted round-trip delay of a main core for both
// traffic classes and their difference.
func (m *Model) Core(core int) (CoreDelay, error) {
	cd := CoreDelay{Core: core}

	for _, class := range []topology.Class{topology.Baseline, topology.Checked} {
		var total float64

		for _, wr := range topology.Routes(m.layout, core) {
			req, err := m.Route(wr.Route, class)
			if err != nil {
				return CoreDelay{}, err
			}
			resp, err := m.Route(wr.Route.Reverse(), class)
			if err != nil {
				return CoreDelay{}, err
			}

			req.Weight, resp.Weight = wr.Weight, wr.Weight
			cd.Routes = append(cd.Routes, req, resp)
			total += (req.Total + resp.Total) * wr.Weight
		}

		if class == topology.Checked {
			cd.Checked = total
		} else {
			cd.Baseline = total
		}
	}

	cd.Delta = cd.Checked - cd.Baseline
	return cd, nil
}

// Cores evaluates main cores 0 through n-1.
func (m *Model) Cores(n int) ([]CoreDelay, error) {
	out := make([]CoreDelay, 0, n)
	for i := 0; i < n; i++ {
		cd, err := m.Core(i)
		if err != nil {
			return nil, err
		}
		out = append(out, cd)
	}
	return out, nil
}
