// Package selector turns a topology name and the run options into the
// immutable TopologyConfig used by the model, and validates that the input
// tables supplied on the command line match what the topology needs.
package selector

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jasonKoogler/noc-lat/internal/config"
	"github.com/jasonKoogler/noc-lat/internal/modelerr"
	"github.com/jasonKoogler/noc-lat/internal/topology"
)

// TopologyArgumentError reports missing or out-of-range topology
// parameters.
type TopologyArgumentError struct {
	Kind   topology.Kind
	Reason string
}

func (e *TopologyArgumentError) Error() string {
	return fmt.Sprintf("%s %s", e.Kind, e.Reason)
}

func (e *TopologyArgumentError) Unwrap() error { return modelerr.ErrTopologyArgument }

// checkerPlacement says how much of a main core's LSL traffic crosses the
// link between the main core's router and the next router.
type checkerPlacement int

const (
	// checkersOnCoreRouter keeps all LSL traffic on the main core's router.
	checkersOnCoreRouter checkerPlacement = iota
	// oneCheckerPerUplink sends one checker's share across the link.
	oneCheckerPerUplink
)

type preset struct {
	layout             topology.Layout
	numMains           int // 0 when the caller must supply it
	numCheckersPerMain int // 0 when unused or supplied by the caller
	needsCheckers      bool
	placement          checkerPlacement
	slowNoCUnsupported bool
}

var presets = map[topology.Kind]preset{
	topology.OneMainTwoCheckers: {
		layout: topology.Flat, numMains: 1, numCheckersPerMain: 2,
		placement: checkersOnCoreRouter,
	},
	topology.OneMainFourCheckers: {
		layout: topology.Flat, numMains: 1, numCheckersPerMain: 4,
		placement: oneCheckerPerUplink,
	},
	topology.OneMainTwelveCheckers: {
		layout: topology.Flat, numMains: 1, numCheckersPerMain: 12,
		placement: oneCheckerPerUplink, slowNoCUnsupported: true,
	},
	topology.OneMainSixteenCheckers: {
		layout: topology.Flat, numMains: 1, numCheckersPerMain: 16,
		placement: oneCheckerPerUplink, slowNoCUnsupported: true,
	},
	topology.TwoMains: {
		layout: topology.Flat, numMains: 2,
		placement: checkersOnCoreRouter,
	},
	topology.FourMains: {
		layout: topology.Flat, numMains: 4,
		placement: checkersOnCoreRouter,
	},
	topology.MeshInner: {
		layout:    topology.Mesh4x4Inner,
		placement: checkersOnCoreRouter,
	},
	topology.MeshOuter: {
		layout: topology.Mesh4x4Outer, needsCheckers: true,
		placement: oneCheckerPerUplink,
	},
}

// Options are the caller-supplied topology parameters. Zero means "not
// given".
type Options struct {
	NumMains           int
	NumCheckersPerMain int
}

// TopologyConfig is the immutable description of one model run.
type TopologyConfig struct {
	Kind               topology.Kind
	Layout             topology.Layout
	NumMains           int
	NumCheckersPerMain int

	// UplinkCheckers is the number of checkers a main core's LSL packets
	// are split across when one checker's share crosses the core uplink.
	// Zero when no LSL traffic crosses it.
	UplinkCheckers int

	// EstimateColumn names the slow-NoC estimate table column that
	// supplies checked cycle counts. Empty when simulated cycles are used.
	EstimateColumn string

	Params *config.Config
}

// Select resolves a topology kind and options into a TopologyConfig.
// params must already be validated; it is cloned.
func Select(
	kind topology.Kind,
	opts Options,
	params *config.Config,
	logger logrus.FieldLogger,
) (*TopologyConfig, error) {
	p, ok := presets[kind]
	if !ok {
		return nil, &TopologyArgumentError{Kind: kind, Reason: "is not a supported topology"}
	}

	tc := &TopologyConfig{
		Kind:   kind,
		Layout: p.layout,
		Params: params.Clone(),
	}

	var err error
	if tc.NumMains, err = resolveMains(kind, p, opts, logger); err != nil {
		return nil, err
	}
	if tc.NumCheckersPerMain, err = resolveCheckers(kind, p, opts, logger); err != nil {
		return nil, err
	}

	if p.placement == oneCheckerPerUplink {
		tc.UplinkCheckers = tc.NumCheckersPerMain
	}

	if tc.Params.UseSlowNoC && !tc.Params.Hashed {
		if p.slowNoCUnsupported {
			return nil, &TopologyArgumentError{Kind: kind, Reason: "does not support slow NoC yet"}
		}
		if tc.EstimateColumn, err = estimateColumn(tc); err != nil {
			return nil, err
		}
	}

	return tc, nil
}

func resolveMains(
	kind topology.Kind,
	p preset,
	opts Options,
	logger logrus.FieldLogger,
) (int, error) {
	if p.numMains > 0 {
		if opts.NumMains != 0 && opts.NumMains != p.numMains {
			logger.WithFields(logrus.Fields{
				"topology":  kind.String(),
				"requested": opts.NumMains,
				"used":      p.numMains,
			}).Warn("ignoring main core count fixed by topology")
		}
		return p.numMains, nil
	}

	switch {
	case opts.NumMains == 0:
		return 0, &TopologyArgumentError{
			Kind:   kind,
			Reason: "requires specifying the number of main cores",
		}
	case opts.NumMains < 1:
		return 0, &TopologyArgumentError{
			Kind:   kind,
			Reason: fmt.Sprintf("requires at least 1 main core, %d given", opts.NumMains),
		}
	case opts.NumMains > topology.MeshSlices:
		return 0, &TopologyArgumentError{
			Kind: kind,
			Reason: fmt.Sprintf("supports at most %d main cores, %d given",
				topology.MeshSlices, opts.NumMains),
		}
	}

	return opts.NumMains, nil
}

func resolveCheckers(
	kind topology.Kind,
	p preset,
	opts Options,
	logger logrus.FieldLogger,
) (int, error) {
	if p.numCheckersPerMain > 0 {
		if opts.NumCheckersPerMain != 0 && opts.NumCheckersPerMain != p.numCheckersPerMain {
			logger.WithFields(logrus.Fields{
				"topology":  kind.String(),
				"requested": opts.NumCheckersPerMain,
				"used":      p.numCheckersPerMain,
			}).Warn("ignoring checker count fixed by topology")
		}
		return p.numCheckersPerMain, nil
	}

	if !p.needsCheckers {
		return opts.NumCheckersPerMain, nil
	}

	switch {
	case opts.NumCheckersPerMain == 0:
		return 0, &TopologyArgumentError{
			Kind:   kind,
			Reason: "requires specifying the number of checker cores per main core",
		}
	case opts.NumCheckersPerMain < 1:
		return 0, &TopologyArgumentError{
			Kind: kind,
			Reason: fmt.Sprintf("requires at least 1 checker core per main core, %d given",
				opts.NumCheckersPerMain),
		}
	}

	return opts.NumCheckersPerMain, nil
}

func estimateColumn(tc *TopologyConfig) (string, error) {
	col, ok := tc.Params.SlowNoCEstimateColumns[tc.Kind.String()]
	if !ok || col == "" {
		return "", &TopologyArgumentError{
			Kind:   tc.Kind,
			Reason: "has no slow NoC estimate column configured",
		}
	}

	if strings.Contains(col, "%d") {
		col = fmt.Sprintf(col, tc.NumCheckersPerMain)
	}

	return col, nil
}

// ServiceRate is the M/M/1 service rate in packets per core cycle.
func (tc *TopologyConfig) ServiceRate() float64 {
	return tc.Params.ServiceRate()
}

// UplinkLSL is the number of the given LSL packets that cross a core uplink
// in checked mode.
func (tc *TopologyConfig) UplinkLSL(lslPackets float64) float64 {
	if tc.UplinkCheckers == 0 {
		return 0
	}
	return lslPackets / float64(tc.UplinkCheckers)
}

// NeedsEstimate reports whether checked cycle counts come from the slow-NoC
// estimate table.
func (tc *TopologyConfig) NeedsEstimate() bool {
	return tc.EstimateColumn != ""
}
