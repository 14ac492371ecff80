// Package traffic converts simulated access counts into packet counts on
// every link and router of the interconnect, for baseline traffic and for
// traffic carrying load-store-log pushes.
package traffic

import (
	"fmt"

	"github.com/jasonKoogler/noc-lat/internal/config"
	"github.com/jasonKoogler/noc-lat/internal/modelerr"
)

// AccessStats are the simulated counts of one main core for one benchmark.
// Read and swap counts are only meaningful in hashed mode.
type AccessStats struct {
	L1DAccesses     float64
	LLCAccesses     float64
	L1DReadAccesses float64
	L1DSwapAccesses float64
}

// AccessCountError reports access counts that contradict each other.
type AccessCountError struct {
	Benchmark string
	Main      int
	Reason    string
}

func (e *AccessCountError) Error() string {
	return fmt.Sprintf("%s: main core %d: %s", e.Benchmark, e.Main, e.Reason)
}

func (e *AccessCountError) Unwrap() error { return modelerr.ErrNumericConsistency }

// Corrected returns the stats with the hashed-mode correction applied.
// Under hashing only loads and swaps carry per-access data, so the L1D
// count becomes read + swap. The uncorrected count must cover both.
func (a AccessStats) Corrected(hashed bool, benchmark string, main int) (AccessStats, error) {
	if a.L1DAccesses < 0 || a.LLCAccesses < 0 {
		return a, &AccessCountError{
			Benchmark: benchmark, Main: main, Reason: "negative access count",
		}
	}

	if !hashed {
		return a, nil
	}

	if a.L1DReadAccesses < 0 || a.L1DSwapAccesses < 0 {
		return a, &AccessCountError{
			Benchmark: benchmark, Main: main, Reason: "negative read or swap count",
		}
	}

	if a.L1DAccesses-a.L1DReadAccesses-a.L1DSwapAccesses < 0 {
		return a, &AccessCountError{
			Benchmark: benchmark, Main: main, Reason: "L1DAcc size smaller than read+swap size",
		}
	}

	a.L1DAccesses = a.L1DReadAccesses + a.L1DSwapAccesses
	return a, nil
}

// Core is the packet demand of one main core.
type Core struct {
	// Requests is the number of LLC request packets.
	Requests float64
	// Responses is the number of LLC response packets.
	Responses float64
	// LSLPackets is the number of packets carrying load-store-log pushes.
	LSLPackets float64
}

// NewCore derives the packet demand of a main core from corrected stats.
func NewCore(params *config.Config, a AccessStats) Core {
	return Core{
		Requests:   a.LLCAccesses,
		Responses:  a.LLCAccesses * params.ResponseSize(),
		LSLPackets: LSLPackets(params, a.L1DAccesses),
	}
}

// LSLPackets is the number of NoC packets needed to push the log entries of
// l1dAccesses accesses.
func LSLPackets(params *config.Config, l1dAccesses float64) float64 {
	return (l1dAccesses / params.EntriesPerMessage()) * params.MessageSize()
}

// Baseline is the traffic the core injects without checking.
func (c Core) Baseline() float64 {
	return c.Requests
}

// Checked is the traffic the core injects with every access logged.
func (c Core) Checked() float64 {
	return c.Requests + c.LSLPackets
}
