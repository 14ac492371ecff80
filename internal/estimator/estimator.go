// Package estimator runs the latency model over every benchmark of a set of
// input tables and produces one extra-latency figure per benchmark.
package estimator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jasonKoogler/noc-lat/internal/delay"
	"github.com/jasonKoogler/noc-lat/internal/modelerr"
	"github.com/jasonKoogler/noc-lat/internal/selector"
	"github.com/jasonKoogler/noc-lat/internal/stattable"
	"github.com/jasonKoogler/noc-lat/internal/traffic"
)

// Inputs names the tables of one run.
type Inputs struct {
	// Paths are the statistic tables in role order.
	Paths []string
	// EstimatePath is the slow-NoC estimate table. Only read when the
	// topology needs estimated checked cycles.
	EstimatePath string
}

// MissingEstimateError is returned when checked cycles must come from an
// estimate table and none was given.
type MissingEstimateError struct {
	TopologyConfig *selector.TopologyConfig
}

func (e *MissingEstimateError) Error() string {
	return fmt.Sprintf("%s: slow NoC estimate file is required for slow NoC without hashing",
		e.TopologyConfig.Kind)
}

func (e *MissingEstimateError) Unwrap() error { return modelerr.ErrInputShape }

// BenchmarkError attributes a model failure to a benchmark.
type BenchmarkError struct {
	Benchmark string
	Err       error
}

func (e *BenchmarkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Benchmark, e.Err)
}

func (e *BenchmarkError) Unwrap() error { return e.Err }

// Result is the model output for one benchmark.
type Result struct {
	Benchmark string
	// Label is the benchmark name as printed, with a suffix for benchmarks
	// measured over their region of interest.
	Label  string
	Cycles delay.Cycles
	Cores  []delay.CoreDelay
	Delta  int64
}

func (r Result) String() string {
	return fmt.Sprintf("%s: %d", r.Label, r.Delta)
}

// Sink receives every result of a successful run.
type Sink interface {
	RecordBenchmark(r Result) error
}

// Summary describes the last run.
type Summary struct {
	Benchmarks int
	Routes     int
	Duration   time.Duration
}

// Estimator evaluates the model for one topology.
type Estimator struct {
	tc      *selector.TopologyConfig
	logger  logrus.FieldLogger
	sinks   []Sink
	running atomic.Bool

	summary      Summary
	summaryMutex sync.RWMutex
}

// New creates an estimator for a resolved topology.
func New(tc *selector.TopologyConfig, logger logrus.FieldLogger) (*Estimator, error) {
	if tc == nil {
		return nil, fmt.Errorf("nil topology configuration provided")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Estimator{tc: tc, logger: logger}, nil
}

// AddSink registers a sink. Sinks are called in registration order.
func (e *Estimator) AddSink(s Sink) {
	e.sinks = append(e.sinks, s)
}

// dataset is the loaded input of a run.
type dataset struct {
	roles    []selector.Role
	tables   []*stattable.Table
	estimate *stattable.Table
	seconds  bool
}

// Run loads the inputs and evaluates every benchmark listed in the header
// of the cycle table. Results are returned in that order. If any benchmark
// fails, no result is returned and no sink is called.
func (e *Estimator) Run(ctx context.Context, in Inputs) ([]Result, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("estimation is already running")
	}
	defer e.running.Store(false)

	startTime := time.Now()

	ds, err := e.load(in)
	if err != nil {
		return nil, err
	}

	benchmarks := ds.tables[0].Benchmarks
	results := make([]Result, len(benchmarks))
	errs := make([]error, len(benchmarks))

	var wg sync.WaitGroup
	for i, bench := range benchmarks {
		wg.Add(1)
		go func(i int, bench string) {
			defer wg.Done()

			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}

			r, err := e.evaluate(ds, bench)
			if err != nil {
				errs[i] = &BenchmarkError{Benchmark: bench, Err: err}
				return
			}
			results[i] = r
		}(i, bench)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	for _, r := range results {
		for _, s := range e.sinks {
			if err := s.RecordBenchmark(r); err != nil {
				return nil, fmt.Errorf("failed to record %s: %w", r.Benchmark, err)
			}
		}
	}

	e.updateSummary(results, time.Since(startTime))

	return results, nil
}

func (e *Estimator) load(in Inputs) (*dataset, error) {
	roles, err := e.tc.MatchInputs(in.Paths)
	if err != nil {
		return nil, err
	}

	ds := &dataset{
		roles:   roles,
		tables:  make([]*stattable.Table, len(in.Paths)),
		seconds: selector.InSeconds(in.Paths[0]),
	}

	for i, path := range in.Paths {
		t, err := stattable.Load(path)
		if err != nil {
			return nil, err
		}
		if err := t.RequireBaselineOnly(); err != nil {
			return nil, err
		}
		ds.tables[i] = t
	}

	if e.tc.NeedsEstimate() {
		if in.EstimatePath == "" {
			return nil, &MissingEstimateError{TopologyConfig: e.tc}
		}
		if ds.estimate, err = stattable.Load(in.EstimatePath); err != nil {
			return nil, err
		}
	}

	e.logger.WithFields(logrus.Fields{
		"topology":   e.tc.Kind.String(),
		"tables":     len(ds.tables),
		"benchmarks": len(ds.tables[0].Benchmarks),
		"seconds":    ds.seconds,
	}).Debug("inputs loaded")

	return ds, nil
}

// evaluate runs the model for one benchmark.
func (e *Estimator) evaluate(ds *dataset, bench string) (Result, error) {
	params := e.tc.Params

	cycles, err := e.cycles(ds, bench)
	if err != nil {
		return Result{}, err
	}

	stats := make([]traffic.AccessStats, e.tc.NumMains)
	for i, role := range ds.roles {
		if role.Kind == selector.Cycles {
			continue
		}

		v, err := ds.tables[i].Baseline(bench)
		if err != nil {
			return Result{}, err
		}

		s := &stats[role.Main]
		switch role.Kind {
		case selector.L1DAccesses:
			s.L1DAccesses = v
		case selector.LLCAccesses:
			s.LLCAccesses = v
		case selector.L1DReadAccesses:
			s.L1DReadAccesses = v
		case selector.L1DSwapAccesses:
			s.L1DSwapAccesses = v
		}
	}

	cores := make([]traffic.Core, 0, len(stats))
	for i, s := range stats {
		corrected, err := s.Corrected(params.Hashed, bench, i)
		if err != nil {
			return Result{}, err
		}
		cores = append(cores, traffic.NewCore(params, corrected))
	}

	loads, err := traffic.Build(e.tc, cores)
	if err != nil {
		return Result{}, err
	}

	model, err := delay.New(e.tc, loads, cycles)
	if err != nil {
		return Result{}, err
	}

	coreDelays, err := model.Cores(e.tc.NumMains)
	if err != nil {
		return Result{}, err
	}

	deltas := make([]float64, len(coreDelays))
	for i, cd := range coreDelays {
		deltas[i] = cd.Delta

		e.logger.WithFields(logrus.Fields{
			"benchmark": bench,
			"core":      cd.Core,
			"baseline":  cd.Baseline,
			"checked":   cd.Checked,
			"delta":     cd.Delta,
		}).Debug("core delay")
	}

	delta, err := delay.Combine(deltas)
	if err != nil {
		return Result{}, err
	}

	label := bench
	if params.IsROI(bench) {
		label = bench + "_roi"
	}

	return Result{
		Benchmark: bench,
		Label:     label,
		Cycles:    cycles,
		Cores:     coreDelays,
		Delta:     delta,
	}, nil
}

func (e *Estimator) cycles(ds *dataset, bench string) (delay.Cycles, error) {
	base, err := ds.tables[0].Baseline(bench)
	if err != nil {
		return delay.Cycles{}, err
	}
	if ds.seconds {
		base *= float64(e.tc.Params.CoreClockRate)
	}

	c := delay.Cycles{Baseline: base, Checked: base}
	if ds.estimate != nil {
		if c.Checked, err = ds.estimate.Value(bench, e.tc.EstimateColumn); err != nil {
			return delay.Cycles{}, err
		}
	}

	return c, nil
}

func (e *Estimator) updateSummary(results []Result, d time.Duration) {
	e.summaryMutex.Lock()
	defer e.summaryMutex.Unlock()

	e.summary = Summary{Benchmarks: len(results), Duration: d}
	for _, r := range results {
		for _, cd := range r.Cores {
			e.summary.Routes += len(cd.Routes)
		}
	}
}

// GetSummary returns a copy of the last run's summary.
func (e *Estimator) GetSummary() Summary {
	e.summaryMutex.RLock()
	defer e.summaryMutex.RUnlock()

	return e.summary
}
