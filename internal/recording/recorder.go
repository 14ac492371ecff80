// Package recording stores the results of model runs in a SQLite database
// so that runs over many topologies can be compared with plain SQL.
package recording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fatih/structs"
	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"

	"github.com/jasonKoogler/noc-lat/internal/estimator"
	"github.com/jasonKoogler/noc-lat/internal/selector"
)

// Table names.
const (
	RunTable       = "run"
	BenchmarkTable = "benchmark"
	CoreTable      = "core_delay"
	RouteTable     = "route_delay"
	HopTable       = "hop_delay"
	ResourceTable  = "resource"
)

type runEntry struct {
	RunID              string
	Topology           string
	Layout             string
	NumMains           int
	NumCheckersPerMain int
	Hashed             bool
	SlowNoC            bool
	EstimateColumn     string
	ServiceRate        float64
	StartedAt          string
}

type benchmarkEntry struct {
	RunID          string
	Benchmark      string
	Label          string
	BaselineCycles float64
	CheckedCycles  float64
	Delta          int64
}

type coreEntry struct {
	RunID     string
	Benchmark string
	Core      int
	Baseline  float64
	Checked   float64
	Delta     float64
}

type routeEntry struct {
	RunID     string
	Benchmark string
	Core      int
	Route     string
	Class     string
	Weight    float64
	NumHops   int
	Delay     float64
}

type hopEntry struct {
	RunID     string
	Benchmark string
	Route     string
	Class     string
	Position  int
	Hop       string
	Packets   float64
	Delay     float64
}

type resourceEntry struct {
	RunID      string
	CPUPercent float64
	RSSBytes   int64
	WallTimeNS int64
}

type table struct {
	structType reflect.Type
	entries    []any
}

// Recorder is an estimator sink that writes every result into SQLite.
// Entries are buffered and written in one transaction per flush.
type Recorder struct {
	*sql.DB

	runID     string
	filename  string
	startedAt time.Time
	logger    logrus.FieldLogger

	mu     sync.Mutex
	tables map[string]*table
	order  []string
	closed bool
}

// New creates the database <path>.sqlite3 and records the run
// configuration. An empty path names the database after the run ID. The
// database is closed on atexit.Exit if Close was not called.
func New(path string, tc *selector.TopologyConfig, logger logrus.FieldLogger) (*Recorder, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	r := &Recorder{
		runID:     xid.New().String(),
		startedAt: time.Now(),
		logger:    logger,
		tables:    make(map[string]*table),
	}

	if path == "" {
		path = "noclat_" + r.runID
	}
	r.filename = path + ".sqlite3"

	if _, err := os.Stat(r.filename); err == nil {
		return nil, fmt.Errorf("file %s already exists", r.filename)
	}

	db, err := sql.Open("sqlite3", r.filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", r.filename, err)
	}
	r.DB = db

	for _, t := range []struct {
		name  string
		entry any
	}{
		{RunTable, runEntry{}},
		{BenchmarkTable, benchmarkEntry{}},
		{CoreTable, coreEntry{}},
		{RouteTable, routeEntry{}},
		{HopTable, hopEntry{}},
		{ResourceTable, resourceEntry{}},
	} {
		if err := r.createTable(t.name, t.entry); err != nil {
			db.Close()
			return nil, err
		}
	}

	r.insert(RunTable, runEntry{
		RunID:              r.runID,
		Topology:           tc.Kind.String(),
		Layout:             tc.Layout.String(),
		NumMains:           tc.NumMains,
		NumCheckersPerMain: tc.NumCheckersPerMain,
		Hashed:             tc.Params.Hashed,
		SlowNoC:            tc.Params.UseSlowNoC,
		EstimateColumn:     tc.EstimateColumn,
		ServiceRate:        tc.ServiceRate(),
		StartedAt:          r.startedAt.UTC().Format(time.RFC3339),
	})

	logger.WithFields(logrus.Fields{
		"file":   r.filename,
		"run_id": r.runID,
	}).Info("database created for recording")

	atexit.Register(func() {
		if err := r.Close(); err != nil {
			logger.WithError(err).Error("failed to close recording")
		}
	})

	return r, nil
}

// RunID identifies the run in every table.
func (r *Recorder) RunID() string { return r.runID }

// Filename is the database file.
func (r *Recorder) Filename() string { return r.filename }

// RecordBenchmark buffers a benchmark result together with its per-core,
// per-route and per-hop breakdown.
func (r *Recorder) RecordBenchmark(res estimator.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.New("recorder is closed")
	}

	r.insert(BenchmarkTable, benchmarkEntry{
		RunID:          r.runID,
		Benchmark:      res.Benchmark,
		Label:          res.Label,
		BaselineCycles: res.Cycles.Baseline,
		CheckedCycles:  res.Cycles.Checked,
		Delta:          res.Delta,
	})

	for _, cd := range res.Cores {
		r.insert(CoreTable, coreEntry{
			RunID:     r.runID,
			Benchmark: res.Benchmark,
			Core:      cd.Core,
			Baseline:  cd.Baseline,
			Checked:   cd.Checked,
			Delta:     cd.Delta,
		})

		for _, rd := range cd.Routes {
			route := rd.Route.String()
			r.insert(RouteTable, routeEntry{
				RunID:     r.runID,
				Benchmark: res.Benchmark,
				Core:      cd.Core,
				Route:     route,
				Class:     rd.Class.String(),
				Weight:    rd.Weight,
				NumHops:   len(rd.Hops),
				Delay:     rd.Total,
			})

			for i, h := range rd.Hops {
				r.insert(HopTable, hopEntry{
					RunID:     r.runID,
					Benchmark: res.Benchmark,
					Route:     route,
					Class:     rd.Class.String(),
					Position:  i,
					Hop:       h.Hop.String(),
					Packets:   h.Packets,
					Delay:     h.Delay,
				})
			}
		}
	}

	return nil
}

// Flush writes all buffered entries.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.flush()
}

// Close records the resource usage of the process, flushes and closes the
// database. Calling Close more than once is a no-op.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	r.insert(ResourceTable, r.resourceUsage())

	if err := r.flush(); err != nil {
		r.DB.Close()
		return err
	}

	return r.DB.Close()
}

func (r *Recorder) resourceUsage() resourceEntry {
	entry := resourceEntry{
		RunID:      r.runID,
		WallTimeNS: time.Since(r.startedAt).Nanoseconds(),
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		r.logger.WithError(err).Debug("process information unavailable")
		return entry
	}

	if cpu, err := proc.CPUPercent(); err == nil {
		entry.CPUPercent = cpu
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		entry.RSSBytes = int64(mem.RSS)
	}

	return entry
}

func (r *Recorder) createTable(name string, sampleEntry any) error {
	fields := strings.Join(structs.Names(sampleEntry), ", \n\t")

	createTableSQL := `CREATE TABLE ` + name + ` (` + "\n\t" + fields + "\n" + `);`
	if _, err := r.Exec(createTableSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}

	r.tables[name] = &table{structType: reflect.TypeOf(sampleEntry)}
	r.order = append(r.order, name)

	return nil
}

func (r *Recorder) insert(name string, entry any) {
	t := r.tables[name]
	if reflect.TypeOf(entry) != t.structType {
		panic(fmt.Sprintf("entry of type %T does not belong to table %s", entry, name))
	}
	t.entries = append(t.entries, entry)
}

func (r *Recorder) flush() error {
	tx, err := r.Begin()
	if err != nil {
		return err
	}

	for _, name := range r.order {
		t := r.tables[name]
		if len(t.entries) == 0 {
			continue
		}

		stmt, err := tx.Prepare(insertStatement(name, t.entries[0]))
		if err != nil {
			tx.Rollback()
			return err
		}

		for _, entry := range t.entries {
			if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
				stmt.Close()
				tx.Rollback()
				return fmt.Errorf("failed to insert into %s: %w", name, err)
			}
		}

		stmt.Close()
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	for _, t := range r.tables {
		t.entries = nil
	}

	return nil
}

func insertStatement(name string, entry any) string {
	n := structs.Names(entry)
	for i := range n {
		n[i] = "?"
	}

	return "INSERT INTO " + name + " VALUES (" + strings.Join(n, ", ") + ")"
}
