// Package stattable reads the comma-separated statistic tables produced by
// the result-gathering scripts.
//
// The first row is "<statistic>,<bench1>,<bench2>,..." and every further row
// is "<config>,<value1>,<value2>,...". Each value cell is a numeric
// expression such as "128*1024" and is evaluated when the table is parsed.
package stattable

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/jasonKoogler/noc-lat/internal/modelerr"
)

// BaselineConfig is the only config row accepted in latency model inputs.
const BaselineConfig = "Baseline"

// MalformedTableError reports a table whose shape is inconsistent.
type MalformedTableError struct {
	Source string
	Line   int
	Reason string
}

func (e *MalformedTableError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: malformed table: %s", e.Source, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: malformed table: %s", e.Source, e.Reason)
}

func (e *MalformedTableError) Unwrap() error { return modelerr.ErrInputShape }

// NumericParseError reports a cell that does not evaluate to a number.
type NumericParseError struct {
	Source    string
	Line      int
	Benchmark string
	Cell      string
	Err       error
}

func (e *NumericParseError) Error() string {
	msg := fmt.Sprintf("%s:%d: value %q for benchmark %s is not numeric",
		e.Source, e.Line, e.Cell, e.Benchmark)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NumericParseError) Unwrap() []error {
	return []error{modelerr.ErrInputShape, e.Err}
}

// UnexpectedConfigError is returned when a latency model input carries any
// config row other than a single Baseline row.
type UnexpectedConfigError struct {
	Source  string
	Configs []string
}

func (e *UnexpectedConfigError) Error() string {
	return fmt.Sprintf("%s: should only use %s results, got %v",
		e.Source, BaselineConfig, e.Configs)
}

func (e *UnexpectedConfigError) Unwrap() error { return modelerr.ErrInputShape }

// MissingBenchmarkError is returned when a lookup names a benchmark or
// config the table does not have.
type MissingBenchmarkError struct {
	Source    string
	Benchmark string
	Config    string
}

func (e *MissingBenchmarkError) Error() string {
	return fmt.Sprintf("%s: no value for benchmark %s, config %s",
		e.Source, e.Benchmark, e.Config)
}

func (e *MissingBenchmarkError) Unwrap() error { return modelerr.ErrInputShape }

// Table is a parsed statistic table. Benchmarks and Configs keep the order
// in which they appear in the file.
type Table struct {
	Source     string
	Stat       string
	Benchmarks []string
	Configs    []string

	values map[string]map[string]float64
}

// Load reads and parses the table stored at path. The file is fully read
// and closed before parsing.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}

	return Parse(path, bytes.NewReader(data))
}

// Parse reads a table from r. source is used in error messages only.
func Parse(source string, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &MalformedTableError{Source: source, Reason: "empty table"}
	}
	if err != nil {
		return nil, readError(source, err)
	}

	if len(header) < 2 {
		return nil, &MalformedTableError{
			Source: source, Line: 1, Reason: "header names no benchmarks",
		}
	}

	t := &Table{
		Source: source,
		Stat:   strings.TrimSpace(header[0]),
		values: make(map[string]map[string]float64, len(header)-1),
	}

	for _, cell := range header[1:] {
		bench := strings.TrimSpace(cell)
		if _, dup := t.values[bench]; dup {
			return nil, &MalformedTableError{
				Source: source, Line: 1,
				Reason: fmt.Sprintf("duplicate benchmark %q", bench),
			}
		}
		t.Benchmarks = append(t.Benchmarks, bench)
		t.values[bench] = make(map[string]float64)
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, readError(source, err)
		}

		line, _ := reader.FieldPos(0)
		if err := t.addRow(line, record); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func readError(source string, err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return &MalformedTableError{Source: source, Line: perr.StartLine, Reason: perr.Err.Error()}
	}
	return &MalformedTableError{Source: source, Reason: err.Error()}
}

func (t *Table) addRow(line int, record []string) error {
	if len(record) != len(t.Benchmarks)+1 {
		return &MalformedTableError{
			Source: t.Source, Line: line,
			Reason: fmt.Sprintf("expected %d columns, got %d",
				len(t.Benchmarks)+1, len(record)),
		}
	}

	config := strings.TrimSpace(record[0])
	if t.hasConfig(config) {
		return &MalformedTableError{
			Source: t.Source, Line: line,
			Reason: fmt.Sprintf("duplicate config %q", config),
		}
	}
	t.Configs = append(t.Configs, config)

	for i, cell := range record[1:] {
		bench := t.Benchmarks[i]

		v, err := Eval(cell)
		if err != nil {
			return &NumericParseError{
				Source: t.Source, Line: line, Benchmark: bench, Cell: cell, Err: err,
			}
		}

		t.values[bench][config] = v
	}

	return nil
}

func (t *Table) hasConfig(config string) bool {
	for _, c := range t.Configs {
		if c == config {
			return true
		}
	}
	return false
}

// Value returns the value for a benchmark under a config.
func (t *Table) Value(benchmark, config string) (float64, error) {
	row, ok := t.values[benchmark]
	if !ok {
		return 0, &MissingBenchmarkError{Source: t.Source, Benchmark: benchmark, Config: config}
	}

	v, ok := row[config]
	if !ok {
		return 0, &MissingBenchmarkError{Source: t.Source, Benchmark: benchmark, Config: config}
	}

	return v, nil
}

// Baseline returns the value for a benchmark under the Baseline config.
func (t *Table) Baseline(benchmark string) (float64, error) {
	return t.Value(benchmark, BaselineConfig)
}

// RequireBaselineOnly checks that the table has exactly one config row and
// that the row is Baseline.
func (t *Table) RequireBaselineOnly() error {
	if len(t.Configs) != 1 || t.Configs[0] != BaselineConfig {
		return &UnexpectedConfigError{
			Source:  t.Source,
			Configs: append([]string(nil), t.Configs...),
		}
	}
	return nil
}

// Eval evaluates a single numeric cell.
func Eval(cell string) (float64, error) {
	src := strings.TrimSpace(cell)
	if src == "" {
		return 0, errors.New("empty cell")
	}

	out, err := expr.Eval(src, nil)
	if err != nil {
		return 0, err
	}

	switch v := out.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("evaluates to %T", out)
	}
}
