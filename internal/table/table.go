// Package table is the in-memory tabular abstraction the aggregation
// pipeline is built on: a metrics table keyed by run tag, grouping, and a
// small set of named reduction operators.
package table

import (
	"slices"
	"strings"

	"github.com/nvandessel/gridsweep/internal/runspec"
)

// Axis column names, in export order.
const (
	ColumnArrivalRate = "lambda"
	ColumnController  = "controller"
	ColumnSeed        = "seed"
)

// AxisColumns lists the axis columns every row carries.
var AxisColumns = []string{ColumnArrivalRate, ColumnController, ColumnSeed}

// Row is one observed run: its axis values and the numeric metrics read
// from its metrics file.
type Row struct {
	Spec    runspec.RunSpec
	Metrics map[string]float64
}

// Tag returns the run tag identifying the row.
func (r Row) Tag() string {
	return r.Spec.Tag()
}

// Value returns the named metric. The boolean is false when the run did
// not report it.
func (r Row) Value(column string) (float64, bool) {
	v, ok := r.Metrics[column]
	return v, ok
}

// MetricsTable holds one row per run tag. Metric columns are the union of
// the keys of all rows, in first-seen order.
type MetricsTable struct {
	rows    []Row
	index   map[string]int
	columns []string
	known   map[string]bool
}

// NewMetricsTable creates an empty table.
func NewMetricsTable() *MetricsTable {
	return &MetricsTable{
		index: make(map[string]int),
		known: make(map[string]bool),
	}
}

// Put inserts a row for spec, replacing any existing row with the same tag.
// keys gives the metric column order as read from the source; metrics
// missing from keys are appended in sorted order.
func (t *MetricsTable) Put(spec runspec.RunSpec, metrics map[string]float64, keys ...string) {
	values := make(map[string]float64, len(metrics))
	for k, v := range metrics {
		values[k] = v
	}

	order := make([]string, 0, len(values))
	listed := make(map[string]bool, len(keys))
	for _, k := range keys {
		if _, ok := values[k]; ok && !listed[k] {
			order = append(order, k)
			listed[k] = true
		}
	}
	var rest []string
	for k := range values {
		if !listed[k] {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	order = append(order, rest...)

	for _, k := range order {
		if !t.known[k] {
			t.known[k] = true
			t.columns = append(t.columns, k)
		}
	}

	row := Row{Spec: spec, Metrics: values}
	tag := spec.Tag()
	if i, ok := t.index[tag]; ok {
		t.rows[i] = row
		return
	}
	t.index[tag] = len(t.rows)
	t.rows = append(t.rows, row)
}

// Get returns the row for tag.
func (t *MetricsTable) Get(tag string) (Row, bool) {
	i, ok := t.index[tag]
	if !ok {
		return Row{}, false
	}
	return t.rows[i], true
}

// Len returns the number of rows.
func (t *MetricsTable) Len() int {
	return len(t.rows)
}

// Rows returns the rows in insertion order. The slice is a copy.
func (t *MetricsTable) Rows() []Row {
	return slices.Clone(t.rows)
}

// Sorted returns the rows ordered by arrival rate, controller, then seed.
func (t *MetricsTable) Sorted() []Row {
	rows := t.Rows()
	slices.SortFunc(rows, CompareRows)
	return rows
}

// Columns returns the metric column names in first-seen order.
func (t *MetricsTable) Columns() []string {
	return slices.Clone(t.columns)
}

// HasColumn reports whether any row carries the metric.
func (t *MetricsTable) HasColumn(name string) bool {
	return t.known[name]
}

// Values returns the metric's values across rows, skipping rows without it.
func (t *MetricsTable) Values(column string) []float64 {
	return Values(t.rows, column)
}

// Values collects column from rows, skipping rows without it.
func Values(rows []Row, column string) []float64 {
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		if v, ok := r.Metrics[column]; ok {
			out = append(out, v)
		}
	}
	return out
}

// CompareRows orders rows by arrival rate, controller, then seed.
func CompareRows(a, b Row) int {
	switch {
	case a.Spec.ArrivalRate < b.Spec.ArrivalRate:
		return -1
	case a.Spec.ArrivalRate > b.Spec.ArrivalRate:
		return 1
	}
	if c := strings.Compare(a.Spec.Controller, b.Spec.Controller); c != 0 {
		return c
	}
	switch {
	case a.Spec.Seed < b.Spec.Seed:
		return -1
	case a.Spec.Seed > b.Spec.Seed:
		return 1
	}
	return 0
}

// GroupBy partitions rows by key. Keys are returned in first-seen order.
func GroupBy[K comparable](rows []Row, key func(Row) K) ([]K, map[K][]Row) {
	var keys []K
	groups := make(map[K][]Row)
	for _, r := range rows {
		k := key(r)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], r)
	}
	return keys, groups
}
