// Package summary reduces a metrics table to cross-seed statistics per
// (arrival rate, controller) combination.
package summary

import (
	"cmp"
	"slices"

	"github.com/nvandessel/gridsweep/internal/runspec"
	"github.com/nvandessel/gridsweep/internal/table"
)

// Statistic names one summary column: a reduction over a source metric.
type Statistic struct {
	Name   string
	Metric string
	Op     table.Reduction
}

// Statistics are the summary columns in output order.
var Statistics = []Statistic{
	{Name: "mean_tt_mean", Metric: "mean_travel_time_s", Op: table.Mean},
	{Name: "mean_tt_std", Metric: "mean_travel_time_s", Op: table.StdDev},
	{Name: "p95_tt_mean", Metric: "p95_travel_time_s", Op: table.Mean},
	{Name: "throughput_mean", Metric: "throughput_veh_per_s", Op: table.Mean},
	{Name: "avg_queue_mean", Metric: "avg_queue_veh", Op: table.Mean},
	{Name: "max_queue_mean", Metric: "max_queue_veh", Op: table.Mean},
	{Name: "blocked_entries_mean", Metric: "blocked_entries", Op: table.Mean},
}

// Key identifies one summary group.
type Key struct {
	ArrivalRate float64 `json:"lambda"`
	Controller  string  `json:"controller"`
}

func keyOf(r table.Row) Key {
	return Key{ArrivalRate: r.Spec.ArrivalRate, Controller: r.Spec.Controller}
}

// Compare orders keys by arrival rate, then controller.
func (k Key) Compare(o Key) int {
	if c := cmp.Compare(k.ArrivalRate, o.ArrivalRate); c != 0 {
		return c
	}
	return cmp.Compare(k.Controller, o.Controller)
}

// ExpectedGroups returns every (arrival rate, controller) combination of
// the given axes, with rates rounded the way run tags round them.
func ExpectedGroups(arrivalRates []float64, controllers []string) []Key {
	keys := make([]Key, 0, len(arrivalRates)*len(controllers))
	for _, rate := range arrivalRates {
		for _, ctrl := range controllers {
			keys = append(keys, Key{ArrivalRate: runspec.CanonicalRate(rate), Controller: ctrl})
		}
	}
	return keys
}

// Row is one summary group. Values holds the defined statistics; a
// statistic absent from Values is missing for this group.
type Row struct {
	Key
	Values       map[string]float64 `json:"values"`
	Observations int                `json:"observations"`
}

// Value returns the named statistic.
func (r Row) Value(name string) (float64, bool) {
	v, ok := r.Values[name]
	return v, ok
}

// Table is the summary: statistic column names in output order and rows
// sorted by arrival rate, then controller.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Len returns the number of groups.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Row returns the group for key.
func (t *Table) Row(key Key) (Row, bool) {
	i, ok := slices.BinarySearchFunc(t.Rows, key, func(r Row, k Key) int { return r.Key.Compare(k) })
	if !ok {
		return Row{}, false
	}
	return t.Rows[i], true
}

// Option configures Summarize.
type Option func(*options)

type options struct {
	expected []Key
	stats    []Statistic
}

// WithExpectedGroups makes every key appear in the summary, with missing
// statistics when no run of that group produced metrics.
func WithExpectedGroups(keys []Key) Option {
	return func(o *options) {
		o.expected = append(o.expected, keys...)
	}
}

// WithStatistics replaces the default statistic list.
func WithStatistics(stats []Statistic) Option {
	return func(o *options) {
		o.stats = stats
	}
}

// Summarize groups t by (arrival rate, controller) and applies each
// statistic to its source metric. Statistics whose source metric no row
// reports are left out of the table entirely.
func Summarize(t *table.MetricsTable, opts ...Option) *Table {
	o := options{stats: Statistics}
	for _, opt := range opts {
		opt(&o)
	}

	var columns []string
	var stats []Statistic
	for _, s := range o.stats {
		if t.HasColumn(s.Metric) {
			columns = append(columns, s.Name)
			stats = append(stats, s)
		}
	}

	keys, groups := table.GroupBy(t.Rows(), keyOf)
	for _, k := range o.expected {
		if _, ok := groups[k]; !ok {
			groups[k] = nil
			keys = append(keys, k)
		}
	}

	rows := make([]Row, 0, len(keys))
	for _, k := range keys {
		members := groups[k]
		row := Row{Key: k, Values: make(map[string]float64, len(stats)), Observations: len(members)}
		for _, s := range stats {
			if v, ok := s.Op.Apply(table.Values(members, s.Metric)); ok {
				row.Values[s.Name] = v
			}
		}
		rows = append(rows, row)
	}
	slices.SortFunc(rows, func(a, b Row) int { return a.Key.Compare(b.Key) })

	return &Table{Columns: columns, Rows: rows}
}
