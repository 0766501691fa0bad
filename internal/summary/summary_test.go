package summary

import (
	"math"
	"slices"
	"testing"

	"github.com/nvandessel/gridsweep/internal/runspec"
	"github.com/nvandessel/gridsweep/internal/table"
)

func put(t *table.MetricsTable, rate float64, ctrl string, seed int64, metrics map[string]float64) {
	t.Put(runspec.RunSpec{ArrivalRate: rate, Controller: ctrl, Seed: seed}, metrics)
}

func fullMetrics(tt float64) map[string]float64 {
	return map[string]float64{
		"mean_travel_time_s":   tt,
		"p95_travel_time_s":    tt * 2,
		"throughput_veh_per_s": 0.5,
		"avg_queue_veh":        1,
		"max_queue_veh":        4,
		"blocked_entries":      2,
	}
}

func TestSummarize_Grouping(t *testing.T) {
	tbl := table.NewMetricsTable()
	put(tbl, 0.05, "fixed", 0, map[string]float64{"mean_travel_time_s": 10})
	put(tbl, 0.05, "fixed", 1, map[string]float64{"mean_travel_time_s": 30})

	s := Summarize(tbl)
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	row := s.Rows[0]
	if row.ArrivalRate != 0.05 || row.Controller != "fixed" || row.Observations != 2 {
		t.Errorf("row = %+v", row)
	}
	if v, _ := row.Value("mean_tt_mean"); v != 20 {
		t.Errorf("mean_tt_mean = %v, want 20", v)
	}
	want := math.Sqrt(200)
	if v, ok := row.Value("mean_tt_std"); !ok || math.Abs(v-want) > 1e-9 {
		t.Errorf("mean_tt_std = %v, want %v", v, want)
	}
}

func TestSummarize_StdOfThree(t *testing.T) {
	tbl := table.NewMetricsTable()
	for i, v := range []float64{10, 20, 30} {
		put(tbl, 0.05, "fixed", int64(i), map[string]float64{"mean_travel_time_s": v})
	}

	row := Summarize(tbl).Rows[0]
	if v, _ := row.Value("mean_tt_mean"); v != 20 {
		t.Errorf("mean_tt_mean = %v, want 20", v)
	}
	if v, _ := row.Value("mean_tt_std"); math.Abs(v-10) > 1e-9 {
		t.Errorf("mean_tt_std = %v, want 10", v)
	}
}

func TestSummarize_SingleSeedStdMissing(t *testing.T) {
	tbl := table.NewMetricsTable()
	put(tbl, 0.05, "actuated", 0, map[string]float64{"mean_travel_time_s": 42})

	row := Summarize(tbl).Rows[0]
	if v, _ := row.Value("mean_tt_mean"); v != 42 {
		t.Errorf("mean_tt_mean = %v, want 42", v)
	}
	if _, ok := row.Value("mean_tt_std"); ok {
		t.Error("mean_tt_std should be missing for a single observation")
	}
}

func TestSummarize_ColumnOrderAndAbsentMetrics(t *testing.T) {
	tbl := table.NewMetricsTable()
	put(tbl, 0.05, "fixed", 0, map[string]float64{
		"blocked_entries":    1,
		"mean_travel_time_s": 5,
		"spawned":            10,
	})

	s := Summarize(tbl)
	want := []string{"mean_tt_mean", "mean_tt_std", "blocked_entries_mean"}
	if !slices.Equal(s.Columns, want) {
		t.Errorf("Columns = %v, want %v", s.Columns, want)
	}

	tbl2 := table.NewMetricsTable()
	put(tbl2, 0.05, "fixed", 0, fullMetrics(10))
	all := Summarize(tbl2).Columns
	var names []string
	for _, st := range Statistics {
		names = append(names, st.Name)
	}
	if !slices.Equal(all, names) {
		t.Errorf("Columns = %v, want %v", all, names)
	}
}

func TestSummarize_SortedRows(t *testing.T) {
	tbl := table.NewMetricsTable()
	put(tbl, 0.1, "fixed", 0, fullMetrics(1))
	put(tbl, 0.05, "max_pressure", 0, fullMetrics(1))
	put(tbl, 0.05, "actuated", 0, fullMetrics(1))

	var got []Key
	for _, r := range Summarize(tbl).Rows {
		got = append(got, r.Key)
	}
	want := []Key{{0.05, "actuated"}, {0.05, "max_pressure"}, {0.1, "fixed"}}
	if !slices.Equal(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
}

func TestSummarize_ExpectedGroups(t *testing.T) {
	tbl := table.NewMetricsTable()
	put(tbl, 0.05, "fixed", 0, fullMetrics(10))

	rates := []float64{3.0 / 60, 6.0 / 60}
	keys := ExpectedGroups(rates, []string{"fixed", "actuated"})
	s := Summarize(tbl, WithExpectedGroups(keys), WithExpectedGroups(keys[:1]))

	if s.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", s.Len())
	}
	empty, ok := s.Row(Key{ArrivalRate: 0.1, Controller: "actuated"})
	if !ok {
		t.Fatal("expected group without observations to be present")
	}
	if empty.Observations != 0 || len(empty.Values) != 0 {
		t.Errorf("empty group = %+v", empty)
	}
	observed, ok := s.Row(Key{ArrivalRate: 0.05, Controller: "fixed"})
	if !ok || observed.Observations != 1 {
		t.Errorf("observed group = %+v, %v", observed, ok)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(table.NewMetricsTable())
	if s.Len() != 0 || len(s.Columns) != 0 {
		t.Errorf("summary of empty table = %+v", s)
	}
}

func TestWithStatistics(t *testing.T) {
	tbl := table.NewMetricsTable()
	put(tbl, 0.05, "fixed", 0, map[string]float64{"spawned": 3})
	put(tbl, 0.05, "fixed", 1, map[string]float64{"spawned": 5})

	s := Summarize(tbl, WithStatistics([]Statistic{
		{Name: "runs", Metric: "spawned", Op: table.Count},
		{Name: "spawned_mean", Metric: "spawned", Op: table.Mean},
	}))
	row := s.Rows[0]
	if v, _ := row.Value("runs"); v != 2 {
		t.Errorf("runs = %v, want 2", v)
	}
	if v, _ := row.Value("spawned_mean"); v != 4 {
		t.Errorf("spawned_mean = %v, want 4", v)
	}
}
