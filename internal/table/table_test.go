package table

import (
	"math"
	"slices"
	"testing"

	"github.com/nvandessel/gridsweep/internal/runspec"
)

func spec(rate float64, ctrl string, seed int64) runspec.RunSpec {
	return runspec.RunSpec{ArrivalRate: rate, Controller: ctrl, Seed: seed}
}

func TestMetricsTable_PutReplacesSameTag(t *testing.T) {
	tbl := NewMetricsTable()
	tbl.Put(spec(0.05, "fixed", 0), map[string]float64{"mean_travel_time_s": 10})
	tbl.Put(spec(0.05, "fixed", 1), map[string]float64{"mean_travel_time_s": 30})
	tbl.Put(spec(0.05, "fixed", 0), map[string]float64{"mean_travel_time_s": 12})

	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tbl.Len())
	}
	row, ok := tbl.Get("lam_0.050_ctrl_fixed_seed_0")
	if !ok {
		t.Fatal("row for seed 0 missing")
	}
	if v, _ := row.Value("mean_travel_time_s"); v != 12 {
		t.Errorf("replaced value = %v, want 12", v)
	}
}

func TestMetricsTable_ColumnsFirstSeen(t *testing.T) {
	tbl := NewMetricsTable()
	tbl.Put(spec(0.05, "fixed", 0), map[string]float64{"b": 1, "a": 2}, "b", "a")
	tbl.Put(spec(0.05, "fixed", 1), map[string]float64{"a": 1, "c": 3, "d": 4}, "c", "a")

	want := []string{"b", "a", "c", "d"}
	if got := tbl.Columns(); !slices.Equal(got, want) {
		t.Errorf("Columns() = %v, want %v", got, want)
	}
	if !tbl.HasColumn("d") || tbl.HasColumn("e") {
		t.Error("HasColumn mismatch")
	}
}

func TestMetricsTable_PutCopiesMetrics(t *testing.T) {
	tbl := NewMetricsTable()
	m := map[string]float64{"x": 1}
	tbl.Put(spec(0.05, "fixed", 0), m)
	m["x"] = 99

	row, _ := tbl.Get("lam_0.050_ctrl_fixed_seed_0")
	if row.Metrics["x"] != 1 {
		t.Error("table row aliases caller's map")
	}
}

func TestMetricsTable_Sorted(t *testing.T) {
	tbl := NewMetricsTable()
	tbl.Put(spec(0.1, "fixed", 0), nil)
	tbl.Put(spec(0.05, "max_pressure", 1), nil)
	tbl.Put(spec(0.05, "actuated", 2), nil)
	tbl.Put(spec(0.05, "max_pressure", 0), nil)

	var got []string
	for _, r := range tbl.Sorted() {
		got = append(got, r.Tag())
	}
	want := []string{
		"lam_0.050_ctrl_actuated_seed_2",
		"lam_0.050_ctrl_max_pressure_seed_0",
		"lam_0.050_ctrl_max_pressure_seed_1",
		"lam_0.100_ctrl_fixed_seed_0",
	}
	if !slices.Equal(got, want) {
		t.Errorf("Sorted() = %v, want %v", got, want)
	}
}

func TestMetricsTable_Values(t *testing.T) {
	tbl := NewMetricsTable()
	tbl.Put(spec(0.05, "fixed", 0), map[string]float64{"q": 1})
	tbl.Put(spec(0.05, "fixed", 1), map[string]float64{"other": 5})
	tbl.Put(spec(0.05, "fixed", 2), map[string]float64{"q": 3})

	if got := tbl.Values("q"); !slices.Equal(got, []float64{1, 3}) {
		t.Errorf("Values(q) = %v", got)
	}
}

func TestGroupBy(t *testing.T) {
	rows := []Row{
		{Spec: spec(0.1, "fixed", 0)},
		{Spec: spec(0.05, "fixed", 0)},
		{Spec: spec(0.1, "fixed", 1)},
	}
	keys, groups := GroupBy(rows, func(r Row) float64 { return r.Spec.ArrivalRate })

	if !slices.Equal(keys, []float64{0.1, 0.05}) {
		t.Errorf("keys = %v, want first-seen order", keys)
	}
	if len(groups[0.1]) != 2 || len(groups[0.05]) != 1 {
		t.Errorf("group sizes = %d, %d", len(groups[0.1]), len(groups[0.05]))
	}
}

func TestReductions(t *testing.T) {
	tests := []struct {
		name   string
		op     Reduction
		xs     []float64
		want   float64
		wantOK bool
	}{
		{"mean", Mean, []float64{10, 30}, 20, true},
		{"mean empty", Mean, nil, 0, false},
		{"std two", StdDev, []float64{10, 30}, math.Sqrt(200), true},
		{"std sample", StdDev, []float64{10, 20, 30}, 10, true},
		{"std single", StdDev, []float64{10}, 0, false},
		{"std empty", StdDev, nil, 0, false},
		{"count", Count, []float64{1, 2, 3}, 3, true},
		{"count empty", Count, nil, 0, true},
		{"zero value", Reduction{}, []float64{1}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.op.Apply(tt.xs)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
