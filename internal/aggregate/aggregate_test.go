package aggregate

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/nvandessel/gridsweep/internal/logging"
)

const metricsHeader = "mean_travel_time_s,p95_travel_time_s,throughput_veh_per_s,avg_queue_veh,max_queue_veh,spawned,exited,blocked_entries\n"

// writeRun creates root/name and, when metrics is non-empty, its metrics.csv.
func writeRun(t *testing.T, root, name, metrics string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create run dir: %v", err)
	}
	if metrics == "" {
		return
	}
	if err := os.WriteFile(filepath.Join(dir, "metrics.csv"), []byte(metrics), 0644); err != nil {
		t.Fatalf("failed to write metrics: %v", err)
	}
}

func TestAggregate_AllRuns(t *testing.T) {
	root := t.TempDir()
	tags := []string{
		"lam_0.050_ctrl_fixed_seed_0",
		"lam_0.050_ctrl_fixed_seed_1",
		"lam_0.050_ctrl_max_pressure_seed_0",
		"lam_0.100_ctrl_actuated_seed_4",
	}
	for _, tag := range tags {
		writeRun(t, root, tag, metricsHeader+"12.5,30.25,0.4,1.5,6,100,90,3\n")
	}
	// ignored: plain files and names outside the grammar
	if err := os.WriteFile(filepath.Join(root, "sweep.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	writeRun(t, root, "notes", metricsHeader+"1,1,1,1,1,1,1,1\n")
	writeRun(t, root, "lam_0.05_ctrl_fixed_seed_0", metricsHeader+"1,1,1,1,1,1,1,1\n")

	tbl, err := Aggregate(root)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if tbl.Len() != len(tags) {
		t.Fatalf("Len() = %d, want %d", tbl.Len(), len(tags))
	}

	var got []string
	for _, r := range tbl.Sorted() {
		got = append(got, r.Tag())
	}
	want := []string{
		"lam_0.050_ctrl_fixed_seed_0",
		"lam_0.050_ctrl_fixed_seed_1",
		"lam_0.050_ctrl_max_pressure_seed_0",
		"lam_0.100_ctrl_actuated_seed_4",
	}
	if !slices.Equal(got, want) {
		t.Errorf("tags = %v, want %v", got, want)
	}

	row, _ := tbl.Get("lam_0.100_ctrl_actuated_seed_4")
	if row.Spec.ArrivalRate != 0.1 || row.Spec.Controller != "actuated" || row.Spec.Seed != 4 {
		t.Errorf("axis values = %+v", row.Spec)
	}
	if v, _ := row.Value("p95_travel_time_s"); v != 30.25 {
		t.Errorf("p95_travel_time_s = %v, want 30.25", v)
	}

	wantCols := []string{
		"mean_travel_time_s", "p95_travel_time_s", "throughput_veh_per_s",
		"avg_queue_veh", "max_queue_veh", "spawned", "exited", "blocked_entries",
	}
	if cols := tbl.Columns(); !slices.Equal(cols, wantCols) {
		t.Errorf("Columns() = %v, want %v", cols, wantCols)
	}
}

func TestAggregate_PartialRuns(t *testing.T) {
	root := t.TempDir()
	writeRun(t, root, "lam_0.050_ctrl_fixed_seed_0", metricsHeader+"1,2,3,4,5,6,7,8\n")
	writeRun(t, root, "lam_0.050_ctrl_fixed_seed_1", "")
	writeRun(t, root, "lam_0.050_ctrl_fixed_seed_2", metricsHeader+"1,2,3,4,5,6,7,8\n")

	tbl, err := Aggregate(root)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tbl.Len())
	}
	if _, ok := tbl.Get("lam_0.050_ctrl_fixed_seed_1"); ok {
		t.Error("run without metrics.csv should be absent")
	}
}

func TestAggregate_FirstRecordOnly(t *testing.T) {
	root := t.TempDir()
	writeRun(t, root, "lam_0.050_ctrl_fixed_seed_0", "mean_travel_time_s\n10\n99\n")

	tbl, err := Aggregate(root)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	row, _ := tbl.Get("lam_0.050_ctrl_fixed_seed_0")
	if v, _ := row.Value("mean_travel_time_s"); v != 10 {
		t.Errorf("value = %v, want first record 10", v)
	}
}

func TestAggregate_CellHandling(t *testing.T) {
	root := t.TempDir()
	writeRun(t, root, "lam_0.050_ctrl_fixed_seed_3",
		"\ufeffmean_travel_time_s, note ,seed,throughput_veh_per_s,avg_queue_veh,blocked_entries\n 4.5 ,warm,17,0.25,NaN\n")

	tbl, err := Aggregate(root)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	row, ok := tbl.Get("lam_0.050_ctrl_fixed_seed_3")
	if !ok {
		t.Fatal("row missing")
	}
	if v, ok := row.Value("mean_travel_time_s"); !ok || v != 4.5 {
		t.Errorf("mean_travel_time_s = %v, %v", v, ok)
	}
	if _, ok := row.Value("note"); ok {
		t.Error("non-numeric cell should be dropped")
	}
	if _, ok := row.Value("avg_queue_veh"); ok {
		t.Error("NaN cell should be dropped")
	}
	if _, ok := row.Value("blocked_entries"); ok {
		t.Error("cell beyond a short record should be absent")
	}
	if _, ok := row.Value("seed"); ok {
		t.Error("axis columns in the metrics file should be ignored")
	}
	if row.Spec.Seed != 3 {
		t.Errorf("seed = %d, want 3 from the tag", row.Spec.Seed)
	}
}

func TestAggregate_MalformedFilesWarn(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"header only", "mean_travel_time_s\n"},
		{"empty file", "\n"},
		{"empty column", "mean_travel_time_s,,x\n1,2,3\n"},
		{"duplicate column", "a,a\n1,2\n"},
		{"bad quoting", "\"a\n1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeRun(t, root, "lam_0.050_ctrl_fixed_seed_0", tt.content)
			writeRun(t, root, "lam_0.050_ctrl_fixed_seed_1", "mean_travel_time_s\n2\n")

			var buf bytes.Buffer
			tbl, err := New(logging.NewLogger("info", &buf)).Aggregate(root)
			if err != nil {
				t.Fatalf("Aggregate failed: %v", err)
			}
			if tbl.Len() != 1 {
				t.Errorf("Len() = %d, want 1", tbl.Len())
			}
			if !strings.Contains(buf.String(), "lam_0.050_ctrl_fixed_seed_0") {
				t.Errorf("expected warning naming the run, got %q", buf.String())
			}
		})
	}
}

func TestAggregate_MissingRoot(t *testing.T) {
	if _, err := Aggregate(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("expected error for missing results root")
	}
}

func TestAggregate_CustomMetricsFile(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "lam_0.050_ctrl_fixed_seed_0")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "summary_metrics.csv"), []byte("x\n1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tbl, err := (&Aggregator{MetricsFile: "summary_metrics.csv"}).Aggregate(root)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}
}
