package sweep_test

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/nvandessel/gridsweep/internal/aggregate"
	"github.com/nvandessel/gridsweep/internal/kvconfig"
	"github.com/nvandessel/gridsweep/internal/runspec"
	"github.com/nvandessel/gridsweep/internal/summary"
	"github.com/nvandessel/gridsweep/internal/sweep"
)

// simulatorScript reads the seed from the flat config and writes a metrics
// row whose travel time depends on it. Each invocation appends a line to
// the counter file named by %COUNT%.
const simulatorScript = `#!/bin/sh
cfg=""
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    --config) cfg="$2"; shift 2 ;;
    --out) out="$2"; shift 2 ;;
    *) echo "unknown argument $1" >&2; exit 2 ;;
  esac
done
echo "$out" >> "%COUNT%"
seed=$(grep '^simulation.random_seed=' "$cfg" | cut -d= -f2)
tt=$((10 + 20 * seed))
printf 'mean_travel_time_s,p95_travel_time_s,throughput_veh_per_s,avg_queue_veh,max_queue_veh,blocked_entries\n%s,%s,0.5,1.5,4,0\n' "$tt" "$((tt * 2))" > "$out/metrics.csv"
`

const e2eTemplate = `
simulation: {time_step: 1.0, duration: 600, warmup: 60, random_seed: 0}
network: {grid_size: 2, cell_length: 7.5, link_length_cells: 10, lanes_per_direction: 1}
vehicles: {vmax_cells_per_step: 2, slowdown_probability: 0.1, vehicle_length_cells: 1}
demand:
  arrival_rate: 0.1
  routing: {randomness: 0.2}
traffic_lights:
  controller: fixed
  fixed: {cycle_time: 60, green_ns: 30}
  actuated: {min_green: 10, max_green: 50, queue_threshold: 4}
  max_pressure: {min_green: 8, max_green: 45}
output: {export_interval: 60, save_queue_snapshots: false, save_vehicle_trajectories: false}
`

func TestSweepEndToEnd(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell-script simulator requires a POSIX shell")
	}

	dir := t.TempDir()
	countFile := filepath.Join(dir, "invocations.txt")
	sim := filepath.Join(dir, "sim.sh")
	script := strings.ReplaceAll(simulatorScript, "%COUNT%", countFile)
	if err := os.WriteFile(sim, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	template, err := kvconfig.ParseDocument([]byte(e2eTemplate))
	if err != nil {
		t.Fatal(err)
	}

	axes := sweep.Axes{
		ArrivalRates: []float64{0.05, 0.1},
		Controllers:  []string{"fixed", "max_pressure"},
		Seeds:        []int64{0, 1},
	}
	root := filepath.Join(dir, "results")

	report, err := sweep.RunSweep(context.Background(), sim, template, root, axes)
	if err != nil {
		t.Fatalf("RunSweep() = %v", err)
	}
	if report.Succeeded() != 8 {
		t.Errorf("succeeded = %d, want 8", report.Succeeded())
	}

	calls, err := os.ReadFile(countFile)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(strings.Split(strings.TrimSpace(string(calls)), "\n")); n != 8 {
		t.Errorf("simulator invocations = %d, want 8", n)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	var tags int
	for _, e := range entries {
		if _, ok := runspec.Parse(e.Name()); ok && e.IsDir() {
			tags++
		}
	}
	if tags != 8 {
		t.Errorf("run directories = %d, want 8", tags)
	}

	metrics, err := aggregate.Aggregate(root)
	if err != nil {
		t.Fatalf("Aggregate() = %v", err)
	}
	if metrics.Len() != 8 {
		t.Errorf("aggregated rows = %d, want 8", metrics.Len())
	}

	sum := summary.Summarize(metrics)
	if sum.Len() != 4 {
		t.Fatalf("summary rows = %d, want 4", sum.Len())
	}
	for _, row := range sum.Rows {
		if row.Observations != 2 {
			t.Errorf("%v: observations = %d, want 2", row.Key, row.Observations)
		}
		if v, ok := row.Value("mean_tt_mean"); !ok || v != 20 {
			t.Errorf("%v: mean_tt_mean = %v, %v", row.Key, v, ok)
		}
		if v, ok := row.Value("mean_tt_std"); !ok || math.Abs(v-math.Sqrt(200)) > 1e-9 {
			t.Errorf("%v: mean_tt_std = %v, %v", row.Key, v, ok)
		}
		if v, ok := row.Value("p95_tt_mean"); !ok || v != 40 {
			t.Errorf("%v: p95_tt_mean = %v, %v", row.Key, v, ok)
		}
	}
	if sum.Rows[0].Key != (summary.Key{ArrivalRate: 0.05, Controller: "fixed"}) {
		t.Errorf("first summary row = %v", sum.Rows[0].Key)
	}
}
