// Package constants provides named constants used throughout the gridsweep codebase.
// This centralizes file names, override paths and unit conversions shared by
// the sweep driver, the aggregator and the reporter.
package constants

// Per-run file names inside a run directory.
const (
	// FlatConfigFileName is the projected key=value configuration handed to the simulator.
	FlatConfigFileName = "config.kv"

	// MetricsFileName is the single-record CSV the simulator writes on success.
	MetricsFileName = "metrics.csv"
)

// Sweep-level bookkeeping files written into the results root. They are plain
// files, so the aggregator's directory scan never mistakes them for runs.
const (
	// ManifestFileName records the sweep identity, axes and per-run outcomes.
	ManifestFileName = "sweep.json"

	// EventLogFileName is the JSONL event trace of the sweep.
	EventLogFileName = "events.jsonl"
)

// Report artifact names.
const (
	// RawMetricsFileName is the per-run metrics table export.
	RawMetricsFileName = "raw_metrics.csv"

	// SummaryFileName is the grouped summary table export.
	SummaryFileName = "summary.csv"

	// DatabaseFileName is the SQLite results database written next to the tables.
	DatabaseFileName = "sweep.db"
)

// Configuration paths the sweep axes are mapped onto.
const (
	// ArrivalRatePath receives the arrival rate axis value (veh/s).
	ArrivalRatePath = "demand.arrival_rate"

	// ControllerPath receives the controller family axis value.
	ControllerPath = "traffic_lights.controller"

	// SeedPath receives the random seed axis value.
	SeedPath = "simulation.random_seed"
)

// Unit conversion between the simulator's arrival rate unit and the unit
// used in settings and charts.
const (
	// SecondsPerMinute converts veh/s to veh/min per entry.
	SecondsPerMinute = 60.0
)

// Simulator execution limits.
const (
	// MaxCapturedOutput bounds the bytes of simulator stderr kept for diagnostics.
	// Only the tail is retained.
	MaxCapturedOutput = 16 * 1024
)

// Controller families understood by the simulator.
const (
	ControllerFixed       = "fixed"
	ControllerActuated    = "actuated"
	ControllerMaxPressure = "max_pressure"
)

// ControllerFamilies lists the families in the order their tuning blocks are serialized.
var ControllerFamilies = []string{ControllerFixed, ControllerActuated, ControllerMaxPressure}
