package sweep

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes as recorded in the manifest and the run counter.
const (
	OutcomeOK          = "ok"
	OutcomeConfigError = "config_error"
	OutcomeFailed      = "failed"
	OutcomeTimedOut    = "timed_out"
)

// Metrics holds the run counters of one sweep on a private registry.
// A nil *Metrics is safe to use; all methods are no-ops.
type Metrics struct {
	Registry *prometheus.Registry

	runs         *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	plannedRuns  prometheus.Gauge
	lastFinished prometheus.Gauge
}

// NewMetrics creates the sweep metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gridsweep",
			Name:      "runs_total",
			Help:      "Simulator runs by controller and outcome.",
		}, []string{"controller", "outcome"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gridsweep",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of successful simulator runs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"controller"}),
		plannedRuns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "gridsweep",
			Name:      "planned_runs",
			Help:      "Runs in the current sweep plan.",
		}),
		lastFinished: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "gridsweep",
			Name:      "last_sweep_finished_timestamp_seconds",
			Help:      "Unix time the last sweep finished.",
		}),
	}
}

func (m *Metrics) sweepStarted(planned int) {
	if m == nil {
		return
	}
	m.plannedRuns.Set(float64(planned))
}

func (m *Metrics) observeRun(controller, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(controller, outcome).Inc()
	if outcome == OutcomeOK {
		m.runDuration.WithLabelValues(controller).Observe(d.Seconds())
	}
}

func (m *Metrics) sweepFinished(t time.Time) {
	if m == nil {
		return
	}
	m.lastFinished.Set(float64(t.Unix()))
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
