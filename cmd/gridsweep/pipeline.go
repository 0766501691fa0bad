package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/gridsweep/internal/aggregate"
	"github.com/nvandessel/gridsweep/internal/constants"
	"github.com/nvandessel/gridsweep/internal/executor"
	"github.com/nvandessel/gridsweep/internal/kvconfig"
	"github.com/nvandessel/gridsweep/internal/report"
	"github.com/nvandessel/gridsweep/internal/summary"
	"github.com/nvandessel/gridsweep/internal/sweep"
	"github.com/nvandessel/gridsweep/internal/table"
)

// axesFromSettings maps the configured sweep onto simulator units.
func axesFromSettings(e *cliEnv) sweep.Axes {
	return sweep.Axes{
		ArrivalRates: e.settings.Sweep.ArrivalRates(),
		Controllers:  e.settings.Sweep.Controllers,
		Seeds:        e.settings.Sweep.Seeds,
	}
}

// runSweep builds the simulator if needed and runs the configured sweep.
// The report is returned alongside a sweep error whenever runs were attempted.
func runSweep(ctx context.Context, e *cliEnv) (*sweep.Report, error) {
	s := e.settings

	template, err := kvconfig.LoadDocument(s.Template)
	if err != nil {
		return nil, err
	}

	if err := executor.EnsureBuilt(ctx, s.Simulator.Path, s.Simulator.BuildDir); err != nil {
		return nil, err
	}

	root, err := sweep.NewResultsRoot(s.Paths.Results)
	if err != nil {
		return nil, err
	}

	sim := executor.New(s.Simulator.Path)
	sim.Timeout = s.Simulator.Timeout
	sim.Logger = e.logger

	d := sweep.NewDriver(sim, root)
	d.Policy = s.Sweep.Policy
	d.Logger = e.logger
	d.Simulator = s.Simulator.Path
	if s.Metrics.Textfile != "" {
		d.Metrics = sweep.NewMetrics()
	}

	rep, runErr := d.Run(ctx, template, axesFromSettings(e))
	if err := d.Metrics.WriteTextfile(s.Metrics.Textfile); err != nil {
		e.logger.Warn("could not write run metrics", "path", s.Metrics.Textfile, "error", err)
	}
	return rep, runErr
}

// reportResult is what the report stage produced.
type reportResult struct {
	Metrics *table.MetricsTable `json:"-"`
	Summary *summary.Table      `json:"summary"`
	Runs    int                 `json:"runs"`
	Tables  string              `json:"tables"`
	Figures string              `json:"figures"`
}

// buildReport aggregates the results root and writes every report
// artifact. When the sweep is known, its axes make every expected group
// appear in the summary.
func buildReport(ctx context.Context, e *cliEnv, sw *sweep.Report) (*reportResult, error) {
	s := e.settings

	metrics, err := aggregate.New(e.logger).Aggregate(s.Paths.Results)
	if err != nil {
		return nil, err
	}
	e.logger.Info("aggregated results", "runs", metrics.Len(), "columns", len(metrics.Columns()))

	var opts []summary.Option
	info := report.DatabaseInfo{ResultsRoot: s.Paths.Results}
	if sw != nil {
		opts = append(opts, summary.WithExpectedGroups(summary.ExpectedGroups(sw.Axes.ArrivalRates, sw.Axes.Controllers)))
		info.SweepID = sw.SweepID
	}
	sum := summary.Summarize(metrics, opts...)

	if err := report.ExportMetrics(metrics, s.Paths.Tables); err != nil {
		return nil, err
	}
	if err := report.Export(sum, s.Paths.Tables, s.Paths.Figures); err != nil {
		return nil, err
	}
	dbPath := filepath.Join(s.Paths.Tables, constants.DatabaseFileName)
	if err := report.WriteDatabase(ctx, dbPath, metrics, sum, info); err != nil {
		return nil, err
	}
	e.logger.Info("wrote report", "tables", s.Paths.Tables, "figures", s.Paths.Figures, "groups", sum.Len())

	return &reportResult{
		Metrics: metrics,
		Summary: sum,
		Runs:    metrics.Len(),
		Tables:  s.Paths.Tables,
		Figures: s.Paths.Figures,
	}, nil
}

// readSweepManifest returns the manifest of the last sweep into the
// results root, or nil when there is none.
func readSweepManifest(e *cliEnv) (*sweep.Report, error) {
	path := filepath.Join(e.settings.Paths.Results, constants.ManifestFileName)
	rep, err := sweep.ReadManifest(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read sweep manifest: %w", err)
	}
	return rep, nil
}
