// Package sweep drives a parameter sweep of the simulator.
//
// For every point of the cross-product of arrival rates, controllers and
// seeds, the driver projects the template with the point's overrides into
// <root>/<tag>/config.kv and runs the simulator once with <root>/<tag> as
// its output directory. The results root is wiped before the first run.
//
// The sweep is strictly sequential. Under the fail-fast policy the first
// failed run ends the sweep; under collect-all every run is attempted and
// the failures are returned together as a *FailuresError. Cancelling the
// context stops the sweep under either policy.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nvandessel/gridsweep/internal/constants"
	"github.com/nvandessel/gridsweep/internal/executor"
	"github.com/nvandessel/gridsweep/internal/kvconfig"
	"github.com/nvandessel/gridsweep/internal/logging"
	"github.com/nvandessel/gridsweep/internal/runspec"
)

// Runner executes the simulator for one run.
type Runner interface {
	Execute(ctx context.Context, flatConfigPath, outDir string) (*executor.Outcome, error)
}

// RunFailure pairs a run with the error that ended it.
type RunFailure struct {
	Spec runspec.RunSpec
	Err  error
}

func (f RunFailure) Error() string {
	return fmt.Sprintf("run %s: %v", f.Spec.Tag(), f.Err)
}

func (f RunFailure) Unwrap() error {
	return f.Err
}

// FailuresError reports every failed run of a collect-all sweep.
type FailuresError struct {
	Failures []RunFailure
	Planned  int
}

func (e *FailuresError) Error() string {
	if len(e.Failures) == 0 {
		return "no runs failed"
	}
	msg := fmt.Sprintf("%d of %d runs failed", len(e.Failures), e.Planned)
	return msg + ": " + e.Failures[0].Error()
}

// Unwrap exposes each failure to errors.Is and errors.As.
func (e *FailuresError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// Driver runs sweeps into a results root.
type Driver struct {
	// Runner executes each run. Required.
	Runner Runner

	// Root is the results root. Required.
	Root *ResultsRoot

	// Policy selects the reaction to a failed run. Empty means fail-fast.
	Policy constants.Policy

	// Logger receives progress output; nil disables logging.
	Logger *slog.Logger

	// Metrics receives run counters; nil disables them.
	Metrics *Metrics

	// Simulator is recorded in the manifest.
	Simulator string

	// NoEventLog disables <root>/events.jsonl.
	NoEventLog bool
}

// NewDriver creates a fail-fast driver.
func NewDriver(runner Runner, root *ResultsRoot) *Driver {
	return &Driver{Runner: runner, Root: root, Policy: constants.PolicyFailFast}
}

// RunSweep runs a fail-fast sweep of simulatorPath into resultsRoot.
func RunSweep(ctx context.Context, simulatorPath string, template *kvconfig.Document, resultsRoot string, axes Axes) (*Report, error) {
	root, err := NewResultsRoot(resultsRoot)
	if err != nil {
		return nil, err
	}
	d := NewDriver(executor.New(simulatorPath), root)
	d.Simulator = simulatorPath
	return d.Run(ctx, template, axes)
}

// Run validates the axes, resets the results root and executes the plan.
// The returned report covers every attempted run and is also written to
// <root>/sweep.json; it is non-nil whenever the root was reset.
func (d *Driver) Run(ctx context.Context, template *kvconfig.Document, axes Axes) (*Report, error) {
	if d.Runner == nil || d.Root == nil {
		return nil, fmt.Errorf("sweep driver needs a runner and a results root")
	}
	if template == nil {
		return nil, fmt.Errorf("sweep driver needs a template")
	}
	policy := d.Policy
	if policy == "" {
		policy = constants.PolicyFailFast
	}
	if !policy.Valid() {
		return nil, fmt.Errorf("unknown failure policy %q", policy)
	}
	if err := axes.Validate(); err != nil {
		return nil, err
	}

	if err := d.Root.Reset(); err != nil {
		return nil, err
	}

	var events *logging.EventLog
	if !d.NoEventLog {
		el, err := logging.NewEventLog(d.Root.Path())
		if err != nil {
			d.log().Warn("event log unavailable", "error", err)
		} else {
			events = el
			defer events.Close()
		}
	}

	plan := axes.Plan()
	report := &Report{
		Version:   ManifestVersion,
		SweepID:   uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Simulator: d.Simulator,
		Policy:    policy,
		Axes:      axes,
		Planned:   len(plan),
		Runs:      make([]RunRecord, 0, len(plan)),
	}
	d.Metrics.sweepStarted(len(plan))
	events.Emit("sweep_started", "sweep_id", report.SweepID, "planned", len(plan), "policy", string(policy))
	d.log().Info("starting sweep", "sweep_id", report.SweepID, "runs", len(plan), "root", d.Root.Path())

	var failures []RunFailure
	var runErr error
	for i, spec := range plan {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("sweep cancelled before run %s: %w", spec.Tag(), err)
			report.Aborted = "cancelled"
			break
		}

		rec, err := d.runOne(ctx, template, spec, events)
		report.Runs = append(report.Runs, rec)
		d.Metrics.observeRun(spec.Controller, rec.Outcome, time.Duration(rec.DurationMS)*time.Millisecond)

		if err == nil {
			d.log().Info("run finished", "run", fmt.Sprintf("%d/%d", i+1, len(plan)), "tag", rec.Tag, "duration", time.Duration(rec.DurationMS)*time.Millisecond)
			continue
		}

		d.log().Error("run failed", "run", fmt.Sprintf("%d/%d", i+1, len(plan)), "tag", rec.Tag, "error", err)
		if ctx.Err() != nil {
			runErr = fmt.Errorf("sweep cancelled during run %s: %w", spec.Tag(), err)
			report.Aborted = "cancelled"
			break
		}
		if policy == constants.PolicyFailFast {
			runErr = RunFailure{Spec: spec, Err: err}
			report.Aborted = "run " + spec.Tag() + " failed"
			break
		}
		failures = append(failures, RunFailure{Spec: spec, Err: err})
	}

	if runErr == nil && len(failures) > 0 {
		runErr = &FailuresError{Failures: failures, Planned: len(plan)}
	}

	report.FinishedAt = time.Now().UTC()
	d.Metrics.sweepFinished(report.FinishedAt)
	events.Emit("sweep_finished", "sweep_id", report.SweepID, "succeeded", report.Succeeded(), "failed", len(report.Failed()), "aborted", report.Aborted)

	if err := WriteManifest(d.Root.File(constants.ManifestFileName), report); err != nil {
		d.log().Warn("could not write sweep manifest", "error", err)
	}

	if runErr != nil {
		return report, runErr
	}
	d.log().Info("sweep finished", "sweep_id", report.SweepID, "runs", len(report.Runs), "elapsed", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	return report, nil
}

// runOne projects and executes a single run.
func (d *Driver) runOne(ctx context.Context, template *kvconfig.Document, spec runspec.RunSpec, events *logging.EventLog) (RunRecord, error) {
	tag := spec.Tag()
	rec := RunRecord{Tag: tag, Spec: spec}
	events.Emit("run_started", "tag", tag)

	fail := func(outcome string, err error) (RunRecord, error) {
		rec.Outcome = outcome
		rec.Error = err.Error()
		events.Emit("run_failed", "tag", tag, "outcome", outcome, "exit_code", rec.ExitCode, "error", err)
		return rec, err
	}

	runDir, err := d.Root.RunDir(tag)
	if err != nil {
		return fail(OutcomeConfigError, err)
	}

	overrides := []kvconfig.Override{
		{Path: constants.ArrivalRatePath, Value: spec.ArrivalRate},
		{Path: constants.ControllerPath, Value: spec.Controller},
		{Path: constants.SeedPath, Value: spec.Seed},
	}
	cfgPath := filepath.Join(runDir, constants.FlatConfigFileName)
	flat, err := kvconfig.ProjectToFile(template, overrides, cfgPath)
	if err != nil {
		return fail(OutcomeConfigError, err)
	}
	if d.Logger != nil && d.Logger.Enabled(ctx, logging.LevelTrace) {
		d.Logger.Log(ctx, logging.LevelTrace, "projected config", "tag", tag, "config", string(flat.Bytes()))
	}

	start := time.Now()
	outcome, err := d.Runner.Execute(ctx, cfgPath, runDir)
	rec.DurationMS = time.Since(start).Milliseconds()
	if err != nil {
		result := OutcomeFailed
		var failure *executor.SimulatorFailure
		if errors.As(err, &failure) {
			rec.ExitCode = failure.ExitCode
			if failure.TimedOut {
				result = OutcomeTimedOut
			}
		}
		return fail(result, err)
	}

	if outcome != nil && outcome.Duration > 0 {
		rec.DurationMS = outcome.Duration.Milliseconds()
	}
	if outcome != nil && d.Logger != nil && d.Logger.Enabled(ctx, logging.LevelTrace) {
		d.Logger.Log(ctx, logging.LevelTrace, "simulator output", "tag", tag, "stdout", strings.TrimSpace(outcome.Stdout))
	}
	rec.Outcome = OutcomeOK
	events.Emit("run_finished", "tag", tag, "duration_ms", rec.DurationMS)
	return rec, nil
}

func (d *Driver) log() *slog.Logger {
	if d.Logger == nil {
		return logging.Discard()
	}
	return d.Logger
}
