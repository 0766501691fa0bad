// Package executor runs the external simulator for a single sweep point.
//
// The simulator is a black box invoked as
//
//	<simulator> --config <flat config> --out <output directory>
//
// Success is exit status zero. Any other outcome, including a failure to
// start the process or a timeout, is reported as a *SimulatorFailure.
// Runs are never retried: the simulator is deterministic.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/nvandessel/gridsweep/internal/constants"
	"github.com/nvandessel/gridsweep/internal/pathutil"
)

// waitDelay bounds how long Wait blocks on output pipes after the process
// has been killed.
const waitDelay = 2 * time.Second

// Outcome describes a successful simulator run.
type Outcome struct {
	// ExitCode is always zero for a returned Outcome.
	ExitCode int

	// Duration is the wall-clock time of the run.
	Duration time.Duration

	// Stdout is the tail of the simulator's standard output.
	Stdout string
}

// SimulatorFailure reports a run that did not exit cleanly.
type SimulatorFailure struct {
	// Simulator is the executable path.
	Simulator string

	// OutDir is the run's output directory.
	OutDir string

	// ExitCode is the process exit status, or -1 when the process did not
	// exit normally (failed to start, killed, timed out).
	ExitCode int

	// Stderr is the tail of the simulator's diagnostic output.
	Stderr string

	// TimedOut is set when the per-run timeout expired.
	TimedOut bool

	// Err is the underlying error from os/exec or the context.
	Err error
}

func (e *SimulatorFailure) Error() string {
	var msg string
	switch {
	case e.TimedOut:
		msg = fmt.Sprintf("simulator %s timed out (out=%s)", pathutil.RedactPath(e.Simulator), pathutil.RedactPath(e.OutDir))
	case e.ExitCode >= 0:
		msg = fmt.Sprintf("simulator %s exited with status %d (out=%s)", pathutil.RedactPath(e.Simulator), e.ExitCode, pathutil.RedactPath(e.OutDir))
	default:
		msg = fmt.Sprintf("simulator %s failed (out=%s): %v", pathutil.RedactPath(e.Simulator), pathutil.RedactPath(e.OutDir), e.Err)
	}
	if e.Stderr != "" {
		msg += ": " + lastLine(e.Stderr)
	}
	return msg
}

func (e *SimulatorFailure) Unwrap() error {
	return e.Err
}

// Simulator invokes one simulator executable.
type Simulator struct {
	// Path is the simulator executable.
	Path string

	// Timeout bounds each run. Zero means no bound.
	Timeout time.Duration

	// Logger receives debug output; nil disables logging.
	Logger *slog.Logger
}

// New creates a Simulator for path with no timeout.
func New(path string) *Simulator {
	return &Simulator{Path: path}
}

// Execute is the one-shot form of (&Simulator{Path: simulatorPath}).Execute.
func Execute(ctx context.Context, simulatorPath, flatConfigPath, outDir string) (*Outcome, error) {
	return New(simulatorPath).Execute(ctx, flatConfigPath, outDir)
}

// Execute ensures outDir exists and runs the simulator synchronously.
func (s *Simulator) Execute(ctx context.Context, flatConfigPath, outDir string) (*Outcome, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	runCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, s.Path, "--config", flatConfigPath, "--out", outDir)
	cmd.WaitDelay = waitDelay
	stdout := newTailBuffer(constants.MaxCapturedOutput)
	stderr := newTailBuffer(constants.MaxCapturedOutput)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	s.debug("starting simulator", "simulator", s.Path, "config", flatConfigPath, "out", outDir)
	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		failure := &SimulatorFailure{
			Simulator: s.Path,
			OutDir:    outDir,
			ExitCode:  -1,
			Stderr:    stderr.String(),
			Err:       err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.Exited() {
			failure.ExitCode = exitErr.ExitCode()
		}
		if s.Timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			failure.TimedOut = true
			failure.ExitCode = -1
			failure.Err = context.DeadlineExceeded
		} else if ctx.Err() != nil {
			failure.Err = ctx.Err()
		}
		s.debug("simulator failed", "out", outDir, "exit_code", failure.ExitCode, "timed_out", failure.TimedOut, "duration", elapsed)
		return nil, failure
	}

	s.debug("simulator finished", "out", outDir, "duration", elapsed)
	return &Outcome{ExitCode: 0, Duration: elapsed, Stdout: stdout.String()}, nil
}

func (s *Simulator) debug(msg string, args ...any) {
	if s.Logger != nil {
		s.Logger.Debug(msg, args...)
	}
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf bytes.Buffer
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) > t.max {
		p = p[len(p)-t.max:]
	}
	if over := t.buf.Len() + len(p) - t.max; over > 0 {
		t.buf.Next(over)
	}
	t.buf.Write(p)
	return n, nil
}

func (t *tailBuffer) String() string {
	return t.buf.String()
}

// lastLine returns the last non-empty line of s.
func lastLine(s string) string {
	s = strings.TrimRight(s, "\r\n ")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
