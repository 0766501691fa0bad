package sweep

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nvandessel/gridsweep/internal/constants"
	"github.com/nvandessel/gridsweep/internal/runspec"
)

// ManifestVersion is the format version of sweep.json.
const ManifestVersion = 1

// RunRecord is the outcome of one planned run.
type RunRecord struct {
	Tag        string          `json:"tag"`
	Spec       runspec.RunSpec `json:"spec"`
	Outcome    string          `json:"outcome"`
	ExitCode   int             `json:"exit_code,omitempty"`
	DurationMS int64           `json:"duration_ms"`
	Error      string          `json:"error,omitempty"`
}

// Report describes a sweep: its identity, its axes and what happened to
// every run that was attempted. It is persisted as the sweep manifest.
type Report struct {
	Version    int              `json:"version"`
	SweepID    string           `json:"sweep_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Simulator  string           `json:"simulator,omitempty"`
	Policy     constants.Policy `json:"policy"`
	Axes       Axes             `json:"axes"`
	Planned    int              `json:"planned"`
	Runs       []RunRecord      `json:"runs"`

	// Aborted holds the reason the sweep stopped before finishing the plan.
	Aborted string `json:"aborted,omitempty"`
}

// Succeeded returns the number of runs that completed.
func (r *Report) Succeeded() int {
	n := 0
	for _, run := range r.Runs {
		if run.Outcome == OutcomeOK {
			n++
		}
	}
	return n
}

// Failed returns the records of runs that did not complete.
func (r *Report) Failed() []RunRecord {
	var out []RunRecord
	for _, run := range r.Runs {
		if run.Outcome != OutcomeOK {
			out = append(out, run)
		}
	}
	return out
}

// WriteManifest writes r as indented JSON. The file is replaced atomically.
func WriteManifest(path string, r *Report) (err error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), ".sweep-*.json")
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move manifest into place: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if r.Version > ManifestVersion {
		return nil, fmt.Errorf("manifest version %d is newer than supported version %d", r.Version, ManifestVersion)
	}
	return &r, nil
}
