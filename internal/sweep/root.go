package sweep

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvandessel/gridsweep/internal/pathutil"
)

// ResultsRoot is the directory a sweep owns. Reset destroys everything
// below it, so the handle refuses paths whose deletion would be
// catastrophic: the filesystem root, the home directory, the working
// directory and their ancestors.
type ResultsRoot struct {
	path string
}

// NewResultsRoot returns a handle for path. The directory need not exist.
func NewResultsRoot(path string) (*ResultsRoot, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("results root is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve results root: %w", err)
	}
	return &ResultsRoot{path: abs}, nil
}

// Path returns the absolute results root.
func (r *ResultsRoot) Path() string {
	return r.path
}

// Reset recursively deletes the results root and recreates it empty.
func (r *ResultsRoot) Reset() error {
	if err := pathutil.CheckDestructible(r.path); err != nil {
		return err
	}
	if err := os.RemoveAll(r.path); err != nil {
		return fmt.Errorf("failed to clear results root: %w", err)
	}
	if err := os.MkdirAll(r.path, 0755); err != nil {
		return fmt.Errorf("failed to create results root: %w", err)
	}
	return nil
}

// RunDir returns the run directory for tag. The tag must be a single path
// element that stays inside the root.
func (r *ResultsRoot) RunDir(tag string) (string, error) {
	if tag == "" || tag == "." || tag == ".." || strings.ContainsAny(tag, `/\`) {
		return "", fmt.Errorf("invalid run tag %q", tag)
	}
	dir := filepath.Join(r.path, tag)
	if err := pathutil.ValidatePath(dir, r.path); err != nil {
		return "", err
	}
	return dir, nil
}

// File returns the path of a bookkeeping file in the root.
func (r *ResultsRoot) File(name string) string {
	return filepath.Join(r.path, name)
}
