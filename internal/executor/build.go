package executor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// makeCandidates are tried in order when building the simulator.
var makeCandidates = []string{"mingw32-make", "make"}

// EnsureBuilt builds the simulator with make when its binary is missing.
// It does nothing when the binary exists or buildDir is empty.
func EnsureBuilt(ctx context.Context, simulatorPath, buildDir string) error {
	if _, err := os.Stat(simulatorPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat simulator: %w", err)
	}
	if buildDir == "" {
		return fmt.Errorf("simulator %s not found and no build directory configured", simulatorPath)
	}

	makeCmd, err := findMake()
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, makeCmd, "-C", buildDir)
	stderr := newTailBuffer(4096)
	cmd.Stdout = stderr
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("building simulator in %s: %w: %s", buildDir, err, lastLine(stderr.String()))
	}

	if _, err := os.Stat(simulatorPath); err != nil {
		return fmt.Errorf("simulator %s still missing after build: %w", simulatorPath, err)
	}
	return nil
}

func findMake() (string, error) {
	for _, name := range makeCandidates {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("neither 'mingw32-make' nor 'make' was found in PATH")
}
