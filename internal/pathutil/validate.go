// Package pathutil provides path validation for the directories a sweep
// writes into and destroys.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RedactPath reduces a full path to .../<parent>/<basename> for compact error messages.
// For example, "/home/user/experiments/results/lam_0.050_ctrl_fixed_seed_0"
// becomes ".../results/lam_0.050_ctrl_fixed_seed_0".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	dir := filepath.Dir(cleaned)
	base := filepath.Base(cleaned)
	parent := filepath.Base(dir)
	if parent == "." || parent == string(filepath.Separator) {
		return base
	}
	return ".../" + parent + "/" + base
}

// ValidatePath checks that path lies within root. Symlinks are resolved on
// the deepest existing ancestor, so a link inside root pointing elsewhere
// is rejected even when the target file does not exist yet.
func ValidatePath(path, root string) error {
	if path == "" {
		return fmt.Errorf("path validation failed: path is empty")
	}
	if root == "" {
		return fmt.Errorf("path validation failed: root is empty")
	}
	if strings.ContainsRune(path, '\x00') {
		return fmt.Errorf("path validation failed: path contains null byte")
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("path validation failed: cannot resolve absolute path: %w", err)
	}
	resolvedDir, err := resolveExistingParent(filepath.Dir(absPath))
	if err != nil {
		return fmt.Errorf("path validation failed: cannot resolve parent directory: %w", err)
	}
	resolvedPath := filepath.Join(resolvedDir, filepath.Base(absPath))

	rootAbs, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return fmt.Errorf("path validation failed: cannot resolve root: %w", err)
	}
	rootResolved, err := resolveExistingParent(rootAbs)
	if err != nil {
		return fmt.Errorf("path validation failed: cannot resolve root: %w", err)
	}

	if !isSubpath(resolvedPath, rootResolved) {
		return fmt.Errorf("path validation failed: %q is outside %q", RedactPath(absPath), RedactPath(rootAbs))
	}
	return nil
}

// CheckDestructible refuses directories that must never be recursively
// deleted: the filesystem root, the user's home directory, the current
// working directory and any of their ancestors.
func CheckDestructible(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("refusing to delete: path is empty")
	}
	abs, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return fmt.Errorf("refusing to delete %s: %w", dir, err)
	}
	resolved, err := resolveExistingParent(abs)
	if err != nil {
		return fmt.Errorf("refusing to delete %s: %w", dir, err)
	}

	if filepath.Dir(resolved) == resolved {
		return fmt.Errorf("refusing to delete filesystem root %s", resolved)
	}

	protected := make([]string, 0, 2)
	if home, err := os.UserHomeDir(); err == nil {
		protected = append(protected, home)
	}
	if wd, err := os.Getwd(); err == nil {
		protected = append(protected, wd)
	}
	for _, p := range protected {
		pr, err := resolveExistingParent(p)
		if err != nil {
			continue
		}
		if isSubpath(pr, resolved) {
			return fmt.Errorf("refusing to delete %s: it contains %s", RedactPath(resolved), RedactPath(pr))
		}
	}
	return nil
}

// resolveExistingParent walks up the directory tree to find the deepest existing
// ancestor, resolves symlinks on it, then re-appends the non-existent tail.
func resolveExistingParent(dir string) (string, error) {
	resolved, err := filepath.EvalSymlinks(dir)
	if err == nil {
		return resolved, nil
	}

	parent := filepath.Dir(dir)
	if parent == dir {
		return "", fmt.Errorf("cannot resolve path: %s", RedactPath(dir))
	}

	resolvedParent, err := resolveExistingParent(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(dir)), nil
}

// isSubpath checks whether path is equal to or a subdirectory of base.
func isSubpath(path, base string) bool {
	if path == base {
		return true
	}
	// "/tmp/foo" must not match "/tmp/foobar"
	prefix := base
	if !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix += string(os.PathSeparator)
	}
	return strings.HasPrefix(path, prefix)
}
