package cli

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolveProjectDir resolves and validates a project directory argument.
// Returns the absolute, symlink-resolved path.
func ResolveProjectDir(dir string) (string, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving project dir: %w", err)
	}

	// Resolve symlinks to get the real path
	absPath, err = filepath.EvalSymlinks(absPath)
	if err != nil {
		return "", fmt.Errorf("project dir %q: %w", dir, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("project dir %q: %w", absPath, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project dir %q is not a directory", absPath)
	}

	return absPath, nil
}
