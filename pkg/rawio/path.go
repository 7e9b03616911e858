package rawio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveInputPath validates a user-supplied path and returns its absolute
// form. The path must exist and must not be a directory.
func ResolveInputPath(path string) (string, error) {
	absPath, err := cleanUserPath(path)
	if err != nil {
		return "", err
	}

	//nolint:gosec // absPath is normalized by filepath.Clean + filepath.Abs.
	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", absPath, err)
	}

	if info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrDirectoryPath, absPath)
	}

	return absPath, nil
}

func cleanUserPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrEmptyPath
	}

	if strings.ContainsRune(path, '\x00') {
		return "", fmt.Errorf("%w: %q", ErrPathContainsNUL, path)
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", path, err)
	}

	return absPath, nil
}
