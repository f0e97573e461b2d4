package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CleanPath expands a leading ~ and returns an absolute, cleaned path.
// Paths that still walk out of their base with .. are rejected.
func CleanPath(path string) (string, error) {
	expanded, err := ExpandHome(path)
	if err != nil {
		return "", err
	}

	cleaned := filepath.Clean(expanded)
	if strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("invalid path %q: contains directory traversal", path)
	}

	if !filepath.IsAbs(cleaned) {
		abs, err := filepath.Abs(cleaned)
		if err != nil {
			return "", fmt.Errorf("failed to resolve absolute path: %w", err)
		}
		cleaned = abs
	}
	return cleaned, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// AppDir returns ~/.sparkload.
func AppDir() (string, error) {
	return ExpandHome("~/.sparkload")
}
