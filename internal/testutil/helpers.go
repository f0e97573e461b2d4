package testutil

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"sparkload/internal/common"
	"sparkload/internal/observability"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return observability.Discard()
}

// WriteFile writes content under dir, creating parent directories.
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)

	if err := os.MkdirAll(filepath.Dir(path), common.DirPermissionNormal); err != nil {
		t.Fatalf("Failed to create directories: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), common.FilePermissionSecure); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}

// WriteJSONLines writes one JSON document per line.
func WriteJSONLines[T any](t *testing.T, dir, filename string, records ...T) string {
	t.Helper()
	var content []byte
	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			t.Fatalf("Failed to marshal record: %v", err)
		}
		content = append(content, line...)
		content = append(content, '\n')
	}
	return WriteFile(t, dir, filename, string(content))
}
