// Package testutil provides test helpers and utilities for uplift tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteTempFile writes content to a file in the specified directory,
// creating parent directories as needed.
func WriteTempFile(t *testing.T, dir, filename, content string) string {
	t.Helper()

	path := filepath.Join(dir, filename)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755), "failed to create parent of %s", filename)
	err := os.WriteFile(path, []byte(content), 0o644)
	require.NoError(t, err, "failed to write temp file: %s", filename)

	return path
}

// ChangeDir changes to a directory for the duration of the test.
func ChangeDir(t *testing.T, dir string) {
	t.Helper()

	original, err := os.Getwd()
	require.NoError(t, err)

	err = os.Chdir(dir)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = os.Chdir(original)
	})
}
