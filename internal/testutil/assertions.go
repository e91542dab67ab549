package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// FileReader is the read side of ports.FileSystem.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// AssertFileContains asserts that a file contains the expected substring.
func AssertFileContains(t testing.TB, fs FileReader, path, expected string, msgAndArgs ...interface{}) {
	t.Helper()

	content, err := fs.ReadFile(path)
	require.NoError(t, err, "failed to read file: %s", path)

	assert.Contains(t, string(content), expected, msgAndArgs...)
}

// AssertFileNotContains asserts that a file does not contain the substring.
func AssertFileNotContains(t testing.TB, fs FileReader, path, unexpected string, msgAndArgs ...interface{}) {
	t.Helper()

	content, err := fs.ReadFile(path)
	require.NoError(t, err, "failed to read file: %s", path)

	assert.NotContains(t, string(content), unexpected, msgAndArgs...)
}

// AssertFileEquals asserts that a file contains exactly the expected content.
func AssertFileEquals(t testing.TB, fs FileReader, path, expected string, msgAndArgs ...interface{}) {
	t.Helper()

	content, err := fs.ReadFile(path)
	require.NoError(t, err, "failed to read file: %s", path)

	// Normalize line endings
	actual := strings.ReplaceAll(string(content), "\r\n", "\n")
	expected = strings.ReplaceAll(expected, "\r\n", "\n")

	assert.Equal(t, expected, actual, msgAndArgs...)
}
