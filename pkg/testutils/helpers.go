// Package testutils holds helpers shared by command and UI tests.
package testutils

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteFile writes content to name under dir and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

var ansiSeq = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]|\x1b\][^\x07]*\x07`)

// StripANSI removes terminal escape sequences so rendered output can be
// compared as plain text.
func StripANSI(s string) string {
	return ansiSeq.ReplaceAllString(s, "")
}
