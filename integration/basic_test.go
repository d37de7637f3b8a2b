//go:build basic

package integration

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestPolycacheBasicCommands smoke-tests the CLI with the default file
// backend against a throwaway cache root.
func TestPolycacheBasicCommands(t *testing.T) {
	root := t.TempDir()

	err := runPolycacheCommand(t, "--cache-root", root, "version")
	require.NoError(t, err)

	err = runPolycacheCommand(t, "--cache-root", root, "cache", "status")
	require.NoError(t, err)

	err = runPolycacheCommand(t, "--cache-root", root, "cache", "list")
	require.NoError(t, err)

	err = runPolycacheCommand(t, "--cache-root", root, "cache", "clear")
	require.NoError(t, err)
}
