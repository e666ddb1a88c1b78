package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunHealthWithNoDaemonRunning(t *testing.T) {
	socketPath = filepath.Join(t.TempDir(), "nonexistent.sock")

	cmd := newHealthCmd()
	require.Error(t, runHealth(cmd))
}
