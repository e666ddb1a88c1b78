package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStatusWithNoDaemonRunning(t *testing.T) {
	socketPath = filepath.Join(t.TempDir(), "nonexistent.sock")

	cmd := newStatusCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	require.NoError(t, runStatus(cmd, false))
	assert.Contains(t, buf.String(), "daemon is not running")
}

func TestRunStatusJSONWithNoDaemonRunning(t *testing.T) {
	socketPath = filepath.Join(t.TempDir(), "nonexistent.sock")

	cmd := newStatusCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	require.NoError(t, runStatus(cmd, true))
	assert.Contains(t, buf.String(), `"running":false`)
}
