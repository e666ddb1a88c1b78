package daemon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPIDFileWriteReadRemove(t *testing.T) {
	dir := t.TempDir()
	pf := NewPIDFile(filepath.Join(dir, "nested", "daemon.pid"))

	_, err := pf.Read()
	require.ErrorIs(t, err, ErrPIDFileNotFound)
	require.False(t, pf.IsRunning())

	require.NoError(t, pf.Write())
	pid, err := pf.Read()
	require.NoError(t, err)
	require.Greater(t, pid, 0)
	require.True(t, pf.IsRunning())

	require.NoError(t, pf.Remove())
	require.NoError(t, pf.Remove()) // idempotent
	_, err = pf.Read()
	require.ErrorIs(t, err, ErrPIDFileNotFound)
}

func TestPIDFileInvalidContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daemon.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0o644))

	pf := NewPIDFile(path)
	_, err := pf.Read()
	require.Error(t, err)
}
