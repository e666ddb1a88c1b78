package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIsRunningFalseWithNoDaemon(t *testing.T) {
	client := NewClient(filepath.Join(t.TempDir(), "nonexistent.sock"))
	assert.False(t, client.IsRunning())
}

func TestClientStatusHealthAndRegister(t *testing.T) {
	socketPath, cancel := startTestServer(t)
	defer cancel()

	client := NewClient(socketPath)
	require.True(t, client.IsRunning())

	health, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, health.SocketBound)

	status, err := client.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, status.ProjectsLoaded)

	projectDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "a.go"), []byte("package a\n"), 0o644))

	project, err := client.RegisterProject(context.Background(), projectDir)
	require.NoError(t, err)
	assert.NotEmpty(t, project.ProjectUUID)

	status, err = client.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, status.ProjectsLoaded)
}

func TestClientReindexReturnsCounts(t *testing.T) {
	socketPath, cancel := startTestServer(t)
	defer cancel()

	client := NewClient(socketPath)
	projectDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "a.go"), []byte("package a\n\nfunc F() {}\n"), 0o644))

	_, err := client.RegisterProject(context.Background(), projectDir)
	require.NoError(t, err)

	result, err := client.Reindex(context.Background(), projectDir, "", false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesParsed)
}

func TestClientCallSurfacesRPCError(t *testing.T) {
	socketPath, cancel := startTestServer(t)
	defer cancel()

	client := NewClient(socketPath)
	_, err := client.Reindex(context.Background(), "/not/registered", "", false)
	require.Error(t, err)
}
