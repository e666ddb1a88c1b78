package daemon

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestProject registers a fresh project rooted at a temp directory
// containing one Go source file, runs a full sync, and returns the open
// Project plus its daemon home (for Close).
func newTestProject(t *testing.T) (*Project, string) {
	t.Helper()
	ctx := context.Background()

	home := t.TempDir()
	projectDir := t.TempDir()

	source := "package sample\n\nfunc Helper() int {\n\treturn 1\n}\n\nfunc Caller() int {\n\treturn Helper()\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "sample.go"), []byte(source), 0o644))

	registry := NewRegistry(home, nil)
	p, err := registry.Register(ctx, projectDir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close(home) })

	_, err = p.Sync(ctx, home)
	require.NoError(t, err)

	return p, home
}

func mustArgs(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestDispatchToolReadFile(t *testing.T) {
	p, _ := newTestProject(t)
	ctx := context.Background()

	result, err := dispatchTool(ctx, p, ToolReadFile, mustArgs(t, pathArgs{Path: "sample.go"}))
	require.NoError(t, err)
	m := result.(map[string]any)
	assert.Contains(t, m["content"], "func Helper")
}

func TestDispatchToolSkeletonIsCachedAcrossCalls(t *testing.T) {
	p, _ := newTestProject(t)
	ctx := context.Background()

	first, err := dispatchTool(ctx, p, ToolSkeleton, mustArgs(t, pathArgs{Path: "sample.go"}))
	require.NoError(t, err)
	second, err := dispatchTool(ctx, p, ToolSkeleton, mustArgs(t, pathArgs{Path: "sample.go"}))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDispatchToolGrepFindsMatch(t *testing.T) {
	p, _ := newTestProject(t)
	ctx := context.Background()

	result, err := dispatchTool(ctx, p, ToolGrep, mustArgs(t, grepArgs{Pattern: "func Helper"}))
	require.NoError(t, err)
	m := result.(map[string]any)
	matches := m["matches"].([]grepMatch)
	require.Len(t, matches, 1)
	assert.Equal(t, "sample.go", matches[0].Path)
}

func TestDispatchToolFindFilesMatchesGlob(t *testing.T) {
	p, _ := newTestProject(t)
	ctx := context.Background()

	result, err := dispatchTool(ctx, p, ToolFindFiles, mustArgs(t, findFilesArgs{Pattern: "*.go"}))
	require.NoError(t, err)
	m := result.(map[string]any)
	paths := m["paths"].([]string)
	assert.Contains(t, paths, "sample.go")
}

func TestDispatchToolReadFunctionContextCollectsCallees(t *testing.T) {
	p, _ := newTestProject(t)
	ctx := context.Background()

	result, err := dispatchTool(ctx, p, ToolReadFunctionContext, mustArgs(t, symbolNameArgs{Path: "sample.go", SymbolName: "Caller"}))
	require.NoError(t, err)
	m := result.(map[string]any)
	assert.Equal(t, []string{"Helper"}, m["callees"])
}

func TestDispatchToolReadFunctionContextUnknownSymbol(t *testing.T) {
	p, _ := newTestProject(t)
	ctx := context.Background()

	_, err := dispatchTool(ctx, p, ToolReadFunctionContext, mustArgs(t, symbolNameArgs{Path: "sample.go", SymbolName: "Nope"}))
	require.Error(t, err)
	var nf notFoundError
	require.ErrorAs(t, err, &nf)
}

func TestDispatchToolSymbolsAndReferences(t *testing.T) {
	p, _ := newTestProject(t)
	ctx := context.Background()

	symResult, err := dispatchTool(ctx, p, ToolSymbols, mustArgs(t, symbolsArgs{Query: "Helper"}))
	require.NoError(t, err)
	require.NotEmpty(t, symResult.(map[string]any)["symbols"])

	refResult, err := dispatchTool(ctx, p, ToolReferences, mustArgs(t, referencesArgs{SymbolName: "Helper"}))
	require.NoError(t, err)
	require.NotEmpty(t, refResult.(map[string]any)["references"])

	_, err = dispatchTool(ctx, p, ToolReferences, mustArgs(t, referencesArgs{SymbolName: "DoesNotExist"}))
	require.Error(t, err)
	var nf notFoundError
	require.ErrorAs(t, err, &nf)
}

func TestDispatchToolDomainStatsFillsZeroCounts(t *testing.T) {
	p, _ := newTestProject(t)
	ctx := context.Background()

	result, err := dispatchTool(ctx, p, ToolDomainStats, nil)
	require.NoError(t, err)
	counts := result.(map[string]any)["counts"].(map[string]int)
	assert.Contains(t, counts, "backend")
	assert.Contains(t, counts, "frontend")
	assert.Contains(t, counts, "shared")
	assert.Contains(t, counts, "ops")
}

func TestDispatchToolUnknownToolErrors(t *testing.T) {
	p, _ := newTestProject(t)
	ctx := context.Background()

	_, err := dispatchTool(ctx, p, "not-a-real-tool", nil)
	require.Error(t, err)
}

func TestDispatchToolRustAnalyzerIsNotAvailable(t *testing.T) {
	p, _ := newTestProject(t)
	ctx := context.Background()

	_, err := dispatchTool(ctx, p, "rust-analyzer/hover", nil)
	require.Error(t, err)
	var na notAvailableError
	require.ErrorAs(t, err, &na)
}

func TestDispatchToolCrossStackEmptyByDefault(t *testing.T) {
	p, _ := newTestProject(t)
	ctx := context.Background()

	result, err := dispatchTool(ctx, p, ToolCrossStack, nil)
	require.NoError(t, err)
	m := result.(map[string]any)
	assert.Empty(t, m["entity_links"])
	assert.Empty(t, m["structural_links"])
}
