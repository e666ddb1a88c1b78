package relstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-forge/codegraphd/internal/parser"
)

func TestDependenciesForFileIncludesUsageItems(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := sampleDoc()
	doc.Imports = []parser.Import{
		{ModulePath: "fmt", Line: 1, Items: []string{"Println", "Sprintf"}},
		{ModulePath: "./sibling", Line: 2, Relative: true},
	}
	_, err := s.WriteFileArtifacts(ctx, "pkg/a.go", parser.LangGo, 100, "hash1", 42, doc)
	require.NoError(t, err)

	deps, err := s.DependenciesForFile(ctx, "pkg/a.go")
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, "fmt", deps[0].ModulePath)
	assert.False(t, deps[0].Relative)
	assert.ElementsMatch(t, []string{"Println", "Sprintf"}, deps[0].Items)
	assert.Equal(t, "./sibling", deps[1].ModulePath)
	assert.True(t, deps[1].Relative)
}

func TestActiveErrorsFiltersByPath(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	fileID, err := s.WriteFileArtifacts(ctx, "pkg/a.go", parser.LangGo, 100, "hash1", 42, sampleDoc())
	require.NoError(t, err)

	_, err = s.DB().ExecContext(ctx, `INSERT INTO active_errors(file_id, code, message, line, created_at) VALUES (?, ?, ?, ?, 0)`,
		fileID, "E001", "unused import", 1)
	require.NoError(t, err)

	all, err := s.ActiveErrors(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "pkg/a.go", all[0].FilePath)
	assert.Equal(t, "E001", all[0].Code)

	scoped, err := s.ActiveErrors(ctx, "pkg/a.go")
	require.NoError(t, err)
	assert.Len(t, scoped, 1)

	none, err := s.ActiveErrors(ctx, "pkg/other.go")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFileSummaryNotYetGenerated(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.WriteFileArtifacts(ctx, "pkg/a.go", parser.LangGo, 100, "hash1", 42, sampleDoc())
	require.NoError(t, err)

	_, ok, err := s.FileSummary(ctx, "pkg/a.go")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.DB().ExecContext(ctx, `
		INSERT INTO file_summaries(file_id, summary, model, generated_at)
		SELECT id, 'does a thing', 'static', 0 FROM files WHERE path = ?`, "pkg/a.go")
	require.NoError(t, err)

	summary, ok, err := s.FileSummary(ctx, "pkg/a.go")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "does a thing", summary)
}

func TestFindSymbolIDFindsKnownNameAndMissesUnknown(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.WriteFileArtifacts(ctx, "pkg/a.go", parser.LangGo, 100, "hash1", 42, sampleDoc())
	require.NoError(t, err)

	id, ok, err := s.FindSymbolID(ctx, "Helper")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Positive(t, id)

	_, ok, err = s.FindSymbolID(ctx, "NoSuchSymbol")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAllEntityLinks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.ReplaceEntityLinks(ctx, []EntityLink{
		{FromKind: "route", FromRef: "GET /users", ToKind: "call", ToRef: "api.getUsers", Confidence: 0.9, LinkType: "route"},
	})
	require.NoError(t, err)

	links, err := s.AllEntityLinks(ctx)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "GET /users", links[0].FromRef)
	assert.Equal(t, "api.getUsers", links[0].ToRef)
}

func TestAllStructuralLinks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := sampleDoc()
	doc.Fingerprints = []parser.Fingerprint{
		{Name: "User", Language: parser.LangGo, Fields: []parser.FingerprintField{
			{Name: "ID", Type: "int", Normalized: "id"},
			{Name: "Name", Type: "string", Normalized: "name"},
			{Name: "Email", Type: "string", Normalized: "email"},
		}},
	}
	_, err := s.WriteFileArtifacts(ctx, "pkg/a.go", parser.LangGo, 100, "hash1", 42, doc)
	require.NoError(t, err)

	frontendDoc := sampleDoc()
	frontendDoc.Path = "web/user.ts"
	frontendDoc.Fingerprints = []parser.Fingerprint{
		{Name: "UserDTO", Language: parser.LangTypeScript, Fields: []parser.FingerprintField{
			{Name: "id", Type: "number", Normalized: "id"},
			{Name: "name", Type: "string", Normalized: "name"},
			{Name: "email", Type: "string", Normalized: "email"},
		}},
	}
	_, err = s.WriteFileArtifacts(ctx, "web/user.ts", parser.LangTypeScript, 100, "hash2", 42, frontendDoc)
	require.NoError(t, err)

	fps, err := s.AllTypeFingerprints(ctx)
	require.NoError(t, err)
	require.Len(t, fps, 2)

	err = s.InsertCrossStackLink(ctx, fps[0].ID, fps[1].ID, 1.0)
	require.NoError(t, err)

	structural, err := s.AllStructuralLinks(ctx)
	require.NoError(t, err)
	require.Len(t, structural, 1)
	assert.Equal(t, "User", structural[0].LeftName)
	assert.Equal(t, "UserDTO", structural[0].RightName)
	assert.Equal(t, 1.0, structural[0].Similarity)
}

func TestAllFileLanguagesAndSymbolsForFile(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.WriteFileArtifacts(ctx, "pkg/a.go", parser.LangGo, 100, "hash1", 42, sampleDoc())
	require.NoError(t, err)

	langs, err := s.AllFileLanguages(ctx)
	require.NoError(t, err)
	require.Len(t, langs, 1)
	assert.Equal(t, "pkg/a.go", langs[0].Path)
	assert.Equal(t, string(parser.LangGo), langs[0].Language)

	symbols, err := s.SymbolsForFile(ctx, "pkg/a.go")
	require.NoError(t, err)
	require.Len(t, symbols, 2)
	assert.Equal(t, "Helper", symbols[0].Name)
	assert.Equal(t, "Caller", symbols[1].Name)
}
