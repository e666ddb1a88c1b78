package relstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-forge/codegraphd/internal/parser"
)

func TestWriteFileArtifactsPersistsTypeFingerprints(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := sampleDoc()
	doc.Fingerprints = []parser.Fingerprint{
		{
			Name:     "User",
			Language: parser.LangGo,
			Fields: []parser.FingerprintField{
				{Name: "ID", Type: "int64", Normalized: "id"},
				{Name: "Name", Type: "string", Normalized: "name"},
				{Name: "Email", Type: "string", Normalized: "email"},
			},
		},
	}

	_, err := s.WriteFileArtifacts(ctx, "pkg/a.go", parser.LangGo, 100, "hash1", 42, doc)
	require.NoError(t, err)

	fps, err := s.AllTypeFingerprints(ctx)
	require.NoError(t, err)
	require.Len(t, fps, 1)
	assert.Equal(t, "User", fps[0].Name)
	assert.Equal(t, []string{"id", "name", "email"}, fps[0].NormalizedFields)
}

func TestWriteFileArtifactsReplacesFingerprintsOnReindex(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := sampleDoc()
	doc.Fingerprints = []parser.Fingerprint{{Name: "Old", Language: parser.LangGo, Fields: []parser.FingerprintField{
		{Normalized: "a"}, {Normalized: "b"}, {Normalized: "c"},
	}}}
	_, err := s.WriteFileArtifacts(ctx, "pkg/a.go", parser.LangGo, 100, "hash1", 42, doc)
	require.NoError(t, err)

	doc2 := sampleDoc()
	doc2.Fingerprints = []parser.Fingerprint{{Name: "New", Language: parser.LangGo, Fields: []parser.FingerprintField{
		{Normalized: "x"}, {Normalized: "y"}, {Normalized: "z"},
	}}}
	_, err = s.WriteFileArtifacts(ctx, "pkg/a.go", parser.LangGo, 200, "hash2", 42, doc2)
	require.NoError(t, err)

	fps, err := s.AllTypeFingerprints(ctx)
	require.NoError(t, err)
	require.Len(t, fps, 1)
	assert.Equal(t, "New", fps[0].Name)
}

func TestReplaceAPIEndpointsAndFrontendAPICalls(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	fileID, err := s.WriteFileArtifacts(ctx, "routes.js", parser.LangJavaScript, 100, "hash1", 10, sampleDoc())
	require.NoError(t, err)

	err = s.ReplaceAPIEndpoints(ctx, fileID, []APIEndpoint{
		{FileID: fileID, Method: "GET", Path: "/api/users/:id", HandlerSymbol: "getUser", Line: 3, Framework: "express"},
	})
	require.NoError(t, err)

	err = s.ReplaceFrontendAPICalls(ctx, fileID, []FrontendAPICall{
		{FileID: fileID, Method: "GET", Path: "/api/users/:param", Line: 12},
	})
	require.NoError(t, err)

	endpoints, err := s.AllAPIEndpoints(ctx)
	require.NoError(t, err)
	require.Len(t, endpoints, 1)
	assert.Equal(t, "getUser", endpoints[0].HandlerSymbol)

	calls, err := s.AllFrontendAPICalls(ctx)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "/api/users/:param", calls[0].Path)
}

func TestReplaceEntityLinksClearsPreviousRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.ReplaceEntityLinks(ctx, []EntityLink{
		{FromKind: "api_endpoint", FromRef: "1:GET:/a", ToKind: "frontend_api_call", ToRef: "2:GET:/a", Confidence: 0.8, LinkType: "api_route"},
	})
	require.NoError(t, err)

	err = s.ReplaceEntityLinks(ctx, []EntityLink{
		{FromKind: "api_endpoint", FromRef: "3:GET:/b", ToKind: "frontend_api_call", ToRef: "4:GET:/b", Confidence: 0.8, LinkType: "api_route"},
	})
	require.NoError(t, err)

	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entity_links`)
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 1, count)
}

func TestInsertAndClearCrossStackLinks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := sampleDoc()
	doc.Fingerprints = []parser.Fingerprint{
		{Name: "A", Language: parser.LangGo, Fields: []parser.FingerprintField{{Normalized: "x"}, {Normalized: "y"}, {Normalized: "z"}}},
	}
	_, err := s.WriteFileArtifacts(ctx, "pkg/a.go", parser.LangGo, 100, "hash1", 42, doc)
	require.NoError(t, err)

	fps, err := s.AllTypeFingerprints(ctx)
	require.NoError(t, err)
	require.Len(t, fps, 1)

	err = s.InsertCrossStackLink(ctx, fps[0].ID, fps[0].ID, 1.0)
	require.NoError(t, err)

	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cross_stack_links`)
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 1, count)

	require.NoError(t, s.ClearCrossStackLinks(ctx))
	row = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cross_stack_links`)
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 0, count)
}
