package daemon

import (
	"context"

	"github.com/kestrel-forge/codegraphd/internal/crossstack"
	"github.com/kestrel-forge/codegraphd/internal/pipeline"
	"github.com/kestrel-forge/codegraphd/internal/relstore"
	"github.com/kestrel-forge/codegraphd/internal/retrieval"
	"github.com/kestrel-forge/codegraphd/internal/vecstore"
)

// crossStackStore adapts relstore.Store to crossstack.Store. Clear/Insert
// match directly (built-in params only) and are inherited through
// embedding; the three "load everything" readers need their row types
// converted from relstore's to crossstack's.
type crossStackStore struct{ *relstore.Store }

func (c crossStackStore) AllAPIEndpoints(ctx context.Context) ([]crossstack.StoredRoute, error) {
	rows, err := c.Store.AllAPIEndpoints(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]crossstack.StoredRoute, len(rows))
	for i, r := range rows {
		out[i] = crossstack.StoredRoute{
			FileID: r.FileID, Method: r.Method, Path: r.Path,
			HandlerSymbol: r.HandlerSymbol, Framework: r.Framework,
		}
	}
	return out, nil
}

func (c crossStackStore) AllFrontendAPICalls(ctx context.Context) ([]crossstack.StoredCall, error) {
	rows, err := c.Store.AllFrontendAPICalls(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]crossstack.StoredCall, len(rows))
	for i, r := range rows {
		out[i] = crossstack.StoredCall{FileID: r.FileID, Method: r.Method, Path: r.Path}
	}
	return out, nil
}

func (c crossStackStore) AllTypeFingerprints(ctx context.Context) ([]crossstack.Fingerprint, error) {
	rows, err := c.Store.AllTypeFingerprints(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]crossstack.Fingerprint, len(rows))
	for i, r := range rows {
		out[i] = crossstack.Fingerprint{
			ID: r.ID, FileID: r.FileID, Name: r.Name,
			Language: r.Language, NormalizedFields: r.NormalizedFields,
		}
	}
	return out, nil
}

func (c crossStackStore) ReplaceEntityLinks(ctx context.Context, links []crossstack.EntityLink) error {
	out := make([]relstore.EntityLink, len(links))
	for i, l := range links {
		out[i] = relstore.EntityLink{
			FromKind: l.FromKind, FromRef: l.FromRef,
			ToKind: l.ToKind, ToRef: l.ToRef,
			Confidence: l.Confidence, LinkType: l.LinkType,
		}
	}
	return c.Store.ReplaceEntityLinks(ctx, out)
}

// relationalStore adapts relstore.Store to pipeline.RelationalStore.
// Every method but GetFile matches pipeline's interface signature
// directly (they're declared over the same parser/built-in types) and is
// inherited unchanged through embedding; only GetFile's return type
// (relstore.FileRecord vs pipeline.FileRecord) needs converting.
type relationalStore struct{ *relstore.Store }

func (r relationalStore) GetFile(ctx context.Context, path string) (pipeline.FileRecord, bool, error) {
	rec, ok, err := r.Store.GetFile(ctx, path)
	return pipeline.FileRecord{Mtime: rec.Mtime, ContentHash: rec.ContentHash}, ok, err
}

// vectorStore adapts vecstore.Store to pipeline.VectorStore. DeleteByPaths
// matches directly and is inherited through embedding; the other three
// methods take/return types that need converting at the seam.
type vectorStore struct{ *vecstore.Store }

func (v vectorStore) UpsertChunks(ctx context.Context, chunks []pipeline.VectorChunk) error {
	out := make([]vecstore.Chunk, len(chunks))
	for i, c := range chunks {
		out[i] = vecstore.Chunk{
			ID:         c.ID,
			FilePath:   c.FilePath,
			Content:    c.Content,
			LineStart:  c.LineStart,
			LineEnd:    c.LineEnd,
			SymbolName: c.SymbolName,
			SymbolKind: c.SymbolKind,
			SymbolPath: c.SymbolPath,
			Vector:     c.Vector,
		}
	}
	return v.Store.UpsertChunks(ctx, out)
}

func (v vectorStore) ShouldCompact(ctx context.Context, meta pipeline.MetadataStore) (bool, error) {
	return v.Store.ShouldCompact(ctx, meta)
}

func (v vectorStore) Compact(ctx context.Context, meta pipeline.MetadataStore) error {
	return v.Store.Compact(ctx, meta)
}

// symbolSearcher adapts relstore.Store to retrieval.SymbolSearcher: both
// packages define their own SymbolHit (by design — each keeps its
// interface boundary self-contained, see pipeline.FileRecord's doc
// comment for the same pattern), so the two shapes need converting at the
// seam rather than sharing a type.
type symbolSearcher struct{ store *relstore.Store }

func (a symbolSearcher) SearchSymbols(ctx context.Context, query string, limit int) ([]retrieval.SymbolHit, error) {
	hits, err := a.store.SearchSymbols(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]retrieval.SymbolHit, len(hits))
	for i, h := range hits {
		out[i] = retrieval.SymbolHit{
			SymbolID:  h.SymbolID,
			FilePath:  h.FilePath,
			Name:      h.Name,
			Kind:      h.Kind,
			Signature: h.Signature,
			LineStart: h.LineStart,
			LineEnd:   h.LineEnd,
			Score:     h.Score,
		}
	}
	return out, nil
}

// vectorSearcher adapts vecstore.Store to retrieval.VectorSearcher.
type vectorSearcher struct{ store *vecstore.Store }

func (a vectorSearcher) Search(ctx context.Context, query []float32, k int, pathPrefix string) ([]retrieval.VectorHit, error) {
	results, err := a.store.Search(ctx, query, k, pathPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]retrieval.VectorHit, len(results))
	for i, r := range results {
		out[i] = retrieval.VectorHit{
			ChunkID:    r.Chunk.ID,
			FilePath:   r.Chunk.FilePath,
			Content:    r.Chunk.Content,
			LineStart:  r.Chunk.LineStart,
			LineEnd:    r.Chunk.LineEnd,
			SymbolName: r.Chunk.SymbolName,
			SymbolKind: r.Chunk.SymbolKind,
			Score:      r.Score,
		}
	}
	return out, nil
}
