package retrieval

import (
	"context"
	"fmt"

	"github.com/kestrel-forge/codegraphd/internal/apperr"
	"github.com/kestrel-forge/codegraphd/internal/govern"
)

// vectorRefineFactor over-fetches candidates from the ANN index before
// any path filter narrows them, the same over-fetch strategy symbol
// search uses, applied here to the ANN's k rather than to relstore's
// limit.
const vectorRefineFactor = 4

// searchVector runs the vector path: embed the query text
// (circuit-breaker guarded), then search the vector index with a path
// filter and refine factor (also circuit-breaker guarded).
func searchVector(ctx context.Context, embed QueryEmbedder, store VectorSearcher, breakers *govern.Breakers, query string, limit int, pathFilter string) ([]Result, error) {
	vec, err := embedQueryWithBreaker(ctx, embed, breakers, query)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed query: %w", err)
	}

	k := limit * vectorRefineFactor
	if k < limit {
		k = limit
	}

	hits, err := searchVectorWithBreaker(ctx, store, breakers, vec, k, pathFilter)
	if err != nil {
		return nil, fmt.Errorf("retrieval: vector search: %w", err)
	}

	if len(hits) > limit {
		hits = hits[:limit]
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{
			ChunkID:    h.ChunkID,
			FilePath:   h.FilePath,
			Content:    h.Content,
			LineStart:  h.LineStart,
			LineEnd:    h.LineEnd,
			SymbolName: h.SymbolName,
			SymbolKind: h.SymbolKind,
			Score:      float64(h.Score),
			Source:     SourceVector,
			Sources:    []Source{SourceVector},
		})
	}
	return results, nil
}

func embedQueryWithBreaker(ctx context.Context, embed QueryEmbedder, breakers *govern.Breakers, query string) ([]float32, error) {
	if breakers == nil || breakers.Embedding == nil {
		return embed.Embed(ctx, query)
	}
	fallback := func() ([]float32, error) { return nil, apperr.ErrCircuitOpen }
	return apperr.ExecuteWithResult(breakers.Embedding, func() ([]float32, error) {
		return embed.Embed(ctx, query)
	}, fallback)
}

func searchVectorWithBreaker(ctx context.Context, store VectorSearcher, breakers *govern.Breakers, vec []float32, k int, pathFilter string) ([]VectorHit, error) {
	if breakers == nil || breakers.Vector == nil {
		return store.Search(ctx, vec, k, pathFilter)
	}
	fallback := func() ([]VectorHit, error) { return nil, apperr.ErrCircuitOpen }
	return apperr.ExecuteWithResult(breakers.Vector, func() ([]VectorHit, error) {
		return store.Search(ctx, vec, k, pathFilter)
	}, fallback)
}
