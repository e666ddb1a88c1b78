package retrieval

import (
	"context"
	"fmt"

	"github.com/kestrel-forge/codegraphd/internal/govern"
)

// Engine is the top-level hybrid retrieval entry point.
type Engine struct {
	Symbols  SymbolSearcher
	Vectors  VectorSearcher
	Embedder QueryEmbedder
	Reranker Reranker // optional; nil disables Request.Rerank
	Breakers *govern.Breakers
}

// Search dispatches req down its requested path(s), fuses hybrid results,
// and optionally reranks.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	if req.Limit <= 0 {
		req.Limit = 10
	}

	var symbolResults, vectorResults []Result
	var err error

	if req.Mode == ModeSymbol || req.Mode == ModeHybrid {
		symbolResults, err = searchSymbols(ctx, e.Symbols, req.Query, req.Limit, req.PathFilter)
		if err != nil {
			return nil, fmt.Errorf("retrieval: symbol search: %w", err)
		}
	}
	if req.Mode == ModeVector || req.Mode == ModeHybrid {
		vectorResults, err = searchVector(ctx, e.Embedder, e.Vectors, e.Breakers, req.Query, req.Limit, req.PathFilter)
		if err != nil {
			return nil, fmt.Errorf("retrieval: vector search: %w", err)
		}
	}

	var results []Result
	switch req.Mode {
	case ModeSymbol:
		results = symbolResults
	case ModeVector:
		results = vectorResults
	default:
		results = fuse(symbolResults, vectorResults)
	}

	reranked := false
	rerankTimedOut := false
	if req.Rerank && e.Reranker != nil && len(results) > 0 {
		results, rerankTimedOut, err = rerank(ctx, e.Reranker, req.Query, results)
		if err != nil {
			return nil, fmt.Errorf("retrieval: rerank: %w", err)
		}
		reranked = true
	}

	if len(results) > req.Limit {
		results = results[:req.Limit]
	}

	resp := &Response{Results: results}
	if req.Explain {
		resp.Explain = &Explain{
			Query:             req.Query,
			Mode:              req.Mode,
			SymbolResultCount: len(symbolResults),
			VectorResultCount: len(vectorResults),
			Reranked:          reranked,
			RerankTimedOut:    rerankTimedOut,
			FusionCandidates:  len(symbolResults) + len(vectorResults),
		}
	}
	return resp, nil
}

// CacheKey builds the literal cache key format for the request cache
// manager's SearchJSON entries: "{query}:{limit}".
func CacheKey(query string, limit int) string {
	return fmt.Sprintf("%s:%d", query, limit)
}
