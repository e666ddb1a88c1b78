package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/kestrel-forge/codegraphd/internal/govern"
)

type fakeSymbolSearcher struct {
	hits []SymbolHit
}

func (f *fakeSymbolSearcher) SearchSymbols(ctx context.Context, query string, limit int) ([]SymbolHit, error) {
	if limit < len(f.hits) {
		return f.hits[:limit], nil
	}
	return f.hits, nil
}

type fakeVectorSearcher struct {
	hits []VectorHit
}

func (f *fakeVectorSearcher) Search(ctx context.Context, query []float32, k int, pathPrefix string) ([]VectorHit, error) {
	var out []VectorHit
	for _, h := range f.hits {
		if pathPrefix != "" && !hasPathPrefix(h.FilePath, pathPrefix) {
			continue
		}
		out = append(out, h)
	}
	if k < len(out) {
		out = out[:k]
	}
	return out, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 2, 3}, nil
}

type fakeReranker struct {
	delay time.Duration
}

// Rerank scores documents by input position, highest first (the first
// document gets len(documents)), so the reranked order is the order the
// documents were passed in, whatever their fused scores were.
func (f fakeReranker) Rerank(ctx context.Context, query string, documents []string, topK int) ([]RerankHit, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	hits := make([]RerankHit, len(documents))
	for i := range documents {
		hits[i] = RerankHit{Index: i, Score: float64(len(documents) - i)}
	}
	return hits, nil
}

func TestSearchSymbolOnlyMode(t *testing.T) {
	e := &Engine{
		Symbols: &fakeSymbolSearcher{hits: []SymbolHit{
			{FilePath: "a.go", Name: "Foo", Kind: "func", Score: 0.9},
			{FilePath: "b.go", Name: "Bar", Kind: "func", Score: 0.5},
		}},
		Vectors: &fakeVectorSearcher{},
	}
	resp, err := e.Search(context.Background(), Request{Query: "foo", Mode: ModeSymbol, Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(resp.Results))
	}
	if resp.Results[0].Source != SourceSymbol {
		t.Fatalf("result source = %v, want symbol", resp.Results[0].Source)
	}
}

func TestSearchVectorOnlyMode(t *testing.T) {
	e := &Engine{
		Symbols:  &fakeSymbolSearcher{},
		Vectors:  &fakeVectorSearcher{hits: []VectorHit{{ChunkID: "c1", FilePath: "a.go", Score: 0.8}}},
		Embedder: fakeEmbedder{},
	}
	resp, err := e.Search(context.Background(), Request{Query: "foo", Mode: ModeVector, Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ChunkID != "c1" {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}
}

func TestSearchHybridFusionKeepsMaxScoreOnSharedChunkID(t *testing.T) {
	e := &Engine{
		Symbols: &fakeSymbolSearcher{hits: []SymbolHit{
			{FilePath: "a.go", Name: "Foo", Kind: "func", Score: 0.3},
		}},
		Vectors: &fakeVectorSearcher{hits: []VectorHit{
			{ChunkID: "a.go:func:Foo", FilePath: "a.go", SymbolName: "Foo", SymbolKind: "func", Score: 0.95},
		}},
		Embedder: fakeEmbedder{},
	}
	resp, err := e.Search(context.Background(), Request{Query: "foo", Mode: ModeHybrid, Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("got %d results, want 1 merged result", len(resp.Results))
	}
	merged := resp.Results[0]
	if merged.Score != 0.95 {
		t.Fatalf("merged score = %v, want max(0.3, 0.95) = 0.95", merged.Score)
	}
	if len(merged.Sources) != 2 {
		t.Fatalf("merged sources = %v, want both symbol and vector", merged.Sources)
	}
}

func TestSearchHybridUnionsDistinctChunkIDs(t *testing.T) {
	e := &Engine{
		Symbols: &fakeSymbolSearcher{hits: []SymbolHit{
			{FilePath: "a.go", Name: "Foo", Kind: "func", Score: 0.9},
		}},
		Vectors: &fakeVectorSearcher{hits: []VectorHit{
			{ChunkID: "b.go:1:2", FilePath: "b.go", Score: 0.5},
		}},
		Embedder: fakeEmbedder{},
	}
	resp, err := e.Search(context.Background(), Request{Query: "foo", Mode: ModeHybrid, Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2 unioned results", len(resp.Results))
	}
	if resp.Results[0].Score < resp.Results[1].Score {
		t.Fatalf("results not sorted descending by score: %+v", resp.Results)
	}
}

func TestSearchSymbolPathFilterIsApplied(t *testing.T) {
	e := &Engine{
		Symbols: &fakeSymbolSearcher{hits: []SymbolHit{
			{FilePath: "pkg/a/x.go", Name: "Foo", Kind: "func", Score: 0.9},
			{FilePath: "pkg/b/y.go", Name: "Bar", Kind: "func", Score: 0.8},
		}},
		Vectors: &fakeVectorSearcher{},
	}
	resp, err := e.Search(context.Background(), Request{Query: "foo", Mode: ModeSymbol, Limit: 10, PathFilter: "pkg/a/"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].FilePath != "pkg/a/x.go" {
		t.Fatalf("path filter not applied: %+v", resp.Results)
	}
}

func TestSearchVectorPathFilterIsApplied(t *testing.T) {
	e := &Engine{
		Symbols: &fakeSymbolSearcher{},
		Vectors: &fakeVectorSearcher{hits: []VectorHit{
			{ChunkID: "c1", FilePath: "pkg/a/x.go", Score: 0.9},
			{ChunkID: "c2", FilePath: "pkg/b/y.go", Score: 0.8},
		}},
		Embedder: fakeEmbedder{},
	}
	resp, err := e.Search(context.Background(), Request{Query: "foo", Mode: ModeVector, Limit: 10, PathFilter: "pkg/a/"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].FilePath != "pkg/a/x.go" {
		t.Fatalf("path filter not applied: %+v", resp.Results)
	}
}

func TestSearchRerankReordersResults(t *testing.T) {
	e := &Engine{
		Symbols: &fakeSymbolSearcher{hits: []SymbolHit{
			{FilePath: "a.go", Name: "Foo", Kind: "func", Score: 0.1, Signature: "low"},
			{FilePath: "b.go", Name: "Bar", Kind: "func", Score: 0.2, Signature: "high"},
		}},
		Vectors:  &fakeVectorSearcher{},
		Reranker: fakeReranker{},
	}
	resp, err := e.Search(context.Background(), Request{Query: "foo", Mode: ModeSymbol, Limit: 10, Rerank: true, Explain: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !resp.Explain.Reranked {
		t.Fatal("expected Explain.Reranked = true")
	}
	if resp.Results[0].Content != "low" {
		t.Fatalf("rerank didn't reorder by cross-encoder score: %+v", resp.Results)
	}
}

func TestSearchRerankDelayedResultIsKept(t *testing.T) {
	// The reranker sleeps 10ms, well under the 5s rerankSoftTimeout, so the
	// timeout path is not taken; the test asserts a delayed rerank still
	// returns its result rather than the result set being dropped.
	e := &Engine{
		Symbols: &fakeSymbolSearcher{hits: []SymbolHit{
			{FilePath: "a.go", Name: "Foo", Kind: "func", Score: 0.1},
		}},
		Vectors:  &fakeVectorSearcher{},
		Reranker: fakeReranker{delay: 10 * time.Millisecond},
	}
	resp, err := e.Search(context.Background(), Request{Query: "foo", Mode: ModeSymbol, Limit: 10, Rerank: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected rerank to preserve the result set, got %+v", resp.Results)
	}
}

func TestSearchVectorPathRespectsCircuitBreaker(t *testing.T) {
	breakers := govern.NewBreakers()
	e := &Engine{
		Symbols:  &fakeSymbolSearcher{},
		Vectors:  &fakeVectorSearcher{hits: []VectorHit{{ChunkID: "c1", FilePath: "a.go", Score: 0.5}}},
		Embedder: fakeEmbedder{},
		Breakers: breakers,
	}
	resp, err := e.Search(context.Background(), Request{Query: "foo", Mode: ModeVector, Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected breaker-guarded call to still succeed when closed, got %+v", resp.Results)
	}
}

func TestCacheKeyFormat(t *testing.T) {
	if got := CacheKey("foo bar", 10); got != "foo bar:10" {
		t.Fatalf("CacheKey = %q, want %q", got, "foo bar:10")
	}
}
