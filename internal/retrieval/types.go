// Package retrieval implements the daemon's hybrid retrieval engine: a
// search request is dispatched down a symbol (FTS) path, a vector (ANN)
// path, or both, and — in hybrid mode — the two result sets are fused by
// union with max-score merge on identical chunk ids, with an optional
// cross-encoder rerank pass over the fused candidates.
package retrieval

import (
	"context"
	"time"
)

// Mode selects which retrieval path(s) a Search runs.
type Mode string

const (
	ModeSymbol Mode = "symbol"
	ModeVector Mode = "vector"
	ModeHybrid Mode = "hybrid"
)

// Source tags which path produced a Result, for explain mode and for the
// max-score merge rule during hybrid fusion.
type Source string

const (
	SourceSymbol Source = "symbol"
	SourceVector Source = "vector"
)

// Request is one hybrid retrieval query.
type Request struct {
	Query      string
	Limit      int
	Mode       Mode
	PathFilter string
	Rerank     bool
	Explain    bool
}

// Result is one ranked hit, already normalized to a positive-is-better
// score regardless of which path produced it.
type Result struct {
	ChunkID     string
	FilePath    string
	Content     string
	LineStart   int
	LineEnd     int
	SymbolName  string
	SymbolKind  string
	Score       float64
	Source      Source // dominant source after fusion; see Sources for both
	Sources     []Source
	RerankScore float64 // set only when reranking ran
}

// Explain carries the per-path diagnostics explain mode exposes: result
// counts from each path and from fusion, and whether reranking ran or
// overran its soft timeout. Per-result scores are not included.
type Explain struct {
	Query             string
	Mode              Mode
	SymbolResultCount int
	VectorResultCount int
	Reranked          bool
	RerankTimedOut    bool
	FusionCandidates  int
}

// Response is what Search returns.
type Response struct {
	Results []Result
	Explain *Explain // non-nil only when Request.Explain is true
}

// rerankSoftTimeout is how long the rerank call is given to return before
// the soft-timeout warning fires; the timeout is soft, not aborted, so
// its result is still used whenever it eventually completes.
const rerankSoftTimeout = 5 * time.Second

// rerankCandidateCap is the fused candidate set's truncation limit
// before reranking runs.
const rerankCandidateCap = 100

// SymbolSearcher is the slice of relstore.Store the symbol path needs.
type SymbolSearcher interface {
	SearchSymbols(ctx context.Context, query string, limit int) ([]SymbolHit, error)
}

// SymbolHit mirrors relstore.SymbolHit.
type SymbolHit struct {
	SymbolID  int64
	FilePath  string
	Name      string
	Kind      string
	Signature string
	LineStart int
	LineEnd   int
	Score     float64
}

// VectorSearcher is the slice of vecstore.Store the vector path needs.
type VectorSearcher interface {
	Search(ctx context.Context, query []float32, k int, pathPrefix string) ([]VectorHit, error)
}

// VectorHit mirrors vecstore.Result.
type VectorHit struct {
	ChunkID    string
	FilePath   string
	Content    string
	LineStart  int
	LineEnd    int
	SymbolName string
	SymbolKind string
	Score      float32
}

// QueryEmbedder is the slice of embedpool.Pool the vector path needs to
// turn a text query into a vector.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Reranker is the slice of a cross-encoder reranker the optional rerank
// stage needs.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topK int) ([]RerankHit, error)
}

// RerankHit is one cross-encoder score, referencing its candidate by index
// into the slice passed to Rerank.
type RerankHit struct {
	Index int
	Score float64
}
