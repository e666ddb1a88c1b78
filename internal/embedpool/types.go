// Package embedpool manages a pool of embedding model instances shared
// across the indexing pipeline and the retrieval path (component C2): a
// resizable round-robin pool of providers, with concurrent embeddings
// bounded by one pool-wide semaphore.
package embedpool

import (
	"context"
	"math"
)

// Embedder generates vector embeddings for text. Implementations must be
// safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
	Available(ctx context.Context) bool
	Close() error
}

// normalizeVector scales v to unit length, leaving zero vectors untouched.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, val := range v {
		out[i] = float32(float64(val) / magnitude)
	}
	return out
}
