package pipeline

import (
	"context"

	"github.com/kestrel-forge/codegraphd/internal/apperr"
	"github.com/kestrel-forge/codegraphd/internal/govern"
)

// EmbeddedBatch is a Batch whose chunks now carry resolved vectors, still
// grouped with their originating ParsedFiles for the writer stage.
type EmbeddedBatch struct {
	Chunks []EmbeddedChunk
	Files  map[string]*ParsedFile
}

// runEmbedder resolves a vector for every chunk in each incoming batch.
// The content-hash cache is checked first, keyed on (content hash, model
// version); only cache misses are sent to the embedder pool, and every
// dispatch goes through the embedding circuit breaker so a failing
// provider degrades the same way a failing vector search does.
func runEmbedder(ctx context.Context, in <-chan Batch, embed Embedder, cache RelationalStore, breaker *govern.Breakers, stats *Result) <-chan EmbeddedBatch {
	out := make(chan EmbeddedBatch, embedChannelCap)

	go func() {
		defer close(out)

		model := embed.ModelName()

		for batch := range in {
			select {
			case <-ctx.Done():
				return
			default:
			}

			embedded := make([]EmbeddedChunk, len(batch.Chunks))
			var missIdx []int
			var missTexts []string

			for i, cu := range batch.Chunks {
				raw, ok, err := cache.CacheLookup(ctx, cu.chunk.ID, cu.file.ContentHash, model)
				if err == nil && ok {
					vec, decErr := decodeVector(raw)
					if decErr == nil {
						embedded[i] = EmbeddedChunk{File: cu.file, Chunk: cu.chunk, Vector: vec}
						stats.CacheHits++
						continue
					}
				}
				stats.CacheMisses++
				missIdx = append(missIdx, i)
				missTexts = append(missTexts, cu.chunk.Content)
			}

			if len(missTexts) > 0 {
				vectors, err := embedMissesWithBreaker(ctx, embed, breaker, missTexts)
				if err != nil {
					// Drop this batch's misses rather than abort the whole
					// run — the writer simply sees fewer vectors this pass,
					// and a future reindex will retry them.
					missIdx = nil
				}
				for j, idx := range missIdx {
					cu := batch.Chunks[idx]
					vec := vectors[j]
					embedded[idx] = EmbeddedChunk{File: cu.file, Chunk: cu.chunk, Vector: vec}
					_ = cache.CachePut(ctx, cu.chunk.ID, cu.file.ContentHash, model, encodeVector(vec))
				}
			}

			result := EmbeddedBatch{Chunks: make([]EmbeddedChunk, 0, len(embedded)), Files: batch.Files}
			for _, ec := range embedded {
				if ec.Vector != nil {
					result.Chunks = append(result.Chunks, ec)
				}
			}

			select {
			case out <- result:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func embedMissesWithBreaker(ctx context.Context, embed Embedder, breaker *govern.Breakers, texts []string) ([][]float32, error) {
	if breaker == nil {
		return embed.EmbedBatch(ctx, texts)
	}
	return apperr.ExecuteWithResult(breaker.Embedding,
		func() ([][]float32, error) { return embed.EmbedBatch(ctx, texts) },
		func() ([][]float32, error) { return nil, apperr.ErrCircuitOpen })
}
