package pipeline

import (
	"context"

	"github.com/kestrel-forge/codegraphd/internal/govern"
)

// writerFileGroupSize is the minimum number of files buffered before the
// writer flushes their relational artifacts as one transaction group.
// Vector writes are never buffered this way — each batch's chunks are
// upserted into vecstore immediately, since search must see new chunks
// as soon as they're embedded rather than waiting on a same-sized
// relational group.
const writerFileGroupSize = 100

// runWriter drains embedded batches, upserting their chunks into vec
// immediately and buffering relational artifact writes until
// writerFileGroupSize distinct files have accumulated (or the channel
// closes, whichever comes first).
func runWriter(ctx context.Context, in <-chan EmbeddedBatch, rel RelationalStore, vec VectorStore, breaker *govern.Breakers, stats *Result) error {
	pending := make(map[string]*ParsedFile, writerFileGroupSize)

	flushRelational := func() error {
		for path, pf := range pending {
			if _, err := rel.WriteFileArtifacts(ctx, path, pf.Task.Language, pf.Task.Modified, pf.Task.ContentHash, pf.Task.Size, pf.Doc); err != nil {
				return err
			}
			stats.FilesParsed++
		}
		pending = make(map[string]*ParsedFile, writerFileGroupSize)
		return nil
	}

	for batch := range in {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if len(batch.Chunks) > 0 {
			vchunks := make([]VectorChunk, len(batch.Chunks))
			for i, ec := range batch.Chunks {
				vchunks[i] = VectorChunk{
					ID:         ec.Chunk.ID,
					FilePath:   ec.File.Path,
					Content:    ec.Chunk.Content,
					LineStart:  ec.Chunk.LineStart,
					LineEnd:    ec.Chunk.LineEnd,
					SymbolName: ec.Chunk.SymbolName,
					SymbolKind: string(ec.Chunk.SymbolKind),
					Vector:     ec.Vector,
				}
			}
			if err := upsertWithBreaker(ctx, vec, breaker, vchunks); err != nil {
				return err
			}
			stats.ChunksEmbedded += len(vchunks)
		}

		for path, pf := range batch.Files {
			pending[path] = pf
		}
		if len(pending) >= writerFileGroupSize {
			if err := flushRelational(); err != nil {
				return err
			}
		}
	}

	return flushRelational()
}

func upsertWithBreaker(ctx context.Context, vec VectorStore, breaker *govern.Breakers, chunks []VectorChunk) error {
	upsert := func() error { return vec.UpsertChunks(ctx, chunks) }
	if breaker == nil {
		return upsert()
	}
	return breaker.Vector.Execute(upsert)
}

// finalizeRun runs the post-drain steps: reference resolution,
// vector-index compaction (when due), and cache eviction.
func finalizeRun(ctx context.Context, rel RelationalStore, vec VectorStore, meta MetadataStore, stats *Result) error {
	n, err := rel.ResolveReferences(ctx)
	if err != nil {
		return err
	}
	stats.ReferencesResolved = n

	due, err := vec.ShouldCompact(ctx, meta)
	if err != nil {
		return err
	}
	if due {
		if err := vec.Compact(ctx, meta); err != nil {
			return err
		}
	}

	_, err = rel.EvictCache(ctx, cacheMaxAge, cacheMaxCount)
	return err
}
