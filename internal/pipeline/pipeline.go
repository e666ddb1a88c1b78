package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrel-forge/codegraphd/internal/govern"
)

// Cache eviction policy applied after every run.
const (
	cacheMaxAge   = 30 * 24 * time.Hour
	cacheMaxCount = 200_000
)

// Config wires a Run to its dependencies and tunables.
type Config struct {
	Root         string
	ExtraIgnores []string

	Relational RelationalStore
	Vector     VectorStore
	Metadata   MetadataStore
	Parser     Parser
	Embedder   Embedder
	Breakers   *govern.Breakers

	OnParseError func(path string, err error)
}

// Run executes one full indexing pass: scan -> parse -> batch -> embed ->
// write, then deletion reconciliation and the post-drain maintenance
// steps (reference resolution, compaction, cache eviction). It returns
// once every stage has drained, or early if ctx is cancelled or a stage
// reports an unrecoverable error.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("pipeline: Config.Root is required")
	}

	stats := &Result{}

	scanned, deletedFn := scan(ctx, ScanConfig{Root: cfg.Root, ExtraIgnores: cfg.ExtraIgnores}, cfg.Relational, stats)

	parsed := runParsePool(ctx, scanned, cfg.Parser, cfg.OnParseError, stats)
	batched := runBatcher(ctx, parsed)
	embedded := runEmbedder(ctx, batched, cfg.Embedder, cfg.Relational, cfg.Breakers, stats)

	if err := runWriter(ctx, embedded, cfg.Relational, cfg.Vector, cfg.Breakers, stats); err != nil {
		return stats, fmt.Errorf("pipeline: writer stage: %w", err)
	}

	deleted, err := deletedFn()
	if err != nil {
		return stats, fmt.Errorf("pipeline: deletion reconciliation: %w", err)
	}
	if len(deleted) > 0 {
		if err := cfg.Vector.DeleteByPaths(ctx, deleted); err != nil {
			return stats, fmt.Errorf("pipeline: delete vector rows: %w", err)
		}
		for _, p := range deleted {
			if err := cfg.Relational.DeleteFile(ctx, p); err != nil {
				return stats, fmt.Errorf("pipeline: delete file %s: %w", p, err)
			}
		}
		stats.FilesDeleted = len(deleted)
	}

	if err := finalizeRun(ctx, cfg.Relational, cfg.Vector, cfg.Metadata, stats); err != nil {
		return stats, fmt.Errorf("pipeline: finalize: %w", err)
	}

	return stats, nil
}
