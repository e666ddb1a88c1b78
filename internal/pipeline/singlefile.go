package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/kestrel-forge/codegraphd/internal/parser"
)

// RunFile re-runs stages 2-5 of the pipeline (parse, batch, embed, write)
// for a single file, skipping the scanner's directory walk and the
// post-drain finalize steps (reference resolution, compaction, cache
// eviction) that only make sense once per full sync. A file larger than
// the scanner's size cap or of an unsupported extension is silently
// skipped, matching the full-sync scanner's behaviour for the same cases.
func RunFile(ctx context.Context, cfg Config, path string) (*Result, error) {
	stats := &Result{}

	info, err := os.Stat(path)
	if err != nil {
		return stats, fmt.Errorf("pipeline: stat %s: %w", path, err)
	}
	if info.Size() > maxFileSize {
		return stats, nil
	}

	lang, ok := parser.LanguageForExtension(filepath.Ext(path))
	if !ok {
		return stats, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return stats, fmt.Errorf("pipeline: read %s: %w", path, err)
	}

	hash := blake3.Sum256(content)
	task := FileTask{
		Path:        path,
		Content:     content,
		ContentHash: fmt.Sprintf("%x", hash),
		Modified:    info.ModTime().Unix(),
		Language:    lang,
		Size:        info.Size(),
	}

	scanOut := make(chan FileTask, 1)
	scanOut <- task
	close(scanOut)

	parsed := runParsePool(ctx, scanOut, cfg.Parser, cfg.OnParseError, stats)
	batched := runBatcher(ctx, parsed)
	embedded := runEmbedder(ctx, batched, cfg.Embedder, cfg.Relational, cfg.Breakers, stats)

	if err := runWriter(ctx, embedded, cfg.Relational, cfg.Vector, cfg.Breakers, stats); err != nil {
		return stats, fmt.Errorf("pipeline: single-file writer: %w", err)
	}
	return stats, nil
}

// DeleteFile removes path from both stores, backing the watcher's Delete
// task.
func DeleteFile(ctx context.Context, cfg Config, path string) error {
	if err := cfg.Vector.DeleteByPaths(ctx, []string{path}); err != nil {
		return fmt.Errorf("pipeline: delete vector rows for %s: %w", path, err)
	}
	if err := cfg.Relational.DeleteFile(ctx, path); err != nil {
		return fmt.Errorf("pipeline: delete file row for %s: %w", path, err)
	}
	return nil
}
