package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kestrel-forge/codegraphd/internal/config"
	"github.com/kestrel-forge/codegraphd/internal/crossstack"
	"github.com/kestrel-forge/codegraphd/internal/domain"
	"github.com/kestrel-forge/codegraphd/internal/embedpool"
	"github.com/kestrel-forge/codegraphd/internal/govern"
	"github.com/kestrel-forge/codegraphd/internal/parser"
	"github.com/kestrel-forge/codegraphd/internal/pipeline"
	"github.com/kestrel-forge/codegraphd/internal/relstore"
	"github.com/kestrel-forge/codegraphd/internal/reqcache"
	"github.com/kestrel-forge/codegraphd/internal/retrieval"
	"github.com/kestrel-forge/codegraphd/internal/vecstore"
	"github.com/kestrel-forge/codegraphd/internal/watcher"
)

// Project bundles one registered repository's full runtime: its relational
// and vector stores, embedder pool, retrieval engine, resource governors,
// request cache, and (once activated) its file watcher. The daemon owns
// exactly one Project per registered project_path — the indexer exclusively
// owns writes to the relational and vector stores for its project.
type Project struct {
	UUID string
	Path string
	Cfg  config.Config

	Store    *relstore.Store
	Vector   *vecstore.Store
	Pool     *embedpool.Pool
	Cache    *reqcache.Manager
	Breakers *govern.Breakers
	Engine   *retrieval.Engine

	lock    *ProjectLock
	watcher *watcher.Watcher
	logger  *slog.Logger

	lastSyncedAt int64
	watching     bool
}

// openProject opens (or creates) a project's on-disk stores under
// <home>/indices/<uuid>/ and wires its in-process components together.
// projectUUID is empty for a never-before-registered project, in which
// case a fresh uuid is minted.
func openProject(ctx context.Context, home, path, projectUUID string, logger *slog.Logger) (*Project, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if projectUUID == "" {
		projectUUID = uuid.NewString()
	}

	indexDir := filepath.Join(home, "indices", projectUUID)
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return nil, fmt.Errorf("daemon: create index dir %s: %w", indexDir, err)
	}

	lock := NewProjectLock(filepath.Join(indexDir, ".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, fmt.Errorf("daemon: project %s is already open by another process", path)
	}

	cfg, err := config.Load(filepath.Join(path, ".gofer", "config.toml"))
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("daemon: load project config: %w", err)
	}

	store, err := relstore.Open(filepath.Join(indexDir, "graph.db"), logger)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("daemon: open relational store: %w", err)
	}

	dimensions := 768
	vecPath := filepath.Join(indexDir, "lancedb")
	vec := vecstore.New(vecstore.DefaultConfig(dimensions))
	if _, err := os.Stat(vecPath); err == nil {
		if err := vec.Load(vecPath); err != nil {
			logger.Warn("daemon: vector store load failed, starting empty", slog.String("error", err.Error()))
		}
	}

	breakers := govern.NewBreakers()

	pool, err := buildEmbedderPool(ctx, cfg.Embedding, dimensions, breakers)
	if err != nil {
		_ = store.Close()
		_ = lock.Unlock()
		return nil, err
	}

	cache := reqcache.NewManager()

	engine := &retrieval.Engine{
		Symbols:  symbolSearcher{store: store},
		Vectors:  vectorSearcher{store: vec},
		Embedder: pool,
		Breakers: breakers,
	}

	p := &Project{
		UUID:     projectUUID,
		Path:     path,
		Cfg:      cfg,
		Store:    store,
		Vector:   vec,
		Pool:     pool,
		Cache:    cache,
		Breakers: breakers,
		Engine:   engine,
		lock:     lock,
		logger:   logger,
	}
	return p, nil
}

// buildEmbedderPool constructs the pool's instances: every instance is a
// CachedEmbedder around the dependency-free StaticEmbedder of the given
// dimensions, whatever cfg.Model names. Only cfg.PoolSize is read from cfg;
// no external model provider is loaded.
func buildEmbedderPool(ctx context.Context, cfg config.EmbeddingConfig, dimensions int, breakers *govern.Breakers) (*embedpool.Pool, error) {
	size := cfg.PoolSize
	if size <= 0 {
		size = 2
	}
	factory := func(context.Context) (embedpool.Embedder, error) {
		return embedpool.NewCachedEmbedder(embedpool.NewStaticEmbedder(dimensions), 10_000), nil
	}
	return embedpool.NewPool(ctx, factory, size, breakers.Embedding)
}

// vectorPath is where this project's HNSW graph is saved/loaded from.
func (p *Project) vectorPath(home string) string {
	return filepath.Join(home, "indices", p.UUID, "lancedb")
}

// Sync runs one full indexing pass (scan -> parse -> batch -> embed ->
// write -> finalize) plus a cross-stack linker pass, invalidates the whole
// request cache (a full sync can touch any file), and persists the vector
// store to disk.
func (p *Project) Sync(ctx context.Context, home string) (*pipeline.Result, error) {
	result, err := pipeline.Run(ctx, p.pipelineConfig())
	if err != nil {
		return result, err
	}

	if _, err := crossstack.Sync(ctx, crossStackStore{Store: p.Store}); err != nil {
		p.logger.Warn("daemon: cross-stack sync failed", slog.String("error", err.Error()))
	}

	p.Cache.Clear()
	p.lastSyncedAt = time.Now().Unix()

	if err := p.Vector.Save(p.vectorPath(home)); err != nil {
		p.logger.Warn("daemon: vector store save failed", slog.String("error", err.Error()))
	}
	return result, nil
}

// ReindexPath reindexes a single file (watcher-driven or explicit
// reindex's Path param), invalidating just that file's cache entries.
func (p *Project) ReindexPath(ctx context.Context, home, path string) error {
	_, err := pipeline.RunFile(ctx, p.pipelineConfig(), path)
	if err != nil {
		return err
	}
	p.Cache.InvalidatePath(path)
	return p.Vector.Save(p.vectorPath(home))
}

// DeletePath removes one file from both stores.
func (p *Project) DeletePath(ctx context.Context, home, path string) error {
	if err := pipeline.DeleteFile(ctx, p.pipelineConfig(), path); err != nil {
		return err
	}
	p.Cache.InvalidatePath(path)
	return p.Vector.Save(p.vectorPath(home))
}

func (p *Project) pipelineConfig() pipeline.Config {
	return pipeline.Config{
		Root:         p.Path,
		ExtraIgnores: p.Cfg.Indexer.Ignore,
		Relational:   relationalStore{Store: p.Store},
		Vector:       vectorStore{Store: p.Vector},
		Metadata:     p.Store,
		Parser:       parser.NewParser(),
		Embedder:     p.Pool,
		Breakers:     p.Breakers,
		OnParseError: func(path string, err error) {
			p.logger.Warn("daemon: parse error", slog.String("path", path), slog.String("error", err.Error()))
		},
	}
}

// Watch starts the project's file watcher if not already running
// (idempotent). home is needed so the watcher's reindex tasks can persist
// the vector store after each single-file update.
func (p *Project) Watch(ctx context.Context, home string) error {
	if p.watching {
		return nil
	}

	handler := func(ctx context.Context, task watcher.Task) error {
		switch task.Kind {
		case watcher.TaskDelete:
			return p.DeletePath(ctx, home, task.Path)
		default:
			return p.ReindexPath(ctx, home, task.Path)
		}
	}

	w, err := watcher.New(watcher.Options{
		Root:            p.Path,
		ExtraIgnores:    p.Cfg.Indexer.Ignore,
		ParallelWorkers: p.Cfg.Indexer.ParallelWorkers,
	}, handler, p.Cache.InvalidatePaths)
	if err != nil {
		return fmt.Errorf("daemon: start watcher for %s: %w", p.Path, err)
	}
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("daemon: watcher start: %w", err)
	}

	p.watcher = w
	p.watching = true
	return nil
}

// Watching reports whether the file watcher is currently active.
func (p *Project) Watching() bool { return p.watching }

// LastSyncedAt is the unix timestamp of the most recently completed full
// sync, or zero if none has run yet this process lifetime.
func (p *Project) LastSyncedAt() int64 { return p.lastSyncedAt }

// DomainStats counts indexed files per domain.Classify bucket.
func (p *Project) DomainStats(ctx context.Context) (map[domain.Domain]int, error) {
	files, err := p.Store.AllFileLanguages(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.Domain]int)
	for _, f := range files {
		counts[domain.Classify(f.Path, p.Cfg.Domains)]++
	}
	return counts, nil
}

// Close stops the watcher (if running), flushes the vector store, and
// releases the project's stores and advisory lock.
func (p *Project) Close(home string) error {
	if p.watcher != nil {
		_ = p.watcher.Stop()
	}
	if err := p.Vector.Save(p.vectorPath(home)); err != nil {
		p.logger.Warn("daemon: vector store save on close failed", slog.String("error", err.Error()))
	}
	_ = p.Vector.Close()
	storeErr := p.Store.Close()
	poolErr := p.Pool.Close()
	lockErr := p.lock.Unlock()
	if storeErr != nil {
		return storeErr
	}
	if poolErr != nil {
		return poolErr
	}
	return lockErr
}
