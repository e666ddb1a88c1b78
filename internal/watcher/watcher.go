package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/kestrel-forge/codegraphd/internal/gitignore"
)

// TaskHandler performs one Task — a Reindex re-runs the pipeline's
// parse/embed/write stages for a single file, a Delete removes it from
// both stores. Implementations should also invalidate any request-cache
// entries scoped to the path, since any change flushes all cached search
// results too.
type TaskHandler func(ctx context.Context, task Task) error

// InvalidateFunc is called once per debounced batch, before the batch's
// tasks are dispatched, so the request cache manager can evict stale
// search results ahead of the reindex itself completing.
type InvalidateFunc func(paths []string)

// Watcher watches a root directory recursively for changes and dispatches
// debounced Reindex/Delete tasks to a bounded worker pool.
type Watcher struct {
	opts      Options
	fsWatcher *fsnotify.Watcher
	debouncer *debouncer
	gitignore *gitignore.Matcher

	handle     TaskHandler
	invalidate InvalidateFunc

	mu      sync.RWMutex
	stopped bool
	stopCh  chan struct{}

	sem chan struct{}
}

// New creates a Watcher. handle is invoked once per task from the worker
// pool; invalidate (optional) is called once per debounced batch with the
// batch's paths before dispatch.
func New(opts Options, handle TaskHandler, invalidate InvalidateFunc) (*Watcher, error) {
	opts = opts.withDefaults()
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		opts:       opts,
		fsWatcher:  fsw,
		debouncer:  newDebouncer(DebounceWindow),
		gitignore:  gitignore.New(),
		handle:     handle,
		invalidate: invalidate,
		stopCh:     make(chan struct{}),
		sem:        make(chan struct{}, opts.ParallelWorkers),
	}
	for _, pat := range opts.ExtraIgnores {
		w.gitignore.AddPattern(pat)
	}
	return w, nil
}

// Start begins watching. It blocks until ctx is cancelled or Stop is
// called, running the fsnotify event loop, the debounce-batch dispatcher,
// and the worker pool concurrently.
func (w *Watcher) Start(ctx context.Context) error {
	w.loadGitignore()

	if err := w.addRecursive(w.opts.Root); err != nil {
		return fmt.Errorf("watcher: add directories: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); w.runEventLoop(ctx) }()
	go func() { defer wg.Done(); w.runDispatcher(ctx) }()
	wg.Wait()
	return ctx.Err()
}

// Stop releases the fsnotify watcher and stops the debouncer. Safe to
// call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	w.debouncer.Stop()
	return w.fsWatcher.Close()
}

func (w *Watcher) runEventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case _, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			// Non-fatal: fsnotify surfaces lost-event warnings here; the
			// watcher keeps running on whatever state it can still see.
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.opts.Root, ev.Name)
	if err != nil {
		rel = ev.Name
	}
	rel = filepath.ToSlash(rel)

	isDir := false
	if info, err := os.Stat(ev.Name); err == nil {
		isDir = info.IsDir()
	}

	if w.shouldIgnore(rel, isDir) {
		return
	}

	if filepath.Base(ev.Name) == ".gitignore" {
		w.loadGitignore()
		return
	}

	switch {
	case ev.Op&fsnotify.Create != 0:
		if isDir {
			_ = w.fsWatcher.Add(ev.Name)
			return
		}
		w.debouncer.add(Task{Path: rel, Kind: TaskReindex})
	case ev.Op&fsnotify.Write != 0:
		if isDir {
			return
		}
		w.debouncer.add(Task{Path: rel, Kind: TaskReindex})
	case ev.Op&fsnotify.Remove != 0, ev.Op&fsnotify.Rename != 0:
		w.debouncer.add(Task{Path: rel, Kind: TaskDelete})
	}
}

func (w *Watcher) runDispatcher(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case tasks, ok := <-w.debouncer.Output():
			if !ok {
				return
			}
			if w.invalidate != nil {
				paths := make([]string, len(tasks))
				for i, t := range tasks {
					paths[i] = t.Path
				}
				w.invalidate(paths)
			}
			for _, t := range tasks {
				w.dispatch(ctx, t)
			}
		}
	}
}

// dispatch admits t into the parallel_workers-sized worker pool, blocking
// (respecting ctx) if the pool is saturated — back-pressure rather than
// unbounded goroutine growth under a burst of changes.
func (w *Watcher) dispatch(ctx context.Context, t Task) {
	select {
	case w.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}
	go func() {
		defer func() { <-w.sem }()
		_ = w.handle(ctx, t)
	}()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return w.fsWatcher.Add(path)
		}
		if rel == ".git" || strings.HasPrefix(rel, ".git/") {
			return filepath.SkipDir
		}
		if w.matchGitignore(rel, true) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) matchGitignore(rel string, isDir bool) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.gitignore.Match(rel, isDir)
}

func (w *Watcher) shouldIgnore(rel string, isDir bool) bool {
	if rel == "." || rel == "" {
		return true
	}
	if rel == ".git" || strings.HasPrefix(rel, ".git/") {
		return true
	}
	return w.matchGitignore(rel, isDir)
}

func (w *Watcher) loadGitignore() {
	m := gitignore.New()
	for _, pat := range w.opts.ExtraIgnores {
		m.AddPattern(pat)
	}
	_ = m.AddFromFile(filepath.Join(w.opts.Root, ".gitignore"), "")
	_ = filepath.WalkDir(w.opts.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if d.Name() != ".gitignore" {
			return nil
		}
		base, _ := filepath.Rel(w.opts.Root, filepath.Dir(path))
		_ = m.AddFromFile(path, base)
		return nil
	})

	w.mu.Lock()
	w.gitignore = m
	w.mu.Unlock()
}
