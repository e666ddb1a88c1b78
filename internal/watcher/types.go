// Package watcher implements the daemon's file-change watcher: an
// fsnotify-based recursive watcher that debounces rapid changes and
// hands off a bounded stream of reindex/delete tasks to a worker pool
// sized from the daemon's parallel_workers setting.
package watcher

import "time"

// DebounceWindow is the fixed coalescing window: longer than a typical
// editor-save debounce because the downstream task is a full pipeline
// re-run per file, not a lightweight index patch, so over-eager
// coalescing saves more than it costs.
const DebounceWindow = 500 * time.Millisecond

// TaskKind is the action a Task asks the worker pool to perform.
type TaskKind int

const (
	TaskReindex TaskKind = iota
	TaskDelete
)

func (k TaskKind) String() string {
	if k == TaskDelete {
		return "delete"
	}
	return "reindex"
}

// Task is one unit of watcher-driven work: re-run the indexing pipeline's
// parse/embed/write stages for one file, or remove it from both stores.
type Task struct {
	Path string
	Kind TaskKind
}

// Options configures a Watcher.
type Options struct {
	Root            string
	ExtraIgnores    []string
	ParallelWorkers int // worker-pool size; <=0 defaults to 4
	TaskBufferSize  int // <=0 defaults to 256
}

func (o Options) withDefaults() Options {
	if o.ParallelWorkers <= 0 {
		o.ParallelWorkers = 4
	}
	if o.TaskBufferSize <= 0 {
		o.TaskBufferSize = 256
	}
	return o
}
