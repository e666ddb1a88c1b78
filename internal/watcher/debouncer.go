package watcher

import (
	"log/slog"
	"sync"
	"time"
)

// debouncer coalesces rapid fsnotify events into one Task per path over
// DebounceWindow. Unlike a general file-event debouncer that must track
// CREATE-then-DELETE cancellation, a watcher with only two downstream
// actions (reindex, delete) can coalesce with "last event for this path
// wins" — both actions are idempotent against whatever the file's final
// state turns out to be once the window closes.
type debouncer struct {
	window  time.Duration
	mu      sync.Mutex
	pending map[string]Task
	timer   *time.Timer
	output  chan []Task
	stopped bool
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{
		window:  window,
		pending: make(map[string]Task),
		output:  make(chan []Task, 16),
	}
}

func (d *debouncer) add(t Task) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending[t.Path] = t
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

func (d *debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped || len(d.pending) == 0 {
		return
	}
	tasks := make([]Task, 0, len(d.pending))
	for _, t := range d.pending {
		tasks = append(tasks, t)
	}
	d.pending = make(map[string]Task)

	select {
	case d.output <- tasks:
	default:
		slog.Warn("watcher debouncer output full, dropping batch", slog.Int("batch_size", len(tasks)))
	}
}

func (d *debouncer) Output() <-chan []Task { return d.output }

func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}
