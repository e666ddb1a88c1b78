package watcher

import (
	"testing"
	"time"
)

func TestDebouncerCoalescesRapidEventsForSamePath(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.add(Task{Path: "a.go", Kind: TaskReindex})
	d.add(Task{Path: "a.go", Kind: TaskDelete})

	select {
	case tasks := <-d.Output():
		if len(tasks) != 1 {
			t.Fatalf("got %d tasks, want 1 coalesced task", len(tasks))
		}
		if tasks[0].Kind != TaskDelete {
			t.Fatalf("coalesced kind = %v, want TaskDelete (last write wins)", tasks[0].Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for debounced batch")
	}
}

func TestDebouncerBatchesDistinctPaths(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.add(Task{Path: "a.go", Kind: TaskReindex})
	d.add(Task{Path: "b.go", Kind: TaskReindex})

	select {
	case tasks := <-d.Output():
		if len(tasks) != 2 {
			t.Fatalf("got %d tasks, want 2", len(tasks))
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for debounced batch")
	}
}

func TestDebouncerStopClosesOutput(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	d.Stop()

	_, ok := <-d.Output()
	if ok {
		t.Fatal("expected Output() to be closed after Stop")
	}
}
