package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestWatcherDispatchesReindexOnFileWrite(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var got []Task

	w, err := New(Options{Root: root}, func(ctx context.Context, task Task) error {
		mu.Lock()
		got = append(got, task)
		mu.Unlock()
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = w.Start(ctx)
		close(done)
	}()

	// Give the watcher a moment to finish its recursive Add before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\nfunc A() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for a dispatched task")
		case <-time.After(10 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if got[0].Path != "a.go" {
		t.Fatalf("task path = %q, want a.go", got[0].Path)
	}
	if got[0].Kind != TaskReindex {
		t.Fatalf("task kind = %v, want TaskReindex", got[0].Kind)
	}
}

func TestWatcherInvalidateCalledBeforeDispatch(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var invalidated []string
	var dispatched bool

	w, err := New(Options{Root: root}, func(ctx context.Context, task Task) error {
		mu.Lock()
		dispatched = true
		mu.Unlock()
		return nil
	}, func(paths []string) {
		mu.Lock()
		invalidated = append(invalidated, paths...)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx) }()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\nfunc A() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for {
		mu.Lock()
		ok := dispatched && len(invalidated) > 0
		mu.Unlock()
		if ok {
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for invalidate + dispatch")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
