package daemon

import (
	"fmt"

	"github.com/gofrs/flock"
)

// ProjectLock is the advisory, single-writer-per-project lock that backs
// the indexer's exclusive ownership of a project's writes: it guards the
// pair of on-disk stores (graph.db, lancedb/) against a second daemon
// process opening the same project concurrently.
type ProjectLock struct {
	fl *flock.Flock
}

// NewProjectLock builds a lock backed by a sentinel file at path (typically
// <project-uuid-dir>/.lock).
func NewProjectLock(path string) *ProjectLock {
	return &ProjectLock{fl: flock.New(path)}
}

// TryLock attempts to acquire the lock without blocking. ok is false if
// another process already holds it.
func (l *ProjectLock) TryLock() (ok bool, err error) {
	locked, err := l.fl.TryLock()
	if err != nil {
		return false, fmt.Errorf("daemon: acquire project lock %s: %w", l.fl.Path(), err)
	}
	return locked, nil
}

// Unlock releases the lock. Safe to call even if TryLock never succeeded.
func (l *ProjectLock) Unlock() error {
	if !l.fl.Locked() {
		return nil
	}
	return l.fl.Unlock()
}
