// Package relstore is the daemon's relational store plus its embedding
// cache: a single SQLite database, opened in WAL mode via the pure-Go
// modernc.org/sqlite driver, holding every table the indexer and query
// tools need.
package relstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Store wraps the project's SQLite connection. Callers hold one Store per
// active project.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
	logger *slog.Logger
}

// Open opens (creating if absent) the SQLite database at path, runs an
// integrity check on an existing file, and applies the schema. A failed
// integrity check does not block startup — best-effort, continue serving
// a possibly-degraded index rather than refuse to start — it is only
// logged as a warning.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("relstore: create dir %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("relstore: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // single-writer SQLite; avoids SQLITE_BUSY under WAL
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA cache_size = -65536",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("relstore: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, path: path, logger: logger}

	if err := s.checkIntegrity(); err != nil {
		logger.Warn("relstore_integrity_check_failed", slog.String("path", path), slog.String("error", err.Error()))
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("relstore: apply schema: %w", err)
	}

	if err := s.recoverSummaryQueue(); err != nil {
		logger.Warn("relstore_summary_queue_recovery_failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) checkIntegrity() error {
	var result string
	if err := s.db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity_check query: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity_check reported: %s", result)
	}
	return nil
}

// recoverSummaryQueue resets any summary_queue row a worker left
// "processing" when its owning process crashed mid-summary, so the
// summarizer worker picks it back up on the next pass.
func (s *Store) recoverSummaryQueue() error {
	_, err := s.db.Exec(`UPDATE summary_queue SET status = 'pending' WHERE status = 'processing'`)
	return err
}

// DB exposes the underlying *sql.DB for components (vecstore's metadata
// table, crossstack) that need to share the same connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database, checkpointing WAL to the main file first.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// WithTx runs fn inside a single transaction, committing on success and
// rolling back on error or panic.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("relstore: begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
