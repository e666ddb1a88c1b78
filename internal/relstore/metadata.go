package relstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetIndexMeta reads a single key from the index_metadata table — the
// generic key/value surface backing things like the vector store's
// compaction watermark.
func (s *Store) GetIndexMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM index_metadata WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("relstore: get index meta %s: %w", key, err)
	}
	return value, true, nil
}

// SetIndexMeta upserts a single index_metadata key.
func (s *Store) SetIndexMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO index_metadata(key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("relstore: set index meta %s: %w", key, err)
	}
	return nil
}
