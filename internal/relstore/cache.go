package relstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CacheLookup returns a cached embedding for chunkID if one exists under
// the given content hash and model version — a mismatch on either means
// the chunk changed or the embedding model did, and both are cache
// misses.
func (s *Store) CacheLookup(ctx context.Context, chunkID, contentHash, modelVersion string) ([]byte, bool, error) {
	var embedding []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT embedding FROM chunk_cache
		WHERE chunk_id = ? AND content_hash = ? AND model_version = ?
	`, chunkID, contentHash, modelVersion).Scan(&embedding)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("relstore: cache lookup %s: %w", chunkID, err)
	}

	_, _ = s.db.ExecContext(ctx, `UPDATE chunk_cache SET last_used_at = ? WHERE chunk_id = ?`, time.Now().Unix(), chunkID)
	return embedding, true, nil
}

// CachePut stores (or replaces) a chunk's embedding.
func (s *Store) CachePut(ctx context.Context, chunkID, contentHash, modelVersion string, embedding []byte) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chunk_cache(chunk_id, content_hash, model_version, embedding, created_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			content_hash = excluded.content_hash,
			model_version = excluded.model_version,
			embedding = excluded.embedding,
			last_used_at = excluded.last_used_at
	`, chunkID, contentHash, modelVersion, embedding, now, now)
	if err != nil {
		return fmt.Errorf("relstore: cache put %s: %w", chunkID, err)
	}
	return nil
}

// EvictCache removes every cache row older than maxAge, then — if the
// table still holds more than maxCount rows — evicts the
// least-recently-used remainder down to maxCount. Age-based eviction
// runs first, count-based eviction only as a backstop.
func (s *Store) EvictCache(ctx context.Context, maxAge time.Duration, maxCount int) (int, error) {
	cutoff := time.Now().Add(-maxAge).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM chunk_cache WHERE last_used_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("relstore: evict by age: %w", err)
	}
	ageEvicted, _ := res.RowsAffected()

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunk_cache`).Scan(&count); err != nil {
		return int(ageEvicted), fmt.Errorf("relstore: count cache: %w", err)
	}
	if maxCount <= 0 || count <= maxCount {
		return int(ageEvicted), nil
	}

	overflow := count - maxCount
	res, err = s.db.ExecContext(ctx, `
		DELETE FROM chunk_cache WHERE chunk_id IN (
			SELECT chunk_id FROM chunk_cache ORDER BY last_used_at ASC LIMIT ?
		)
	`, overflow)
	if err != nil {
		return int(ageEvicted), fmt.Errorf("relstore: evict by count: %w", err)
	}
	countEvicted, _ := res.RowsAffected()

	return int(ageEvicted) + int(countEvicted), nil
}

// InvalidateModelVersion removes every cache row stamped with a model
// version other than current and reports how many rows were removed, so
// vectors computed under a different model version are no longer served
// from the cache.
func (s *Store) InvalidateModelVersion(ctx context.Context, current string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chunk_cache WHERE model_version != ?`, current)
	if err != nil {
		return 0, fmt.Errorf("relstore: invalidate model version: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
