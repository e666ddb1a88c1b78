package relstore

import (
	"context"
	"fmt"
)

// ResolveReferences performs best-effort three-pass resolution: same-file
// first (a reference almost always means the nearest matching
// declaration), then same-directory, then a global fallback across every
// indexed symbol. Each pass only touches references left unresolved by the
// previous one, and ties within a pass are broken by MIN(symbol_id) so
// re-running resolution after a no-op reindex is idempotent (no reference
// flips to a different, equally-valid target).
func (s *Store) ResolveReferences(ctx context.Context) (int, error) {
	total := 0

	n, err := s.resolveSameFile(ctx)
	if err != nil {
		return total, fmt.Errorf("relstore: resolve same-file: %w", err)
	}
	total += n

	n, err = s.resolveSameDirectory(ctx)
	if err != nil {
		return total, fmt.Errorf("relstore: resolve same-directory: %w", err)
	}
	total += n

	n, err = s.resolveGlobal(ctx)
	if err != nil {
		return total, fmt.Errorf("relstore: resolve global: %w", err)
	}
	total += n

	return total, nil
}

func (s *Store) resolveSameFile(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE symbol_references
		SET resolved = 1,
		    target_symbol_id = (
		        SELECT MIN(s.id) FROM symbols s
		        WHERE s.file_id = symbol_references.file_id
		          AND s.name = symbol_references.target_name
		    )
		WHERE resolved = 0
		  AND EXISTS (
		        SELECT 1 FROM symbols s
		        WHERE s.file_id = symbol_references.file_id
		          AND s.name = symbol_references.target_name
		  )
	`)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *Store) resolveSameDirectory(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE symbol_references
		SET resolved = 1,
		    target_symbol_id = (
		        SELECT MIN(s.id) FROM symbols s
		        JOIN files sf ON sf.id = s.file_id
		        JOIN files rf ON rf.id = symbol_references.file_id
		        WHERE s.name = symbol_references.target_name
		          AND sf.dir = rf.dir
		    )
		WHERE resolved = 0
		  AND EXISTS (
		        SELECT 1 FROM symbols s
		        JOIN files sf ON sf.id = s.file_id
		        JOIN files rf ON rf.id = symbol_references.file_id
		        WHERE s.name = symbol_references.target_name
		          AND sf.dir = rf.dir
		  )
	`)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *Store) resolveGlobal(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE symbol_references
		SET resolved = 1,
		    target_symbol_id = (
		        SELECT MIN(s.id) FROM symbols s WHERE s.name = symbol_references.target_name
		    )
		WHERE resolved = 0
		  AND EXISTS (SELECT 1 FROM symbols s WHERE s.name = symbol_references.target_name)
	`)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// UnresolvedCount returns how many references still have no target —
// expected to be nonzero for calls into third-party/stdlib code, which is
// never indexed as a symbol.
func (s *Store) UnresolvedCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM symbol_references WHERE resolved = 0`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("relstore: unresolved count: %w", err)
	}
	return n, nil
}

// ReferencesTo returns every reference row already resolved to a given
// symbol id — the call-graph "who calls this" query. Unresolved rows carry
// no target symbol id and are not returned.
func (s *Store) ReferencesTo(ctx context.Context, symbolID int64) ([]ReferenceRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, f.path, r.source_symbol_name, r.target_name, r.line, r.kind, r.resolved
		FROM symbol_references r
		JOIN files f ON f.id = r.file_id
		WHERE r.target_symbol_id = ?
	`, symbolID)
	if err != nil {
		return nil, fmt.Errorf("relstore: references to %d: %w", symbolID, err)
	}
	defer rows.Close()

	var out []ReferenceRow
	for rows.Next() {
		var r ReferenceRow
		var resolved int
		if err := rows.Scan(&r.ID, &r.FilePath, &r.SourceSymbol, &r.TargetName, &r.Line, &r.Kind, &resolved); err != nil {
			return nil, fmt.Errorf("relstore: scan reference: %w", err)
		}
		r.Resolved = resolved == 1
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReferenceRow is a denormalized symbol_references row joined to its file.
type ReferenceRow struct {
	ID           int64
	FilePath     string
	SourceSymbol string
	TargetName   string
	Line         int
	Kind         string
	Resolved     bool
}
