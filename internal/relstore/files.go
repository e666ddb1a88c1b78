package relstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kestrel-forge/codegraphd/internal/parser"
)

// FileRecord is a row from the files table.
type FileRecord struct {
	ID          int64
	Path        string
	Language    string
	Mtime       int64
	ContentHash string
	SizeBytes   int64
	IndexedAt   int64
}

// GetFile returns the current row for path, or (FileRecord{}, false, nil)
// if the file has never been indexed.
func (s *Store) GetFile(ctx context.Context, path string) (FileRecord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, path, language, mtime, content_hash, size_bytes, indexed_at FROM files WHERE path = ?`, path)

	var f FileRecord
	if err := row.Scan(&f.ID, &f.Path, &f.Language, &f.Mtime, &f.ContentHash, &f.SizeBytes, &f.IndexedAt); err != nil {
		if err == sql.ErrNoRows {
			return FileRecord{}, false, nil
		}
		return FileRecord{}, false, fmt.Errorf("relstore: get file %s: %w", path, err)
	}
	return f, true, nil
}

// Unchanged reports whether path's current mtime/contentHash match the
// stored record — the scanner's fast path skips re-parsing when true.
// Both mtime and content hash must match; mtime alone is too easy to
// spoof with a touch.
func (f FileRecord) Unchanged(mtime int64, contentHash string) bool {
	return f.Mtime == mtime && f.ContentHash == contentHash
}

// WriteFileArtifacts persists one file's full parse output — the file
// row, its symbols, dependency rows and their usages, and its raw
// references (unresolved) — in a single transaction, so a reader never
// observes a file with symbols but no file row or vice versa.
func (s *Store) WriteFileArtifacts(ctx context.Context, path string, lang parser.Language, mtime int64, contentHash string, sizeBytes int64, doc *parser.ParsedDoc) (int64, error) {
	var fileID int64

	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO files(path, dir, language, mtime, content_hash, size_bytes, indexed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				dir = excluded.dir,
				language = excluded.language,
				mtime = excluded.mtime,
				content_hash = excluded.content_hash,
				size_bytes = excluded.size_bytes,
				indexed_at = excluded.indexed_at
		`, path, parentDir(path), string(lang), mtime, contentHash, sizeBytes, time.Now().Unix())

		if err != nil {
			return fmt.Errorf("upsert file: %w", err)
		}

		fileID, err = res.LastInsertId()
		if err != nil || fileID == 0 {
			// ON CONFLICT DO UPDATE doesn't report LastInsertId on SQLite;
			// look the row up directly.
			row := tx.QueryRowContext(ctx, `SELECT id FROM files WHERE path = ?`, path)
			if scanErr := row.Scan(&fileID); scanErr != nil {
				return fmt.Errorf("lookup file id: %w", scanErr)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM symbols WHERE file_id = ?`, fileID); err != nil {
			return fmt.Errorf("clear symbols: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM symbols_fts WHERE symbol_id IN (SELECT id FROM symbols WHERE file_id = ?)`, fileID); err != nil {
			return fmt.Errorf("clear symbols_fts: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM symbol_references WHERE file_id = ?`, fileID); err != nil {
			return fmt.Errorf("clear references: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM dependencies WHERE file_id = ?`, fileID); err != nil {
			return fmt.Errorf("clear dependencies: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM type_fingerprints WHERE file_id = ?`, fileID); err != nil {
			return fmt.Errorf("clear type_fingerprints: %w", err)
		}

		nameToID := make(map[string]int64, len(doc.Symbols))
		for _, sym := range doc.Symbols {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO symbols(file_id, name, kind, line_start, line_end, signature)
				VALUES (?, ?, ?, ?, ?, ?)
			`, fileID, sym.Name, string(sym.Kind), sym.LineStart, sym.LineEnd, sym.Signature)
			if err != nil {
				return fmt.Errorf("insert symbol %s: %w", sym.Name, err)
			}
			symID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("symbol id: %w", err)
			}
			nameToID[sym.Name] = symID

			if _, err := tx.ExecContext(ctx, `
				INSERT INTO symbols_fts(symbol_id, name, signature) VALUES (?, ?, ?)
			`, symID, sym.Name, sym.Signature); err != nil {
				return fmt.Errorf("insert symbol fts %s: %w", sym.Name, err)
			}
		}

		for _, ref := range doc.References {
			var sourceID sql.NullInt64
			if id, ok := nameToID[ref.SourceSymbol]; ok {
				sourceID = sql.NullInt64{Int64: id, Valid: true}
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO symbol_references(file_id, source_symbol_id, source_symbol_name, target_name, line, kind, resolved)
				VALUES (?, ?, ?, ?, ?, ?, 0)
			`, fileID, sourceID, ref.SourceSymbol, ref.TargetName, ref.Line, string(ref.Kind)); err != nil {
				return fmt.Errorf("insert reference to %s: %w", ref.TargetName, err)
			}
		}

		for _, imp := range doc.Imports {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO dependencies(file_id, module_path, relative, line) VALUES (?, ?, ?, ?)
			`, fileID, imp.ModulePath, boolToInt(imp.Relative), imp.Line)
			if err != nil {
				return fmt.Errorf("insert dependency %s: %w", imp.ModulePath, err)
			}
			depID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("dependency id: %w", err)
			}
			for _, item := range imp.Items {
				if _, err := tx.ExecContext(ctx, `INSERT INTO dependency_usage(dependency_id, item) VALUES (?, ?)`, depID, item); err != nil {
					return fmt.Errorf("insert dependency usage %s: %w", item, err)
				}
			}
		}

		for _, fp := range doc.Fingerprints {
			fields := make([]string, len(fp.Fields))
			for i, f := range fp.Fields {
				fields[i] = f.Normalized
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO type_fingerprints(file_id, name, language, field_count, normalized_fields)
				VALUES (?, ?, ?, ?, ?)
			`, fileID, fp.Name, string(fp.Language), len(fp.Fields), encodeFields(fields)); err != nil {
				return fmt.Errorf("insert type_fingerprint %s: %w", fp.Name, err)
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO summary_queue(file_id, enqueued_at, status, attempts)
			VALUES (?, ?, 'pending', 0)
			ON CONFLICT(file_id) DO UPDATE SET status = 'pending', enqueued_at = excluded.enqueued_at
		`, fileID, time.Now().Unix())
		if err != nil {
			return fmt.Errorf("enqueue summary: %w", err)
		}

		return nil
	})

	return fileID, err
}

// AllFilePaths returns every indexed file path — used by the scanner's
// reconciliation pass to find files removed from disk since the last sync.
func (s *Store) AllFilePaths(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM files`)
	if err != nil {
		return nil, fmt.Errorf("relstore: list file paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("relstore: scan file path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// DeleteFile removes a file and every row that cascades from it.
func (s *Store) DeleteFile(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("relstore: delete file %s: %w", path, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// parentDir returns the directory portion of an indexed file path, used to
// populate files.dir so the same-directory reference resolution pass can
// match on it directly instead of recomputing a prefix in SQL. Indexed
// paths are always forward-slash, project-relative or absolute; a path
// with no slash (a root-level file) has an empty directory.
func parentDir(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[:i]
	}
	return ""
}
