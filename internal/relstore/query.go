package relstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DependencyRow is one module import recorded for a file.
type DependencyRow struct {
	ModulePath string
	Relative   bool
	Line       int
	Items      []string
}

// DependenciesForFile returns every import recorded for path, each with
// its usage items, for the `dependencies` tool.
func (s *Store) DependenciesForFile(ctx context.Context, path string) ([]DependencyRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.module_path, d.relative, d.line
		FROM dependencies d
		JOIN files f ON f.id = d.file_id
		WHERE f.path = ?
		ORDER BY d.line
	`, path)
	if err != nil {
		return nil, fmt.Errorf("relstore: dependencies for %s: %w", path, err)
	}
	defer rows.Close()

	var out []DependencyRow
	var ids []int64
	for rows.Next() {
		var id int64
		var d DependencyRow
		var relative int
		if err := rows.Scan(&id, &d.ModulePath, &relative, &d.Line); err != nil {
			return nil, fmt.Errorf("relstore: scan dependency: %w", err)
		}
		d.Relative = relative != 0
		out = append(out, d)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		items, err := s.dependencyItems(ctx, id)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (s *Store) dependencyItems(ctx context.Context, dependencyID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT item FROM dependency_usage WHERE dependency_id = ?`, dependencyID)
	if err != nil {
		return nil, fmt.Errorf("relstore: dependency usage %d: %w", dependencyID, err)
	}
	defer rows.Close()

	var items []string
	for rows.Next() {
		var item string
		if err := rows.Scan(&item); err != nil {
			return nil, fmt.Errorf("relstore: scan dependency usage: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ActiveError is one row from active_errors, joined back to its file path.
type ActiveError struct {
	FilePath string
	Code     string
	Message  string
	Line     int
}

// ActiveErrors returns every currently-recorded diagnostic, optionally
// scoped to one file path (empty pathFilter returns all), for the `errors`
// tool. The active_errors table itself is populated by an out-of-scope
// external diagnostics collaborator; this is the read side only.
func (s *Store) ActiveErrors(ctx context.Context, pathFilter string) ([]ActiveError, error) {
	query := `
		SELECT f.path, e.code, e.message, e.line
		FROM active_errors e
		JOIN files f ON f.id = e.file_id
	`
	args := []any{}
	if pathFilter != "" {
		query += ` WHERE f.path = ?`
		args = append(args, pathFilter)
	}
	query += ` ORDER BY f.path, e.line`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("relstore: active errors: %w", err)
	}
	defer rows.Close()

	var out []ActiveError
	for rows.Next() {
		var e ActiveError
		if err := rows.Scan(&e.FilePath, &e.Code, &e.Message, &e.Line); err != nil {
			return nil, fmt.Errorf("relstore: scan active error: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FileSummary returns the LLM-generated summary for path, if one has been
// produced by the (out-of-scope) summarizer worker.
func (s *Store) FileSummary(ctx context.Context, path string) (string, bool, error) {
	var summary string
	err := s.db.QueryRowContext(ctx, `
		SELECT fs.summary
		FROM file_summaries fs
		JOIN files f ON f.id = fs.file_id
		WHERE f.path = ?
	`, path).Scan(&summary)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("relstore: file summary for %s: %w", path, err)
	}
	return summary, true, nil
}

// FileLanguage is the narrow path+language pair domain-stats needs to
// classify every indexed file without loading its full FileRecord.
type FileLanguage struct {
	Path     string
	Language string
}

// AllFileLanguages returns every indexed file's path and detected
// language, for the `domain-stats` tool's per-domain aggregation.
func (s *Store) AllFileLanguages(ctx context.Context) ([]FileLanguage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, language FROM files`)
	if err != nil {
		return nil, fmt.Errorf("relstore: list file languages: %w", err)
	}
	defer rows.Close()

	var out []FileLanguage
	for rows.Next() {
		var f FileLanguage
		if err := rows.Scan(&f.Path, &f.Language); err != nil {
			return nil, fmt.Errorf("relstore: scan file language: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// FindSymbolID resolves a symbol by exact name, for the `references`
// tool's symbol_name -> symbol_id lookup. Ambiguous names (multiple
// symbols sharing one name across files) resolve to the lowest id, same
// tie-break resolveGlobal uses for an unresolved reference's target.
func (s *Store) FindSymbolID(ctx context.Context, name string) (int64, bool, error) {
	var id sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MIN(id) FROM symbols WHERE name = ?`, name).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("relstore: find symbol %s: %w", name, err)
	}
	if !id.Valid {
		return 0, false, nil
	}
	return id.Int64, true, nil
}

// AllEntityLinks returns every cross-stack route link, for the
// `cross-stack` tool.
func (s *Store) AllEntityLinks(ctx context.Context) ([]EntityLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_kind, from_ref, to_kind, to_ref, confidence, link_type FROM entity_links
	`)
	if err != nil {
		return nil, fmt.Errorf("relstore: list entity_links: %w", err)
	}
	defer rows.Close()

	var out []EntityLink
	for rows.Next() {
		var l EntityLink
		if err := rows.Scan(&l.FromKind, &l.FromRef, &l.ToKind, &l.ToRef, &l.Confidence, &l.LinkType); err != nil {
			return nil, fmt.Errorf("relstore: scan entity_link: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// StructuralLink is one cross_stack_links row, resolved back to the two
// type names it connects.
type StructuralLink struct {
	LeftName   string
	RightName  string
	Similarity float64
}

// AllStructuralLinks returns every structural (Jaccard-similarity) link
// between type fingerprints, for the `cross-stack` tool.
func (s *Store) AllStructuralLinks(ctx context.Context) ([]StructuralLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT lf.name, rf.name, c.similarity
		FROM cross_stack_links c
		JOIN type_fingerprints lf ON lf.id = c.left_fingerprint_id
		JOIN type_fingerprints rf ON rf.id = c.right_fingerprint_id
	`)
	if err != nil {
		return nil, fmt.Errorf("relstore: list cross_stack_links: %w", err)
	}
	defer rows.Close()

	var out []StructuralLink
	for rows.Next() {
		var l StructuralLink
		if err := rows.Scan(&l.LeftName, &l.RightName, &l.Similarity); err != nil {
			return nil, fmt.Errorf("relstore: scan cross_stack_link: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// SymbolsForFile returns every symbol recorded for path, ordered by
// position, for tools that need a file's outline without a full parse
// (e.g. a cache-hit path for `skeleton`).
func (s *Store) SymbolsForFile(ctx context.Context, path string) ([]SymbolHit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, f.path, s.name, s.kind, s.signature, s.line_start, s.line_end, 0
		FROM symbols s
		JOIN files f ON f.id = s.file_id
		WHERE f.path = ?
		ORDER BY s.line_start
	`, path)
	if err != nil {
		return nil, fmt.Errorf("relstore: symbols for %s: %w", path, err)
	}
	defer rows.Close()

	var out []SymbolHit
	for rows.Next() {
		var h SymbolHit
		if err := rows.Scan(&h.SymbolID, &h.FilePath, &h.Name, &h.Kind, &h.Signature, &h.LineStart, &h.LineEnd, &h.Score); err != nil {
			return nil, fmt.Errorf("relstore: scan symbol: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
