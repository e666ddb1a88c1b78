package relstore

import (
	"context"
	"fmt"
	"strings"
)

// SymbolHit is one FTS5 match against the symbols table.
type SymbolHit struct {
	SymbolID  int64
	FilePath  string
	Name      string
	Kind      string
	Signature string
	LineStart int
	LineEnd   int
	Score     float64
}

// SearchSymbols runs query against the FTS5 symbols index, sanitizing it
// first so a query containing FTS5 operator characters (", *, -, NEAR) or
// dangling quotes never reaches sqlite as anything but a single literal
// phrase-match term.
func (s *Store) SearchSymbols(ctx context.Context, query string, limit int) ([]SymbolHit, error) {
	sanitized := sanitizeFTSQuery(query)
	if sanitized == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, f.path, s.name, s.kind, s.signature, s.line_start, s.line_end, bm25(symbols_fts) AS score
		FROM symbols_fts
		JOIN symbols s ON s.id = symbols_fts.symbol_id
		JOIN files f ON f.id = s.file_id
		WHERE symbols_fts MATCH ?
		ORDER BY score
		LIMIT ?
	`, sanitized, limit)
	if err != nil {
		if strings.Contains(err.Error(), "fts5") || strings.Contains(err.Error(), "syntax error") {
			return nil, nil
		}
		return nil, fmt.Errorf("relstore: search symbols: %w", err)
	}
	defer rows.Close()

	var out []SymbolHit
	for rows.Next() {
		var h SymbolHit
		if err := rows.Scan(&h.SymbolID, &h.FilePath, &h.Name, &h.Kind, &h.Signature, &h.LineStart, &h.LineEnd, &h.Score); err != nil {
			return nil, fmt.Errorf("relstore: scan symbol hit: %w", err)
		}
		// bm25() is negative-is-better; normalize to positive-is-better so
		// callers can max-merge this with vector scores without a sign flip.
		h.Score = -h.Score
		out = append(out, h)
	}
	return out, rows.Err()
}

// sanitizeFTSQuery trims query and wraps it as a single FTS5 phrase term,
// doubling any embedded double quotes (FTS5's phrase-internal escape for a
// literal `"`). Wrapping the whole string in one pair of quotes forces
// phrase matching and neutralizes every FTS5 operator (AND, OR, NOT, NEAR,
// column filters, prefix `*`) without dropping any word the caller typed —
// they all become literal content of the phrase instead of query syntax.
func sanitizeFTSQuery(query string) string {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return ""
	}
	escaped := strings.ReplaceAll(trimmed, `"`, `""`)
	return `"` + escaped + `"`
}
