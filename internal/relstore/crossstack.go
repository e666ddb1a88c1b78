package relstore

import (
	"context"
	"database/sql"
	"fmt"
)

// APIEndpoint is a row from api_endpoints — a backend route handler found
// by the cross-stack linker's route-extraction pass.
type APIEndpoint struct {
	FileID        int64
	Method        string
	Path          string
	HandlerSymbol string
	Line          int
	Framework     string
}

// FrontendAPICall is a row from frontend_api_calls — an axios/fetch call
// site found in a frontend source file.
type FrontendAPICall struct {
	FileID int64
	Method string
	Path   string
	Line   int
}

// EntityLink is a row from entity_links — a cross-stack relationship
// between a backend and frontend entity, route-based or structural.
type EntityLink struct {
	FromKind   string
	FromRef    string
	ToKind     string
	ToRef      string
	Confidence float64
	LinkType   string
}

// TypeFingerprint is a row from type_fingerprints — the normalized field
// set of one struct/interface/class, the operand for the linker's Jaccard
// comparison.
type TypeFingerprint struct {
	ID               int64
	FileID           int64
	Name             string
	Language         string
	FieldCount       int
	NormalizedFields []string
}

// ReplaceAPIEndpoints clears and rewrites every api_endpoints row for a
// file, mirroring WriteFileArtifacts' per-file replace semantics.
func (s *Store) ReplaceAPIEndpoints(ctx context.Context, fileID int64, endpoints []APIEndpoint) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM api_endpoints WHERE file_id = ?`, fileID); err != nil {
			return fmt.Errorf("clear api_endpoints: %w", err)
		}
		for _, e := range endpoints {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO api_endpoints(file_id, method, path, handler_symbol, line, framework)
				VALUES (?, ?, ?, ?, ?, ?)
			`, fileID, e.Method, e.Path, e.HandlerSymbol, e.Line, e.Framework); err != nil {
				return fmt.Errorf("insert api_endpoint %s %s: %w", e.Method, e.Path, err)
			}
		}
		return nil
	})
}

// ReplaceFrontendAPICalls clears and rewrites every frontend_api_calls row
// for a file.
func (s *Store) ReplaceFrontendAPICalls(ctx context.Context, fileID int64, calls []FrontendAPICall) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM frontend_api_calls WHERE file_id = ?`, fileID); err != nil {
			return fmt.Errorf("clear frontend_api_calls: %w", err)
		}
		for _, c := range calls {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO frontend_api_calls(file_id, method, path, line) VALUES (?, ?, ?, ?)
			`, fileID, c.Method, c.Path, c.Line); err != nil {
				return fmt.Errorf("insert frontend_api_call %s %s: %w", c.Method, c.Path, err)
			}
		}
		return nil
	})
}

// AllTypeFingerprints returns every stored fingerprint, for the linker's
// cross-file Jaccard comparison pass.
func (s *Store) AllTypeFingerprints(ctx context.Context) ([]TypeFingerprint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_id, name, language, field_count, normalized_fields FROM type_fingerprints
	`)
	if err != nil {
		return nil, fmt.Errorf("relstore: list type_fingerprints: %w", err)
	}
	defer rows.Close()

	var out []TypeFingerprint
	for rows.Next() {
		var fp TypeFingerprint
		var fields string
		if err := rows.Scan(&fp.ID, &fp.FileID, &fp.Name, &fp.Language, &fp.FieldCount, &fields); err != nil {
			return nil, fmt.Errorf("relstore: scan type_fingerprint: %w", err)
		}
		fp.NormalizedFields = decodeFields(fields)
		out = append(out, fp)
	}
	return out, rows.Err()
}

// AllAPIEndpoints returns every stored backend route, for the linker's
// route-matching pass.
func (s *Store) AllAPIEndpoints(ctx context.Context) ([]APIEndpoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file_id, method, path, handler_symbol, line, framework FROM api_endpoints
	`)
	if err != nil {
		return nil, fmt.Errorf("relstore: list api_endpoints: %w", err)
	}
	defer rows.Close()

	var out []APIEndpoint
	for rows.Next() {
		var e APIEndpoint
		if err := rows.Scan(&e.FileID, &e.Method, &e.Path, &e.HandlerSymbol, &e.Line, &e.Framework); err != nil {
			return nil, fmt.Errorf("relstore: scan api_endpoint: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AllFrontendAPICalls returns every stored frontend call site.
func (s *Store) AllFrontendAPICalls(ctx context.Context) ([]FrontendAPICall, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT file_id, method, path, line FROM frontend_api_calls`)
	if err != nil {
		return nil, fmt.Errorf("relstore: list frontend_api_calls: %w", err)
	}
	defer rows.Close()

	var out []FrontendAPICall
	for rows.Next() {
		var c FrontendAPICall
		if err := rows.Scan(&c.FileID, &c.Method, &c.Path, &c.Line); err != nil {
			return nil, fmt.Errorf("relstore: scan frontend_api_call: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ReplaceEntityLinks clears and rewrites the full entity_links table —
// the route-linking pass is a full clear-and-rebuild per sync.
func (s *Store) ReplaceEntityLinks(ctx context.Context, links []EntityLink) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM entity_links`); err != nil {
			return fmt.Errorf("clear entity_links: %w", err)
		}
		for _, l := range links {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO entity_links(from_kind, from_ref, to_kind, to_ref, confidence, link_type)
				VALUES (?, ?, ?, ?, ?, ?)
			`, l.FromKind, l.FromRef, l.ToKind, l.ToRef, l.Confidence, l.LinkType); err != nil {
				return fmt.Errorf("insert entity_link %s->%s: %w", l.FromRef, l.ToRef, err)
			}
		}
		return nil
	})
}

// InsertCrossStackLink records one structural cross_stack_links row.
// Callers clear the table first with ClearCrossStackLinks — the
// structural-fingerprint pass is a full clear-and-rebuild per sync.
func (s *Store) InsertCrossStackLink(ctx context.Context, leftFingerprintID, rightFingerprintID int64, similarity float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cross_stack_links(left_fingerprint_id, right_fingerprint_id, similarity) VALUES (?, ?, ?)
	`, leftFingerprintID, rightFingerprintID, similarity)
	if err != nil {
		return fmt.Errorf("relstore: insert cross_stack_link: %w", err)
	}
	return nil
}

// ClearCrossStackLinks empties cross_stack_links ahead of a full rebuild.
func (s *Store) ClearCrossStackLinks(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cross_stack_links`); err != nil {
		return fmt.Errorf("relstore: clear cross_stack_links: %w", err)
	}
	return nil
}

// encodeFields/decodeFields store normalized_fields as a newline-joined
// blob rather than reaching for a JSON column — field names can't contain
// newlines (they're derived from identifier characters), so this avoids a
// JSON marshal/unmarshal round trip for what is always a flat string list.
func encodeFields(fields []string) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += "\n"
		}
		out += f
	}
	return out
}

func decodeFields(blob string) []string {
	if blob == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(blob); i++ {
		if i == len(blob) || blob[i] == '\n' {
			out = append(out, blob[start:i])
			start = i + 1
		}
	}
	return out
}
