// Package domain classifies a file's coarse domain
// (backend|frontend|shared|ops|unknown) for filtering and routing —
// used by internal/crossstack's backend/frontend distinction and by the
// daemon's domain-stats tool. Classification is computed on demand from
// the project's config.DomainsConfig path prefixes rather than persisted
// per-file: the prefix list can change between restarts (a user edits
// .gofer/config.toml) and recomputation over an already-loaded file list
// is cheap, so there is no stale-column invalidation problem to solve.
//
// Detection is two-level: path-prefix first, extension fallback second.
// A third level — import/content scoring for a per-file tech-stack guess
// — is not implemented, since nothing downstream consumes that level of
// detail and it would be unexercised code.
package domain

import (
	"path/filepath"
	"strings"

	"github.com/kestrel-forge/codegraphd/internal/config"
)

// Domain is the coarse classification bucket for a File.
type Domain string

const (
	Backend  Domain = "backend"
	Frontend Domain = "frontend"
	Shared   Domain = "shared"
	Ops      Domain = "ops"
	Unknown  Domain = "unknown"
)

// Classify returns relPath's domain, checking shared/ops/backend/frontend
// path prefixes in that priority order before falling back to an
// extension-based guess.
func Classify(relPath string, cfg config.DomainsConfig) Domain {
	relPath = filepath.ToSlash(relPath)

	if matchesAny(relPath, cfg.SharedPaths) {
		return Shared
	}
	if matchesAny(relPath, cfg.OpsPaths) {
		return Ops
	}
	if matchesAny(relPath, cfg.RustPaths) || matchesAny(relPath, cfg.PythonPaths) {
		return Backend
	}
	if matchesAny(relPath, cfg.FrontendPaths) {
		return Frontend
	}
	return byExtension(relPath)
}

func matchesAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func byExtension(path string) Domain {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".rs", ".py", ".go", ".sql":
		return Backend
	case ".vue", ".tsx", ".jsx":
		return Frontend
	case ".yaml", ".yml":
		return Ops
	default:
		return Unknown
	}
}
