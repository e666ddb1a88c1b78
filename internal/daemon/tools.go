package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kestrel-forge/codegraphd/internal/domain"
	"github.com/kestrel-forge/codegraphd/internal/parser"
	"github.com/kestrel-forge/codegraphd/internal/retrieval"
)

// dispatchTool runs one tools/call request against project, against the
// daemon's full tool surface. Params are the raw JSON arguments from
// ToolsCallParams.
func dispatchTool(ctx context.Context, p *Project, name string, args json.RawMessage) (any, error) {
	if strings.HasPrefix(name, rustAnalyzerToolPrefix) || name == ToolLangToolsList || name == ToolLangToolsCall {
		return nil, notAvailableError{tool: name}
	}

	switch name {
	case ToolReadFile:
		return handleReadFile(p, args)
	case ToolSkeleton:
		return handleSkeleton(ctx, p, args)
	case ToolGrep:
		return handleGrep(ctx, p, args)
	case ToolFindFiles:
		return handleFindFiles(ctx, p, args)
	case ToolContextBundle:
		return handleContextBundle(ctx, p, args)
	case ToolReadFunctionContext:
		return handleReadFunctionContext(ctx, p, args)
	case ToolReadTypesOnly:
		return handleReadTypesOnly(ctx, p, args)
	case ToolSearch:
		return handleSearch(ctx, p, args)
	case ToolSymbols:
		return handleSymbols(ctx, p, args)
	case ToolReferences:
		return handleReferences(ctx, p, args)
	case ToolDependencies:
		return handleDependencies(ctx, p, args)
	case ToolErrors:
		return handleErrors(ctx, p, args)
	case ToolDomainStats:
		return handleDomainStats(ctx, p)
	case ToolSummaries:
		return handleSummaries(ctx, p, args)
	case ToolCrossStack:
		return handleCrossStack(ctx, p)
	default:
		return nil, fmt.Errorf("daemon: unknown tool %q", name)
	}
}

// notAvailableError is returned for tool families that are recognized but
// deliberately unimplemented (out-of-scope external collaborators) so a
// caller's error handling can tell them apart from a typo.
type notAvailableError struct{ tool string }

func (e notAvailableError) Error() string {
	return fmt.Sprintf("tool %q is an external collaborator not available in this core", e.tool)
}

type pathArgs struct {
	Path string `json:"path"`
}

// readFileCacheKey is the Files cache's key format: bare repo-relative path.
func readFileCacheKey(path string) string { return path }

// handleReadFile serves a file's raw content, mtime-validated against the
// Files request cache.
func handleReadFile(p *Project, args json.RawMessage) (any, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("daemon: read-file: invalid arguments: %w", err)
	}

	abs := filepath.Join(p.Path, a.Path)
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("daemon: read-file %s: %w", a.Path, err)
	}

	if cached, mtime, ok := p.Cache.Files.GetWithMtime(readFileCacheKey(a.Path)); ok && mtime.Equal(info.ModTime()) {
		return map[string]any{"path": a.Path, "content": string(cached)}, nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("daemon: read-file %s: %w", a.Path, err)
	}
	p.Cache.Files.PutWithMtime(readFileCacheKey(a.Path), data, info.ModTime())
	return map[string]any{"path": a.Path, "content": string(data)}, nil
}

// parseOnDemand re-runs the single-pass parser over path's current
// on-disk content. Tools that need a fresh ParsedDoc (skeleton,
// context-bundle, read-function-context, read-types-only) all go through
// this rather than relstore's already-persisted symbols/chunks, since
// those tools serve content the caller wants to read, not just search.
func parseOnDemand(ctx context.Context, p *Project, relPath string) (*parser.ParsedDoc, error) {
	lang, ok := parser.LanguageForExtension(filepath.Ext(relPath))
	if !ok {
		return nil, fmt.Errorf("daemon: %s: unsupported language for extension %q", relPath, filepath.Ext(relPath))
	}
	abs := filepath.Join(p.Path, relPath)
	source, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("daemon: read %s: %w", relPath, err)
	}
	pp := parser.NewParser()
	if lang == parser.LangVue {
		return parser.ParseVue(ctx, pp, source, relPath)
	}
	return pp.ParseFile(ctx, source, relPath, lang)
}

// handleSkeleton serves a structure-only view of path (signatures and
// declarations, bodies elided), cached under SymbolJSON.
func handleSkeleton(ctx context.Context, p *Project, args json.RawMessage) (any, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("daemon: skeleton: invalid arguments: %w", err)
	}

	if cached, ok := p.Cache.SymbolJSON.Get("skeleton:" + a.Path); ok {
		return map[string]any{"path": a.Path, "skeleton": string(cached)}, nil
	}

	doc, err := parseOnDemand(ctx, p, a.Path)
	if err != nil {
		return nil, err
	}
	p.Cache.SymbolJSON.Put("skeleton:"+a.Path, []byte(doc.Skeleton))
	return map[string]any{"path": a.Path, "skeleton": doc.Skeleton}, nil
}

type grepArgs struct {
	Pattern    string `json:"pattern"`
	PathFilter string `json:"path_filter,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// grepMatch is one matching line.
type grepMatch struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// handleGrep runs a regex over every indexed file's current on-disk
// content, scoped to already-indexed paths rather than a fresh filesystem
// walk — this is a codebase-wide search, not a raw ripgrep proxy, since
// the indexed file set is already gitignore/size filtered.
func handleGrep(ctx context.Context, p *Project, args json.RawMessage) (any, error) {
	var a grepArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("daemon: grep: invalid arguments: %w", err)
	}
	re, err := regexp.Compile(a.Pattern)
	if err != nil {
		return nil, fmt.Errorf("daemon: grep: invalid pattern: %w", err)
	}
	limit := a.Limit
	if limit <= 0 {
		limit = 200
	}

	paths, err := p.Store.AllFilePaths(ctx)
	if err != nil {
		return nil, err
	}

	var matches []grepMatch
	for _, path := range paths {
		if a.PathFilter != "" && !strings.HasPrefix(path, a.PathFilter) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(p.Path, path))
		if err != nil {
			continue
		}
		for i, line := range strings.Split(string(data), "\n") {
			if re.MatchString(line) {
				matches = append(matches, grepMatch{Path: path, Line: i + 1, Text: line})
				if len(matches) >= limit {
					return map[string]any{"matches": matches, "truncated": true}, nil
				}
			}
		}
	}
	return map[string]any{"matches": matches, "truncated": false}, nil
}

type findFilesArgs struct {
	Pattern string `json:"pattern"`
}

// handleFindFiles filters the indexed path set by a glob pattern.
func handleFindFiles(ctx context.Context, p *Project, args json.RawMessage) (any, error) {
	var a findFilesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("daemon: find-files: invalid arguments: %w", err)
	}

	paths, err := p.Store.AllFilePaths(ctx)
	if err != nil {
		return nil, err
	}

	var matched []string
	for _, path := range paths {
		if ok, err := filepath.Match(a.Pattern, path); err == nil && ok {
			matched = append(matched, path)
			continue
		}
		if ok, err := filepath.Match(a.Pattern, filepath.Base(path)); err == nil && ok {
			matched = append(matched, path)
		}
	}
	return map[string]any{"paths": matched}, nil
}

// handleContextBundle serves the skeleton plus the (unresolved) references
// extracted from a fresh parse of path, the single-call "give me everything about this file" tool.
func handleContextBundle(ctx context.Context, p *Project, args json.RawMessage) (any, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("daemon: context-bundle: invalid arguments: %w", err)
	}

	doc, err := parseOnDemand(ctx, p, a.Path)
	if err != nil {
		return nil, err
	}
	deps, err := p.Store.DependenciesForFile(ctx, a.Path)
	if err != nil {
		return nil, err
	}
	summary, hasSummary, err := p.Store.FileSummary(ctx, a.Path)
	if err != nil {
		return nil, err
	}

	bundle := map[string]any{
		"path":         a.Path,
		"language":     doc.Language,
		"skeleton":     doc.Skeleton,
		"symbols":      doc.Symbols,
		"imports":      doc.Imports,
		"references":   doc.References,
		"dependencies": deps,
	}
	if hasSummary {
		bundle["summary"] = summary
	}
	return bundle, nil
}

type symbolNameArgs struct {
	Path       string `json:"path"`
	SymbolName string `json:"symbol_name"`
}

// handleReadFunctionContext serves one function/method's own source span
// plus the names of its direct callees (names only, no signatures).
func handleReadFunctionContext(ctx context.Context, p *Project, args json.RawMessage) (any, error) {
	var a symbolNameArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("daemon: read-function-context: invalid arguments: %w", err)
	}

	doc, err := parseOnDemand(ctx, p, a.Path)
	if err != nil {
		return nil, err
	}

	var target *parser.Symbol
	for i := range doc.Symbols {
		if doc.Symbols[i].Name == a.SymbolName {
			target = &doc.Symbols[i]
			break
		}
	}
	if target == nil {
		return nil, notFoundError{what: "symbol", ref: a.SymbolName}
	}

	var callees []string
	seen := map[string]bool{}
	for _, ref := range doc.References {
		if ref.SourceSymbol == a.SymbolName && ref.Kind == parser.RefCall && !seen[ref.TargetName] {
			callees = append(callees, ref.TargetName)
			seen[ref.TargetName] = true
		}
	}

	lines := strings.Split(readSourceForSymbol(p, a.Path), "\n")
	var body string
	if target.LineStart-1 >= 0 && target.LineEnd <= len(lines) {
		body = strings.Join(lines[target.LineStart-1:target.LineEnd], "\n")
	}

	return map[string]any{
		"path":       a.Path,
		"symbol":     target,
		"source":     body,
		"callees":    callees,
	}, nil
}

func readSourceForSymbol(p *Project, relPath string) string {
	data, err := os.ReadFile(filepath.Join(p.Path, relPath))
	if err != nil {
		return ""
	}
	return string(data)
}

// handleReadTypesOnly serves just the type-level declarations (structs,
// enums, interfaces, classes, traits) of path, skeletons of everything
// else elided.
func handleReadTypesOnly(ctx context.Context, p *Project, args json.RawMessage) (any, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("daemon: read-types-only: invalid arguments: %w", err)
	}

	doc, err := parseOnDemand(ctx, p, a.Path)
	if err != nil {
		return nil, err
	}

	var types []parser.Symbol
	for _, s := range doc.Symbols {
		switch s.Kind {
		case parser.KindStruct, parser.KindEnum, parser.KindInterface, parser.KindClass, parser.KindTrait, parser.KindType:
			types = append(types, s)
		}
	}
	return map[string]any{"path": a.Path, "types": types}, nil
}

type searchArgs struct {
	Query      string `json:"query"`
	Limit      int    `json:"limit,omitempty"`
	Mode       string `json:"mode,omitempty"`
	PathFilter string `json:"path_filter,omitempty"`
	Rerank     bool   `json:"rerank,omitempty"`
	Explain    bool   `json:"explain,omitempty"`
}

// handleSearch runs the hybrid retrieval engine, serving from the
// SearchJSON cache when query and limit match a recent request. The cache
// key is query and limit only (mode and path_filter are not part of it);
// explain and rerank requests bypass the cache.
func handleSearch(ctx context.Context, p *Project, args json.RawMessage) (any, error) {
	var a searchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("daemon: search: invalid arguments: %w", err)
	}
	mode := retrieval.Mode(a.Mode)
	if mode == "" {
		mode = retrieval.ModeHybrid
	}

	key := retrieval.CacheKey(a.Query, a.Limit)
	if !a.Explain && !a.Rerank {
		if cached, ok := p.Cache.SearchJSON.Get(key); ok {
			var resp retrieval.Response
			if err := json.Unmarshal(cached, &resp); err == nil {
				return resp, nil
			}
		}
	}

	resp, err := p.Engine.Search(ctx, retrieval.Request{
		Query:      a.Query,
		Limit:      a.Limit,
		Mode:       mode,
		PathFilter: a.PathFilter,
		Rerank:     a.Rerank,
		Explain:    a.Explain,
	})
	if err != nil {
		return nil, err
	}

	if !a.Explain && !a.Rerank {
		if encoded, err := json.Marshal(resp); err == nil {
			p.Cache.SearchJSON.Put(key, encoded)
		}
	}
	return resp, nil
}

type symbolsArgs struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// handleSymbols serves the FTS symbol-name search path directly, narrower
// than the full hybrid `search` tool.
func handleSymbols(ctx context.Context, p *Project, args json.RawMessage) (any, error) {
	var a symbolsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("daemon: symbols: invalid arguments: %w", err)
	}
	limit := a.Limit
	if limit <= 0 {
		limit = 20
	}
	hits, err := p.Store.SearchSymbols(ctx, a.Query, limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"symbols": hits}, nil
}

type referencesArgs struct {
	SymbolName string `json:"symbol_name"`
}

// handleReferences serves every resolved call site targeting symbol_name,
// backed by the reference resolution pass run during indexing.
func handleReferences(ctx context.Context, p *Project, args json.RawMessage) (any, error) {
	var a referencesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("daemon: references: invalid arguments: %w", err)
	}
	id, ok, err := p.Store.FindSymbolID(ctx, a.SymbolName)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFoundError{what: "symbol", ref: a.SymbolName}
	}
	refs, err := p.Store.ReferencesTo(ctx, id)
	if err != nil {
		return nil, err
	}
	return map[string]any{"references": refs}, nil
}

// handleDependencies serves the parsed import list (with usage items) for
// one file.
func handleDependencies(ctx context.Context, p *Project, args json.RawMessage) (any, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("daemon: dependencies: invalid arguments: %w", err)
	}
	deps, err := p.Store.DependenciesForFile(ctx, a.Path)
	if err != nil {
		return nil, err
	}
	return map[string]any{"dependencies": deps}, nil
}

type errorsArgs struct {
	Path string `json:"path,omitempty"`
}

// handleErrors serves currently-recorded diagnostics, optionally scoped to
// one file. active_errors is populated by an out-of-scope external
// diagnostics collaborator; this is the read side only.
func handleErrors(ctx context.Context, p *Project, args json.RawMessage) (any, error) {
	var a errorsArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, fmt.Errorf("daemon: errors: invalid arguments: %w", err)
		}
	}
	errs, err := p.Store.ActiveErrors(ctx, a.Path)
	if err != nil {
		return nil, err
	}
	return map[string]any{"errors": errs}, nil
}

// handleDomainStats serves the per-domain file counts
// (backend/frontend/shared/ops).
func handleDomainStats(ctx context.Context, p *Project) (any, error) {
	counts, err := p.DomainStats(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(counts))
	for d, n := range counts {
		out[string(d)] = n
	}
	for _, d := range []domain.Domain{domain.Backend, domain.Frontend, domain.Shared, domain.Ops} {
		if _, ok := out[string(d)]; !ok {
			out[string(d)] = 0
		}
	}
	return map[string]any{"counts": out}, nil
}

// handleSummaries serves the LLM-generated summary for one file, if the
// (out-of-scope) summarizer worker has produced one yet.
func handleSummaries(ctx context.Context, p *Project, args json.RawMessage) (any, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("daemon: summaries: invalid arguments: %w", err)
	}
	summary, ok, err := p.Store.FileSummary(ctx, a.Path)
	if err != nil {
		return nil, err
	}
	return map[string]any{"path": a.Path, "summary": summary, "available": ok}, nil
}

// handleCrossStack serves the already-synced route and structural
// cross-stack links — it never triggers a new Sync itself, since Sync
// runs as part of every full reindex.
func handleCrossStack(ctx context.Context, p *Project) (any, error) {
	entityLinks, err := p.Store.AllEntityLinks(ctx)
	if err != nil {
		return nil, err
	}
	structural, err := p.Store.AllStructuralLinks(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"entity_links": entityLinks, "structural_links": structural}, nil
}

// notFoundError maps to ErrCodeNotFound in the daemon's error taxonomy.
type notFoundError struct {
	what string
	ref  string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.what, e.ref)
}
