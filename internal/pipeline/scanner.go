package pipeline

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/kestrel-forge/codegraphd/internal/gitignore"
	"github.com/kestrel-forge/codegraphd/internal/parser"
)

// ScanConfig configures one scan pass.
type ScanConfig struct {
	Root         string
	ExtraIgnores []string // additional gitignore-syntax patterns, e.g. from config
}

// scan walks root, honouring .gitignore files (nested ones included) plus
// ExtraIgnores, skips anything over maxFileSize, and emits a FileTask for
// every file whose (mtime, content hash) differs from what store already
// has on record. Every candidate file is read and hashed; unchanged files
// are simply not emitted.
//
// Results stream out on the returned channel; deletedPaths is filled once
// the walk completes by diffing the live path set against
// store.AllFilePaths, covering files removed from disk since the last
// sync. The scan goroutine closes the returned channel when done or when
// ctx is cancelled.
func scan(ctx context.Context, cfg ScanConfig, store RelationalStore, stats *Result) (<-chan FileTask, func() ([]string, error)) {
	out := make(chan FileTask, scanChannelCap)
	seen := make(map[string]struct{})
	var seenMu sync.Mutex

	deletedFn := func() ([]string, error) {
		all, err := store.AllFilePaths(ctx)
		if err != nil {
			return nil, err
		}
		seenMu.Lock()
		defer seenMu.Unlock()
		var deleted []string
		for _, p := range all {
			if _, ok := seen[p]; !ok {
				deleted = append(deleted, p)
			}
		}
		return deleted, nil
	}

	go func() {
		defer close(out)

		root := cfg.Root
		matchers := newMatcherCache()
		base := matchers.forDir(root)
		for _, pat := range cfg.ExtraIgnores {
			base.AddPattern(pat)
		}

		_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil // best-effort: an unreadable entry is skipped, not fatal
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return nil
			}
			if rel == "." {
				return nil
			}
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if rel == ".git" || strings.HasPrefix(rel, ".git/") {
					return filepath.SkipDir
				}
				m := matchers.forDir(filepath.Dir(path))
				if m.Match(rel, true) {
					return filepath.SkipDir
				}
				if gi := filepath.Join(path, ".gitignore"); fileExists(gi) {
					matchers.loadInto(path, gi)
				}
				return nil
			}

			m := matchers.forDir(filepath.Dir(path))
			if m.Match(rel, false) {
				return nil
			}

			lang, ok := parser.LanguageForExtension(filepath.Ext(path))
			if !ok {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return nil
			}
			if info.Size() > maxFileSize {
				return nil
			}

			content, err := os.ReadFile(path)
			if err != nil {
				return nil
			}

			seenMu.Lock()
			seen[rel] = struct{}{}
			seenMu.Unlock()

			hash := hashContent(content)
			mtime := info.ModTime().Unix()

			if existing, ok, err := store.GetFile(ctx, rel); err == nil && ok {
				if existing.Unchanged(mtime, hash) {
					seenMu.Lock()
					stats.FilesUnchanged++
					seenMu.Unlock()
					return nil
				}
			}

			select {
			case out <- FileTask{
				Path:        rel,
				Content:     content,
				ContentHash: hash,
				Modified:    mtime,
				Language:    lang,
				Size:        info.Size(),
			}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
	}()

	return out, deletedFn
}

// hashContent returns the BLAKE3 hex digest of content, used as the
// change-detection hash so a re-sync can tell an unchanged file from a
// touched one without diffing bytes (see zeebo/blake3 in DESIGN.md).
func hashContent(content []byte) string {
	h := blake3.New()
	h.Write(content)
	sum := h.Sum(nil)
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(sum)*2)
	for i, b := range sum {
		out[i*2] = hexDigits[b>>4]
		out[i*2+1] = hexDigits[b&0x0f]
	}
	return string(out)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// matcherCache builds one gitignore.Matcher per directory, seeded with its
// ancestors' patterns, so a nested .gitignore only ever has to contribute
// its own lines.
type matcherCache struct {
	byDir map[string]*gitignore.Matcher
}

func newMatcherCache() *matcherCache {
	return &matcherCache{byDir: make(map[string]*gitignore.Matcher)}
}

func (c *matcherCache) forDir(dir string) *gitignore.Matcher {
	if m, ok := c.byDir[dir]; ok {
		return m
	}
	m := gitignore.New()
	c.byDir[dir] = m
	return m
}

func (c *matcherCache) loadInto(dir, gitignorePath string) {
	m := c.forDir(dir)
	f, err := os.Open(gitignorePath)
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m.AddPatternWithBase(scanner.Text(), dir)
	}
}

