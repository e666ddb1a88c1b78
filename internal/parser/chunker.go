package parser

import (
	"fmt"
	"strings"
)

// Chunk size bounds enforced by the accumulator: a chunk below
// minChunkBytes is merged into its neighbour, and a single AST node above
// maxChunkBytes is split rather than emitted whole.
const (
	minChunkBytes = 64
	maxChunkBytes = 2048
)

// Chunker turns a parsed file into AST-aligned chunks: it walks top-level
// declarations in source order, accumulating consecutive small ones into a
// single chunk and splitting any declaration (or run of declarations) that
// would overflow maxChunkBytes.
type Chunker struct {
	path string
}

// NewChunker returns a chunker that stamps chunk IDs with path.
func NewChunker(path string) *Chunker {
	return &Chunker{path: path}
}

// Chunk produces the file's chunk list from its parsed tree and previously
// extracted symbols, which supply breadcrumbs and symbol attribution.
func (c *Chunker) Chunk(tree *Tree, symbols []Symbol) []Chunk {
	topLevel := topLevelSpans(tree, symbols)
	if len(topLevel) == 0 {
		return c.chunkWholeFile(tree)
	}

	var out []Chunk
	var acc []span
	accBytes := 0

	flush := func() {
		if len(acc) == 0 {
			return
		}
		out = append(out, c.buildChunk(tree.Source, acc)...)
		acc = nil
		accBytes = 0
	}

	for _, sp := range topLevel {
		size := int(sp.endByte - sp.startByte)
		if size > maxChunkBytes {
			flush()
			out = append(out, c.splitOversized(tree.Source, sp)...)
			continue
		}
		if accBytes >= minChunkBytes && accBytes+size > maxChunkBytes {
			flush()
		}
		acc = append(acc, sp)
		accBytes += size
	}
	flush()

	return out
}

type span struct {
	startByte, endByte     uint32
	startLine, endLine     int
	symbolName             string
	symbolKind             SymbolKind
	breadcrumbs            []string
}

// topLevelSpans merges the tree's top-level nodes with symbol metadata so
// each span knows the symbol (if any) it belongs to.
func topLevelSpans(tree *Tree, symbols []Symbol) []span {
	byLine := make(map[int]Symbol, len(symbols))
	for _, s := range symbols {
		byLine[s.LineStart] = s
	}

	var out []span
	for _, child := range tree.Root.Children {
		if child.Type == "comment" {
			continue
		}
		startLine := int(child.StartPoint.Row) + 1
		sp := span{
			startByte: child.StartByte,
			endByte:   child.EndByte,
			startLine: startLine,
			endLine:   int(child.EndPoint.Row) + 1,
		}
		if sym, ok := byLine[startLine]; ok {
			sp.symbolName = sym.Name
			sp.symbolKind = sym.Kind
			sp.breadcrumbs = []string{sym.Name}
		}
		out = append(out, sp)
	}
	return out
}

// buildChunk emits one chunk covering every span in group (already bounded
// to maxChunkBytes by the caller); merging small spans up to minChunkBytes
// is done by Chunk's accumulator before the group reaches here.
func (c *Chunker) buildChunk(source []byte, group []span) []Chunk {
	first, last := group[0], group[len(group)-1]
	content := string(source[first.startByte:last.endByte])

	symbolName, symbolKind := first.symbolName, first.symbolKind
	if len(group) > 1 {
		symbolName, symbolKind = "", ""
	}

	return []Chunk{{
		ID:          fmt.Sprintf("%s:%d:%d", c.path, first.startLine, last.endLine),
		LineStart:   first.startLine,
		LineEnd:     last.endLine,
		Content:     withContext(content, first.breadcrumbs),
		SymbolName:  symbolName,
		SymbolKind:  symbolKind,
		Breadcrumbs: first.breadcrumbs,
	}}
}

// splitOversized breaks a single AST node larger than maxChunkBytes into
// line-aligned slices, each prefixed with the same breadcrumb so a reader
// (or a reranker) can still tell which symbol a fragment came from.
func (c *Chunker) splitOversized(source []byte, sp span) []Chunk {
	lines := strings.Split(string(source[sp.startByte:sp.endByte]), "\n")
	var out []Chunk
	curStart := sp.startLine
	var buf strings.Builder

	flush := func(endLine int) {
		if buf.Len() == 0 {
			return
		}
		out = append(out, Chunk{
			ID:          fmt.Sprintf("%s:%d:%d", c.path, curStart, endLine),
			LineStart:   curStart,
			LineEnd:     endLine,
			Content:     withContext(buf.String(), sp.breadcrumbs),
			SymbolName:  sp.symbolName,
			SymbolKind:  sp.symbolKind,
			Breadcrumbs: sp.breadcrumbs,
		})
		buf.Reset()
	}

	for i, line := range lines {
		if buf.Len() > 0 && buf.Len()+len(line)+1 > maxChunkBytes {
			flush(curStart + i - 1)
			curStart = sp.startLine + i
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	flush(sp.endLine)

	return out
}

// chunkWholeFile handles files with no top-level declarations (e.g. an
// empty file, or one tree-sitter couldn't usefully decompose).
func (c *Chunker) chunkWholeFile(tree *Tree) []Chunk {
	if len(tree.Source) == 0 {
		return nil
	}
	sp := span{
		startByte: 0,
		endByte:   uint32(len(tree.Source)),
		startLine: 1,
		endLine:   int(tree.Root.EndPoint.Row) + 1,
	}
	if sp.endByte-sp.startByte > maxChunkBytes {
		return c.splitOversized(tree.Source, sp)
	}
	return c.buildChunk(tree.Source, []span{sp})
}

// withContext prefixes content with a "// Context: a > b" breadcrumb
// comment whenever the chunk carries any breadcrumbs (including a single
// top-level symbol name), so an embedding (or a
// human reading search results) retains enclosing-scope information that
// the raw line range alone would lose.
func withContext(content string, breadcrumbs []string) string {
	if len(breadcrumbs) == 0 {
		return content
	}
	return fmt.Sprintf("// Context: %s\n%s", strings.Join(breadcrumbs, " > "), content)
}
