// Package pipeline implements the five-stage indexing pipeline: scanner
// -> parser pool -> batcher -> embedder -> writer, connected by bounded
// channels so no stage can run unboundedly ahead of a slower downstream
// one.
package pipeline

import (
	"context"
	"time"

	"github.com/kestrel-forge/codegraphd/internal/parser"
)

// Channel capacities between pipeline stages.
const (
	scanChannelCap  = 512
	parseChannelCap = 256
	batchChannelCap = 64
	embedChannelCap = 64
)

const maxFileSize = 2 * 1024 * 1024 // 2 MiB, enforced by the scanner stage

// FileTask is one file the scanner found changed (or new), ready to parse.
type FileTask struct {
	Path        string
	Content     []byte
	ContentHash string
	Modified    int64
	Language    parser.Language
	Size        int64
}

// ParsedFile pairs a scanned file with its single-pass parse output.
type ParsedFile struct {
	Task FileTask
	Doc  *parser.ParsedDoc
}

// chunkUnit is one chunk plus the file metadata it needs for batching and
// for the eventual relational/vector writes.
type chunkUnit struct {
	file  FileTask
	chunk parser.Chunk
}

// Batch is an adaptively-sized group of chunks the embedder stage
// processes as one unit.
type Batch struct {
	Chunks []chunkUnit
	Files  map[string]*ParsedFile // path -> parsed doc, for the writer's per-file relational write
}

// EmbeddedChunk is one chunk with its resolved embedding, in the batch's
// original order.
type EmbeddedChunk struct {
	File   FileTask
	Chunk  parser.Chunk
	Vector []float32
}

// Result summarizes one pipeline run.
type Result struct {
	FilesScanned   int
	FilesUnchanged int
	FilesParsed    int
	FilesDeleted   int
	ChunksEmbedded int
	CacheHits      int
	CacheMisses    int
	ReferencesResolved int
}

// RelationalStore and the store interfaces below are the narrow slice of
// relstore/vecstore/embedpool the pipeline needs — kept as interfaces so pipeline never imports the concrete
// packages' other surface area than it uses, and so tests can fake them.
type RelationalStore interface {
	GetFile(ctx context.Context, path string) (FileRecord, bool, error)
	WriteFileArtifacts(ctx context.Context, path string, lang parser.Language, mtime int64, contentHash string, sizeBytes int64, doc *parser.ParsedDoc) (int64, error)
	DeleteFile(ctx context.Context, path string) error
	AllFilePaths(ctx context.Context) ([]string, error)
	CacheLookup(ctx context.Context, chunkID, contentHash, modelVersion string) ([]byte, bool, error)
	CachePut(ctx context.Context, chunkID, contentHash, modelVersion string, embedding []byte) error
	ResolveReferences(ctx context.Context) (int, error)
	EvictCache(ctx context.Context, maxAge time.Duration, maxCount int) (int, error)
}

// FileRecord mirrors relstore.FileRecord's Unchanged check — duplicated
// here (rather than imported) so this package's interface boundary stays
// self-contained.
type FileRecord struct {
	Mtime       int64
	ContentHash string
}

// Unchanged reports whether mtime/contentHash match a previously indexed
// file.
func (f FileRecord) Unchanged(mtime int64, contentHash string) bool {
	return f.Mtime == mtime && f.ContentHash == contentHash
}

// VectorStore is the slice of vecstore.Store the writer stage needs.
type VectorStore interface {
	UpsertChunks(ctx context.Context, chunks []VectorChunk) error
	DeleteByPaths(ctx context.Context, paths []string) error
	ShouldCompact(ctx context.Context, meta MetadataStore) (bool, error)
	Compact(ctx context.Context, meta MetadataStore) error
}

// VectorChunk is the vecstore.Chunk shape, duplicated for the same
// interface-boundary reason as FileRecord.
type VectorChunk struct {
	ID         string
	FilePath   string
	Content    string
	LineStart  int
	LineEnd    int
	SymbolName string
	SymbolKind string
	SymbolPath string
	Vector     []float32
}

// MetadataStore is vecstore's compaction-watermark interface, re-exported
// so callers can pass a relstore.Store straight through.
type MetadataStore interface {
	GetIndexMeta(ctx context.Context, key string) (string, bool, error)
	SetIndexMeta(ctx context.Context, key, value string) error
}

// Embedder is the slice of embedpool.Pool the embedder stage needs.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}
