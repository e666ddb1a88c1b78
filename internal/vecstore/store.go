package vecstore

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

const refineFactor = 5
const pathFilterFetchMultiplier = 3

// Store is the chunk vector store: an HNSW graph over chunk embeddings,
// plus the columnar chunk table (content, line range, symbol attribution)
// needed to turn a nearest-neighbour hit back into a retrievable snippet
// without a round trip to the relational store.
type Store struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	config Config

	idMap   map[string]uint64 // chunk id -> graph key
	keyMap  map[uint64]string // graph key -> chunk id
	nextKey uint64

	chunks      map[string]Chunk   // chunk id -> row
	pathIndex   map[string][]string // file path -> chunk ids (for upsert/delete by path)
	closed      bool
}

type persistedMeta struct {
	IDMap   map[string]uint64
	NextKey uint64
	Config  Config
}

// New creates an empty store with the given configuration.
func New(cfg Config) *Store {
	if cfg.Metric == "" {
		cfg.Metric = "cos"
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}

	graph := hnsw.NewGraph[uint64]()
	switch cfg.Metric {
	case "l2":
		graph.Distance = hnsw.EuclideanDistance
	default:
		graph.Distance = hnsw.CosineDistance
	}
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &Store{
		graph:     graph,
		config:    cfg,
		idMap:     make(map[string]uint64),
		keyMap:    make(map[uint64]string),
		chunks:    make(map[string]Chunk),
		pathIndex: make(map[string][]string),
	}
}

// UpsertChunks writes a batch of chunk rows. It first deletes every
// existing row for the union of file paths touched by this batch, then
// appends the new rows — a file's chunk set from a previous parse never
// survives alongside its newest parse.
func (s *Store) UpsertChunks(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("vecstore: store is closed")
	}

	for _, c := range chunks {
		if len(c.Vector) != s.config.Dimensions {
			return ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(c.Vector)}
		}
	}

	paths := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		paths[c.FilePath] = struct{}{}
	}
	for path := range paths {
		s.deleteByPathLocked(path)
	}

	for _, c := range chunks {
		s.addLocked(c)
	}
	return nil
}

// DeleteByPaths removes every chunk belonging to any of the given file
// paths — used when the scanner observes a file was removed.
func (s *Store) DeleteByPaths(ctx context.Context, paths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("vecstore: store is closed")
	}
	for _, p := range paths {
		s.deleteByPathLocked(p)
	}
	return nil
}

func (s *Store) deleteByPathLocked(path string) {
	ids := s.pathIndex[path]
	for _, id := range ids {
		s.deleteLocked(id)
	}
	delete(s.pathIndex, path)
}

func (s *Store) addLocked(c Chunk) {
	if existingKey, exists := s.idMap[c.ID]; exists {
		// Lazy deletion: coder/hnsw has a known issue deleting the last
		// node in a graph, so orphan the mapping instead of calling
		// s.graph.Delete.
		delete(s.keyMap, existingKey)
		delete(s.idMap, c.ID)
	}

	key := s.nextKey
	s.nextKey++

	vec := make([]float32, len(c.Vector))
	copy(vec, c.Vector)
	if s.config.Metric == "cos" {
		normalizeVectorInPlace(vec)
	}
	c.Vector = vec

	s.graph.Add(hnsw.MakeNode(key, vec))
	s.idMap[c.ID] = key
	s.keyMap[key] = c.ID
	s.chunks[c.ID] = c
	s.pathIndex[c.FilePath] = append(s.pathIndex[c.FilePath], c.ID)
}

func (s *Store) deleteLocked(id string) {
	if key, exists := s.idMap[id]; exists {
		delete(s.keyMap, key)
		delete(s.idMap, id)
	}
	delete(s.chunks, id)
}

// Search runs a k-nearest-neighbour query, optionally restricted to
// chunks whose file path starts with pathPrefix.
//
// Without a filter it over-fetches by a refine factor of 5 (fetch = 5k
// candidates from the graph, re-ranked by exact score, truncated to k) —
// a holdover from quantized ANN indexes where the approximate pass needs
// an exact re-rank, kept here even though this graph already returns
// exact distances.
//
// With a filter, fetch starts at 3k and doubles until k matching rows
// accumulate or the whole graph has been considered.
func (s *Store) Search(ctx context.Context, query []float32, k int, pathPrefix string) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("vecstore: store is closed")
	}
	if len(query) != s.config.Dimensions {
		return nil, ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(query)}
	}
	if k <= 0 {
		k = 10
	}
	if s.graph.Len() == 0 {
		return nil, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	if s.config.Metric == "cos" {
		normalizeVectorInPlace(normalized)
	}

	if pathPrefix == "" {
		return s.searchRefined(normalized, k), nil
	}
	return s.searchWithPrefix(normalized, k, pathPrefix), nil
}

func (s *Store) searchRefined(query []float32, k int) []Result {
	fetch := k * refineFactor
	if fetch > s.graph.Len() {
		fetch = s.graph.Len()
	}
	results := s.rankNodes(query, s.graph.Search(query, fetch))
	if len(results) > k {
		results = results[:k]
	}
	return results
}

func (s *Store) searchWithPrefix(query []float32, k int, prefix string) []Result {
	fetch := k * pathFilterFetchMultiplier
	maxFetch := s.graph.Len()
	var matched []Result

	for {
		if fetch > maxFetch {
			fetch = maxFetch
		}
		nodes := s.graph.Search(query, fetch)
		ranked := s.rankNodes(query, nodes)

		matched = matched[:0]
		for _, r := range ranked {
			if hasPathPrefix(r.Chunk.FilePath, prefix) {
				matched = append(matched, r)
			}
		}

		if len(matched) >= k || fetch >= maxFetch {
			break
		}
		fetch *= 2
	}

	if len(matched) > k {
		matched = matched[:k]
	}
	return matched
}

func hasPathPrefix(path, prefix string) bool {
	if len(path) < len(prefix) {
		return false
	}
	return path[:len(prefix)] == prefix
}

func (s *Store) rankNodes(query []float32, nodes []hnsw.Node[uint64]) []Result {
	out := make([]Result, 0, len(nodes))
	for _, node := range nodes {
		id, ok := s.keyMap[node.Key]
		if !ok {
			continue // lazily deleted
		}
		chunk, ok := s.chunks[id]
		if !ok {
			continue
		}
		distance := s.graph.Distance(query, node.Value)
		out = append(out, Result{
			Chunk:    chunk,
			Distance: distance,
			Score:    distanceToScore(distance),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Stats reports graph health — GraphNodes includes lazily deleted
// orphans, which never appear in ValidIDs.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Stats{}
	}
	valid := len(s.idMap)
	total := s.graph.Len()
	return Stats{ValidIDs: valid, GraphNodes: total, Orphans: total - valid}
}

// ShouldCompact applies the build-trigger heuristic: a graph rebuild
// (dropping orphaned nodes) is due once the live row count reaches 256
// and has grown at least 20% since the last compaction.
func (s *Store) ShouldCompact(ctx context.Context, meta MetadataStore) (bool, error) {
	stats := s.Stats()
	if stats.ValidIDs < 256 {
		return false, nil
	}

	raw, ok, err := meta.GetIndexMeta(ctx, metaKeyLastCompactRows)
	if err != nil {
		return false, fmt.Errorf("vecstore: read compaction watermark: %w", err)
	}
	if !ok {
		return true, nil
	}

	var lastRows int
	if _, err := fmt.Sscanf(raw, "%d", &lastRows); err != nil || lastRows <= 0 {
		return true, nil
	}

	growth := float64(stats.ValidIDs-lastRows) / float64(lastRows)
	return growth >= 0.2, nil
}

// Compact rebuilds the graph from only the currently valid chunks,
// discarding every lazily-deleted orphan, then records the new row count
// as the compaction watermark.
func (s *Store) Compact(ctx context.Context, meta MetadataStore) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("vecstore: store is closed")
	}

	graph := hnsw.NewGraph[uint64]()
	switch s.config.Metric {
	case "l2":
		graph.Distance = hnsw.EuclideanDistance
	default:
		graph.Distance = hnsw.CosineDistance
	}
	graph.M = s.config.M
	graph.EfSearch = s.config.EfSearch
	graph.Ml = 0.25

	idMap := make(map[string]uint64, len(s.chunks))
	keyMap := make(map[uint64]string, len(s.chunks))
	var nextKey uint64
	for id, chunk := range s.chunks {
		graph.Add(hnsw.MakeNode(nextKey, chunk.Vector))
		idMap[id] = nextKey
		keyMap[nextKey] = id
		nextKey++
	}

	s.graph = graph
	s.idMap = idMap
	s.keyMap = keyMap
	s.nextKey = nextKey
	rows := len(s.chunks)
	s.mu.Unlock()

	return meta.SetIndexMeta(ctx, metaKeyLastCompactRows, fmt.Sprintf("%d", rows))
}

// Save persists the graph and its chunk table atomically (temp file then
// rename).
func (s *Store) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("vecstore: store is closed")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("vecstore: create directory: %w", err)
	}

	tmpGraph := path + ".tmp"
	f, err := os.Create(tmpGraph)
	if err != nil {
		return fmt.Errorf("vecstore: create graph file: %w", err)
	}
	if err := s.graph.Export(f); err != nil {
		f.Close()
		os.Remove(tmpGraph)
		return fmt.Errorf("vecstore: export graph: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpGraph)
		return fmt.Errorf("vecstore: close graph file: %w", err)
	}
	if err := os.Rename(tmpGraph, path); err != nil {
		os.Remove(tmpGraph)
		return fmt.Errorf("vecstore: rename graph file: %w", err)
	}

	return s.saveMeta(path + ".meta")
}

func (s *Store) saveMeta(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("vecstore: create meta file: %w", err)
	}

	meta := struct {
		Meta   persistedMeta
		Chunks map[string]Chunk
	}{
		Meta:   persistedMeta{IDMap: s.idMap, NextKey: s.nextKey, Config: s.config},
		Chunks: s.chunks,
	}

	if err := gob.NewEncoder(f).Encode(meta); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("vecstore: encode meta: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("vecstore: close meta file: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load replaces the store's contents with a previously Saved graph and
// chunk table.
func (s *Store) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("vecstore: store is closed")
	}

	metaFile, err := os.Open(path + ".meta")
	if err != nil {
		return fmt.Errorf("vecstore: open meta file: %w", err)
	}
	defer metaFile.Close()

	var decoded struct {
		Meta   persistedMeta
		Chunks map[string]Chunk
	}
	if err := gob.NewDecoder(metaFile).Decode(&decoded); err != nil {
		return fmt.Errorf("vecstore: decode meta: %w", err)
	}

	graphFile, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("vecstore: open graph file: %w", err)
	}
	defer graphFile.Close()

	graph := hnsw.NewGraph[uint64]()
	switch decoded.Meta.Config.Metric {
	case "l2":
		graph.Distance = hnsw.EuclideanDistance
	default:
		graph.Distance = hnsw.CosineDistance
	}
	graph.M = decoded.Meta.Config.M
	graph.EfSearch = decoded.Meta.Config.EfSearch
	graph.Ml = 0.25

	reader := bufio.NewReader(graphFile)
	if err := graph.Import(reader); err != nil {
		return fmt.Errorf("vecstore: import graph: %w", err)
	}

	s.graph = graph
	s.config = decoded.Meta.Config
	s.idMap = decoded.Meta.IDMap
	s.nextKey = decoded.Meta.NextKey
	s.chunks = decoded.Chunks

	s.keyMap = make(map[uint64]string, len(s.idMap))
	s.pathIndex = make(map[string][]string, len(s.chunks))
	for id, key := range s.idMap {
		s.keyMap[key] = id
	}
	for id, c := range s.chunks {
		s.pathIndex[c.FilePath] = append(s.pathIndex[c.FilePath], id)
	}

	return nil
}

// Close releases the store. The underlying graph needs no explicit
// teardown.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.graph = nil
	return nil
}

func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// distanceToScore converts an HNSW distance into score = 1 / (1 +
// distance) — the same formula for every metric, unlike the
// cosine-specific (1 - distance/2) curve some ANN libraries use.
func distanceToScore(distance float32) float32 {
	return 1.0 / (1.0 + distance)
}
