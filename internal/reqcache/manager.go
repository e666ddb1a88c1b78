package reqcache

// Manager bundles the daemon's four request caches. Daemon wiring and
// internal/watcher's InvalidateFunc share a single Manager instance.
type Manager struct {
	Files         *Cache
	SymbolJSON    *Cache
	SymbolArchive *Cache
	SearchJSON    *Cache
}

// NewManager builds a Manager with each cache's configured size/TTL
// budget.
func NewManager() *Manager {
	return &Manager{
		Files:         newCache(FileCacheMaxBytes, FileCacheTTL),
		SymbolJSON:    newCache(SymbolJSONCacheMaxBytes, SymbolJSONCacheTTL),
		SymbolArchive: newCache(SymbolArchiveCacheMaxBytes, SymbolArchiveCacheTTL),
		SearchJSON:    newCache(SearchJSONCacheMaxBytes, SearchJSONCacheTTL),
	}
}

// InvalidatePath drops every cache entry scoped under path across all four
// caches; the project's single-file reindex and delete paths call it.
// The watcher's debounced batches go through InvalidatePaths instead.
func (m *Manager) InvalidatePath(path string) {
	m.Files.InvalidatePrefix(path)
	m.SymbolJSON.InvalidatePrefix(path)
	m.SymbolArchive.InvalidatePrefix(path)
	// Search results aren't keyed by path at all (they're keyed by
	// "{query}:{limit}", see retrieval.CacheKey) so a file change can't be
	// scoped to a prefix of them — any change invalidates the whole
	// search cache instead, since a stale search result is worse than a
	// cheap re-query.
	m.SearchJSON.Clear()
}

// InvalidatePaths is InvalidatePath for a batch of changed paths.
func (m *Manager) InvalidatePaths(paths []string) {
	if len(paths) == 0 {
		return
	}
	for _, p := range paths {
		m.Files.InvalidatePrefix(p)
		m.SymbolJSON.InvalidatePrefix(p)
		m.SymbolArchive.InvalidatePrefix(p)
	}
	m.SearchJSON.Clear()
}

// EvictExpired sweeps all four caches. Intended to run on a periodic
// ticker from daemon's maintenance loop.
func (m *Manager) EvictExpired() {
	m.Files.EvictExpired()
	m.SymbolJSON.EvictExpired()
	m.SymbolArchive.EvictExpired()
	m.SearchJSON.EvictExpired()
}

// Clear empties all four caches.
func (m *Manager) Clear() {
	m.Files.Clear()
	m.SymbolJSON.Clear()
	m.SymbolArchive.Clear()
	m.SearchJSON.Clear()
}
