// Package reqcache implements the daemon's request cache manager: four
// independent, size-bounded LRU caches with TTL expiry, used to avoid
// re-reading file contents, re-serializing symbol data, and re-running
// search queries within a short request window.
package reqcache

import "time"

// The four request caches, each with its own byte budget and TTL.
const (
	FileCacheMaxBytes = 100 * 1024 * 1024
	FileCacheTTL      = 5 * time.Minute

	SymbolJSONCacheMaxBytes = 50 * 1024 * 1024
	SymbolJSONCacheTTL      = 10 * time.Minute

	SymbolArchiveCacheMaxBytes = 50 * 1024 * 1024
	SymbolArchiveCacheTTL      = 10 * time.Minute

	SearchJSONCacheMaxBytes = 20 * 1024 * 1024
	SearchJSONCacheTTL      = 2 * time.Minute
)

// Stats reports a cache's hit/miss counters.
type Stats struct {
	Hits   int64
	Misses int64
}
