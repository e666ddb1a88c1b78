package reqcache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// entry is one cached blob. mtime is only populated by the file-contents
// cache's PutWithMtime/GetWithMtime pair; the other three caches leave it
// zero.
type entry struct {
	key       string
	value     []byte
	size      int
	expiresAt time.Time
	mtime     time.Time
}

// Cache is a single byte-size-bounded LRU with TTL expiry, prefix
// invalidation, and hit/miss counters — one instance backs each of the
// four named caches in Manager.
//
// hashicorp/golang-lru (used elsewhere in this daemon, see embedpool's
// CachedEmbedder) bounds by entry COUNT, and its expirable variant still
// does; these caches need to bound by total BYTES instead, so Cache is a
// small hand-rolled container/list LRU rather than reusing that library.
type Cache struct {
	mu       sync.Mutex
	maxBytes int
	ttl      time.Duration
	curBytes int
	ll       *list.List
	items    map[string]*list.Element

	hits   int64
	misses int64
}

func newCache(maxBytes int, ttl time.Duration) *Cache {
	return &Cache{
		maxBytes: maxBytes,
		ttl:      ttl,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Get returns a cached value, promoting it to most-recently-used. An
// expired entry is evicted and reported as a miss.
func (c *Cache) Get(key string) ([]byte, bool) {
	v, _, ok := c.getEntry(key)
	return v, ok
}

// GetWithMtime is Get plus the stored mtime, for the file-contents cache's
// mtime-validated reads.
func (c *Cache) GetWithMtime(key string) ([]byte, time.Time, bool) {
	return c.getEntry(key)
}

func (c *Cache) getEntry(key string) ([]byte, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, time.Time{}, false
	}
	e := el.Value.(*entry)
	if time.Now().After(e.expiresAt) {
		c.removeElementLocked(el)
		c.misses++
		return nil, time.Time{}, false
	}
	c.ll.MoveToFront(el)
	c.hits++
	return e.value, e.mtime, true
}

// Put stores value under key, evicting least-recently-used entries until
// it fits. An entry larger than the cache's entire budget is never
// cached.
func (c *Cache) Put(key string, value []byte) {
	c.put(key, value, time.Time{})
}

// PutWithMtime is Put plus an mtime, used by the file-contents cache.
func (c *Cache) PutWithMtime(key string, value []byte, mtime time.Time) {
	c.put(key, value, mtime)
}

func (c *Cache) put(key string, value []byte, mtime time.Time) {
	size := len(value)
	if size > c.maxBytes {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElementLocked(el)
	}

	for c.curBytes+size > c.maxBytes && c.ll.Len() > 0 {
		back := c.ll.Back()
		c.removeElementLocked(back)
	}

	e := &entry{
		key:       key,
		value:     value,
		size:      size,
		expiresAt: time.Now().Add(c.ttl),
		mtime:     mtime,
	}
	el := c.ll.PushFront(e)
	c.items[key] = el
	c.curBytes += size
}

// Remove evicts a single key, if present.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeElementLocked(el)
	}
}

// InvalidatePrefix evicts every key with the given prefix, used to drop
// every cache entry scoped under a changed path when a watched file
// changes on disk.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, el := range c.items {
		if strings.HasPrefix(key, prefix) {
			c.removeElementLocked(el)
		}
	}
}

// EvictExpired sweeps every entry past its TTL. Get/GetWithMtime already
// evict lazily on access; this is for a periodic background sweep so
// caches don't grow stale entries the library never reads again.
func (c *Cache) EvictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for el := c.ll.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*entry).expiresAt) {
			c.removeElementLocked(el)
		}
		el = prev
	}
}

// Clear empties the cache and resets its size accounting.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element)
	c.curBytes = 0
}

// Stats returns the cache's hit/miss counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses}
}

// removeElementLocked must be called with c.mu held.
func (c *Cache) removeElementLocked(el *list.Element) {
	e := el.Value.(*entry)
	delete(c.items, e.key)
	c.ll.Remove(el)
	c.curBytes -= e.size
}
