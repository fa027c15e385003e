// Package cache provides the two in-process caches guarding the resolution
// engine: a TTL-bounded query cache and a capacity-bounded track cache.
// Both are injected into the engine at construction; nothing here is global.
package cache

import (
	"fmt"
	"sync"
	"time"

	"melodex/internal/core"
)

// QueryEntry is an immutable cached resolution result. Entries are replaced
// wholesale, never mutated, so concurrent readers are safe.
type QueryEntry struct {
	Tracks    []core.Track
	Playlist  *core.PlaylistMetadata
	Total     int
	createdAt time.Time
}

// QueryCache caches resolution results keyed by query and pagination window.
// Expired entries are deleted lazily on read; there is no background sweep
// and no size bound.
type QueryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]QueryEntry
}

// NewQueryCache creates a query cache with the given TTL.
func NewQueryCache(ttl time.Duration) *QueryCache {
	return &QueryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]QueryEntry),
	}
}

// QueryKey builds the cache key for a query and pagination window.
func QueryKey(query string, page core.Page) string {
	return fmt.Sprintf("%s|%d|%d", query, page.Offset, page.Limit)
}

// Get returns the entry for key if present and fresh. A stale entry is
// deleted and reported as a miss.
func (c *QueryCache) Get(key string) (QueryEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return QueryEntry{}, false
	}
	if c.now().Sub(entry.createdAt) >= c.ttl {
		delete(c.entries, key)
		return QueryEntry{}, false
	}
	return entry, true
}

// Set stores a resolution result under key, stamping it with the current time.
func (c *QueryCache) Set(key string, tracks []core.Track, playlist *core.PlaylistMetadata, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = QueryEntry{
		Tracks:    tracks,
		Playlist:  playlist,
		Total:     total,
		createdAt: c.now(),
	}
}

// Len returns the number of entries currently held, including stale ones not
// yet evicted by a read.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
