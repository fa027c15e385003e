// Package store persists likes, playlists, uploads, and downloads in SQLite
// and keeps an in-memory index to reject duplicate likes without a query.
package store

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"

	"melodex/pkg/match"
)

// LikeIndex answers "has this user already liked this track" in memory. A
// Bloom filter screens out the common miss case before the exact lookup, and
// the LRU is the single source of truth for membership: its Add enforces the
// capacity bound by evicting the oldest key.
type LikeIndex struct {
	mu                sync.RWMutex
	bloom             *bloom.BloomFilter
	lru               *lru.Cache[string, struct{}]
	capacity          int
	falsePositiveRate float64
}

// NewLikeIndex creates an index holding at most capacity like keys.
func NewLikeIndex(capacity int, falsePositiveRate float64) *LikeIndex {
	if capacity <= 0 {
		panic("like index capacity must be positive")
	}
	cache, _ := lru.New[string, struct{}](capacity)

	return &LikeIndex{
		bloom:             bloom.NewWithEstimates(uint(capacity), falsePositiveRate),
		lru:               cache,
		capacity:          capacity,
		falsePositiveRate: falsePositiveRate,
	}
}

// likeKey builds the index key for a user and a track. Title and artist are
// normalized so "Yesterday / The Beatles" and "yesterday / the beatles" are
// the same like.
func likeKey(userID, title, artist string) string {
	return userID + "|" + match.Key(title, artist)
}

// Has reports whether the user has already liked the track. The bloom filter
// cannot forget evicted keys, so the LRU lookup after the screen keeps the
// answer exact.
func (ix *LikeIndex) Has(userID, title, artist string) bool {
	key := likeKey(userID, title, artist)

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if !ix.bloom.TestString(key) {
		return false
	}
	return ix.lru.Contains(key)
}

// Add records a like. Adding an existing like is a no-op; adding past
// capacity evicts the oldest like.
func (ix *LikeIndex) Add(userID, title, artist string) {
	key := likeKey(userID, title, artist)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.bloom.AddString(key)
	ix.lru.Add(key, struct{}{})
}

// Load clears the index and seeds it from persisted likes, typically at
// startup. Keys past capacity evict the earliest loaded ones.
func (ix *LikeIndex) Load(keys []string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.bloom = bloom.NewWithEstimates(uint(ix.capacity), ix.falsePositiveRate)
	ix.lru.Purge()

	for _, key := range keys {
		if key == "" {
			continue
		}
		ix.bloom.AddString(key)
		ix.lru.Add(key, struct{}{})
	}
}

// Size returns the number of like keys currently indexed.
func (ix *LikeIndex) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.lru.Len()
}
