package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"melodex/internal/core"
	"melodex/pkg/match"
)

// TrackCache caches single-track best-match resolutions keyed by normalized
// title and artist. It is a true LRU: reads refresh recency, and inserting
// past capacity evicts the least recently used entry.
type TrackCache struct {
	lru *lru.Cache[string, core.Track]
}

// NewTrackCache creates a track cache with the given capacity.
func NewTrackCache(capacity int) (*TrackCache, error) {
	inner, err := lru.New[string, core.Track](capacity)
	if err != nil {
		return nil, err
	}
	return &TrackCache{lru: inner}, nil
}

// Get returns the cached resolution for a title/artist pair.
func (c *TrackCache) Get(title, artist string) (core.Track, bool) {
	return c.lru.Get(match.Key(title, artist))
}

// Put stores the resolution for a title/artist pair, evicting the least
// recently used entry when the cache is full.
func (c *TrackCache) Put(title, artist string, track core.Track) {
	c.lru.Add(match.Key(title, artist), track)
}

// Len returns the number of cached resolutions.
func (c *TrackCache) Len() int {
	return c.lru.Len()
}
