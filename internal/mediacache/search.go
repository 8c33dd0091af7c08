package mediacache

import (
	"maps"
	"sync"

	"reelcache/internal/media"
)

// SearchCache is the in-memory search namespace for one batch. All access is
// serialized by a single mutex.
type SearchCache struct {
	mu      sync.Mutex
	entries map[media.SearchKey]media.SearchEntry
	dirty   bool
}

// NewSearchCache wraps entries. Invalid entries are dropped so lookups treat
// them as misses.
func NewSearchCache(entries map[media.SearchKey]media.SearchEntry) *SearchCache {
	c := &SearchCache{entries: make(map[media.SearchKey]media.SearchEntry, len(entries))}
	for key, entry := range entries {
		if entry.Valid() {
			c.entries[key] = entry
		}
	}
	return c
}

// Lookup returns the entry stored for key.
func (c *SearchCache) Lookup(key media.SearchKey) (media.SearchEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// Store records the resolution for key. Invalid entries are ignored and
// reported as not stored.
func (c *SearchCache) Store(key media.SearchKey, entry media.SearchEntry) bool {
	if !entry.Valid() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
	c.dirty = true
	return true
}

// Len returns the number of entries.
func (c *SearchCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// NoMatchCount returns how many entries are no-match sentinels.
func (c *SearchCache) NoMatchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, entry := range c.entries {
		if entry.IsNoMatch() {
			count++
		}
	}
	return count
}

// Dirty reports whether Store was called since the cache was loaded or saved.
func (c *SearchCache) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Snapshot returns a copy of the entries.
func (c *SearchCache) Snapshot() map[media.SearchKey]media.SearchEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.entries)
}

func (c *SearchCache) markClean() {
	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()
}
