package search

import (
	"sort"
	"sync"
	"time"
)

const (
	cacheTTL        = 5 * time.Minute
	cacheMaxEntries = 50
	cacheEvictCount = 10
)

type cacheEntry struct {
	result   *Result
	storedAt time.Time
}

// resultCache memoizes search results by raw query text. Entries expire
// after a TTL; when the cache fills up, the oldest tenth is evicted in
// one sweep to amortize the cost.
type resultCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

func newResultCache(now func() time.Time) *resultCache {
	if now == nil {
		now = time.Now
	}
	return &resultCache{
		entries: make(map[string]cacheEntry),
		now:     now,
	}
}

// get returns the cached result for the query, or nil when absent or
// expired. Expired entries are dropped on access.
func (c *resultCache) get(rawQuery string) *Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[rawQuery]
	if !ok {
		return nil
	}
	if c.now().Sub(entry.storedAt) > cacheTTL {
		delete(c.entries, rawQuery)
		return nil
	}
	return entry.result
}

func (c *resultCache) put(rawQuery string, result *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= cacheMaxEntries {
		c.evictOldestLocked(cacheEvictCount)
	}
	c.entries[rawQuery] = cacheEntry{result: result, storedAt: c.now()}
}

// evictOldestLocked removes the n oldest entries. Caller holds the lock.
func (c *resultCache) evictOldestLocked(n int) {
	type aged struct {
		key      string
		storedAt time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for key, entry := range c.entries {
		all = append(all, aged{key, entry.storedAt})
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].storedAt.Before(all[j].storedAt)
	})
	if n > len(all) {
		n = len(all)
	}
	for _, a := range all[:n] {
		delete(c.entries, a.key)
	}
}

func (c *resultCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
