package cache

import (
	"fmt"
	"sync"
	"time"
)

type entry struct {
	value     any
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// Cache is a key-value store with a per-entry time-to-live. Entries are
// logically absent the instant their TTL elapses even if still physically
// stored; Cleanup sweeps them out and must be driven by the caller.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry

	hits    uint64
	misses  uint64
	sets    uint64
	deletes uint64
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{entries: make(map[string]entry)}
}

// Set stores value under key with the given TTL, unconditionally overwriting
// any existing entry.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	c.sets++
}

// Get returns the value for key if present and unexpired. An expired entry is
// evicted on the spot and reported as a miss.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if e.expired(time.Now()) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.value, true
}

// Delete removes key, reporting whether an entry existed.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
		c.deletes++
	}
	return ok
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Cleanup evicts every expired entry and returns how many were removed.
func (c *Cache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Stats is a point-in-time snapshot of cache activity.
type Stats struct {
	Hits           uint64 `json:"hits"`
	Misses         uint64 `json:"misses"`
	Sets           uint64 `json:"sets"`
	Deletes        uint64 `json:"deletes"`
	ValidEntries   int    `json:"validEntries"`
	ExpiredEntries int    `json:"expiredEntries"`
	HitRate        string `json:"hitRate"`
}

// GetStats reports cumulative counters plus a census of valid vs. expired
// entries. The hit rate is hits/(hits+misses) as a percentage with two
// decimals, "0%" when no lookups have happened.
func (c *Cache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	valid, expired := 0, 0
	for _, e := range c.entries {
		if e.expired(now) {
			expired++
		} else {
			valid++
		}
	}

	rate := "0%"
	if lookups := c.hits + c.misses; lookups > 0 {
		rate = fmt.Sprintf("%.2f%%", float64(c.hits)/float64(lookups)*100)
	}

	return Stats{
		Hits:           c.hits,
		Misses:         c.misses,
		Sets:           c.sets,
		Deletes:        c.deletes,
		ValidEntries:   valid,
		ExpiredEntries: expired,
		HitRate:        rate,
	}
}
