package collector

import (
	"strings"
	"sync"
	"time"

	"ContractPulse/internal/calculator"
	"ContractPulse/internal/model"
)

type cacheKey struct {
	symbol string
	from   string
	to     string
}

type cacheEntry struct {
	store    *calculator.Store
	storedAt time.Time
}

// BarCache holds built stores keyed by symbol and date range. Entries older
// than the TTL are treated as missing; a zero TTL never expires.
type BarCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[cacheKey]cacheEntry
	now     func() time.Time
}

// NewBarCache creates an empty cache.
func NewBarCache(ttl time.Duration) *BarCache {
	return &BarCache{
		ttl:     ttl,
		entries: make(map[cacheKey]cacheEntry),
		now:     time.Now,
	}
}

func key(symbol string, from, to time.Time) cacheKey {
	return cacheKey{
		symbol: strings.ToUpper(symbol),
		from:   from.Format(model.DateLayout),
		to:     to.Format(model.DateLayout),
	}
}

func (c *BarCache) expired(e cacheEntry, now time.Time) bool {
	return c.ttl > 0 && now.Sub(e.storedAt) > c.ttl
}

// Get returns the cached store for the exact symbol and range. An expired
// entry is removed.
func (c *BarCache) Get(symbol string, from, to time.Time) (*calculator.Store, bool) {
	k := key(symbol, from, to)
	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.expired(e, c.now()) {
		c.mu.Lock()
		if cur, ok := c.entries[k]; ok && cur.storedAt.Equal(e.storedAt) {
			delete(c.entries, k)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.store, true
}

// Put stores s under the symbol and range, replacing any previous entry, and
// sweeps expired entries. Ranges of the same symbol ending earlier are dropped
// too, since the range end moves forward with the calendar.
func (c *BarCache) Put(symbol string, from, to time.Time, s *calculator.Store) {
	k := key(symbol, from, to)
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for old, e := range c.entries {
		if c.expired(e, now) || (old.symbol == k.symbol && old.to < k.to) {
			delete(c.entries, old)
		}
	}
	c.entries[k] = cacheEntry{store: s, storedAt: now}
}

// Invalidate drops every range cached for symbol and returns how many were removed.
func (c *BarCache) Invalidate(symbol string) int {
	symbol = strings.ToUpper(symbol)
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.entries {
		if k.symbol == symbol {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of entries, expired ones not yet swept included.
func (c *BarCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
