package eligibility

import (
	"context"
	"sync"
	"time"
)

// Cache stores lookup results keyed by IP for a bounded time. A miss and
// a failed backend read are indistinguishable to callers; both fall
// through to the provider.
type Cache interface {
	Get(ctx context.Context, ip string) (*LookupResult, bool)
	Set(ctx context.Context, ip string, result *LookupResult)
}

// MemoryCache is an in-process TTL cache for lookup results.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

type cacheEntry struct {
	result    LookupResult
	expiresAt time.Time
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates a memory cache with the given entry TTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// Get returns the cached result for ip if present and unexpired.
func (c *MemoryCache) Get(_ context.Context, ip string) (*LookupResult, bool) {
	c.mu.RLock()
	entry, ok := c.entries[ip]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	result := entry.result
	return &result, true
}

// Set stores a copy of result under ip. Expired entries are reaped
// opportunistically on write.
func (c *MemoryCache) Set(_ context.Context, ip string, result *LookupResult) {
	if result == nil {
		return
	}
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	c.entries[ip] = cacheEntry{result: *result, expiresAt: now.Add(c.ttl)}
}

// Len reports the number of entries currently held, expired included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
