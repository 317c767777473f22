package ident

import (
	"sync"
	"time"
)

// cacheEntry pairs a lookup result with its expiry.
type cacheEntry struct {
	result  *Result
	err     error
	expires time.Time
}

// Cache is a peer-IP-keyed cache of ident lookups.
type Cache struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]cacheEntry
	now func() time.Time
}

// NewCache returns a Cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, m: make(map[string]cacheEntry), now: time.Now}
}

// Get returns a cached (result, err) for peerIP if present and unexpired.
func (c *Cache) Get(peerIP string) (*Result, error, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.m[peerIP]
	if !ok || c.now().After(entry.expires) {
		return nil, nil, false
	}
	return entry.result, entry.err, true
}

// Put stores a lookup outcome for peerIP.
func (c *Cache) Put(peerIP string, result *Result, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[peerIP] = cacheEntry{result: result, err: err, expires: c.now().Add(c.ttl)}
}

// LookupCached performs an ident lookup, consulting and populating cache
// when caching is true.
func LookupCached(cache *Cache, caching bool, peerIP string, lookup func() (*Result, error)) (*Result, error) {
	if caching && cache != nil {
		if result, err, ok := cache.Get(peerIP); ok {
			return result, err
		}
	}
	result, err := lookup()
	if caching && cache != nil {
		cache.Put(peerIP, result, err)
	}
	return result, err
}
