package sso

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// CacheOptions configures a CachedStore
type CacheOptions struct {
	Size int
	TTL  time.Duration

	// OnHit and OnMiss are optional observers, typically metrics counters
	OnHit  func()
	OnMiss func()
}

// DefaultCacheOptions returns sensible defaults for the mapping cache
func DefaultCacheOptions() CacheOptions {
	return CacheOptions{
		Size: 1024,
		TTL:  30 * time.Second,
	}
}

// CachedStore caches successful lookups of an underlying MappingStore.
// Not-found results and errors always go to the backend so a removed or failing
// mapping is never served from cache. A lookup that was in flight when its domain
// was invalidated returns its result but does not cache it.
type CachedStore struct {
	backend MappingStore
	lru     *expirable.LRU[string, string]
	group   singleflight.Group
	onHit   func()
	onMiss  func()

	mu         sync.Mutex
	generation uint64
	versions   map[string]uint64
}

type cacheVersion struct {
	generation uint64
	domain     uint64
}

// NewCachedStore wraps backend with a bounded, expiring cache
func NewCachedStore(backend MappingStore, opts CacheOptions) *CachedStore {
	if opts.Size <= 0 {
		opts.Size = DefaultCacheOptions().Size
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultCacheOptions().TTL
	}
	return &CachedStore{
		backend:  backend,
		lru:      expirable.NewLRU[string, string](opts.Size, nil, opts.TTL),
		onHit:    opts.OnHit,
		onMiss:   opts.OnMiss,
		versions: make(map[string]uint64),
	}
}

// FindEnabledIdpAlias returns a cached alias or resolves it through the backend.
// Concurrent misses for one domain share a single backend call.
func (c *CachedStore) FindEnabledIdpAlias(ctx context.Context, domain string) (string, error) {
	if alias, ok := c.lru.Get(domain); ok {
		if c.onHit != nil {
			c.onHit()
		}
		return alias, nil
	}
	if c.onMiss != nil {
		c.onMiss()
	}

	v, err, _ := c.group.Do(domain, func() (interface{}, error) {
		version := c.version(domain)
		alias, err := c.backend.FindEnabledIdpAlias(ctx, domain)
		if err != nil {
			return "", err
		}
		c.addIfCurrent(domain, alias, version)
		return alias, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// CountEnabled delegates to the backend when it supports counting
func (c *CachedStore) CountEnabled(ctx context.Context) (int, error) {
	counter, ok := c.backend.(MappingCounter)
	if !ok {
		return 0, nil
	}
	return counter.CountEnabled(ctx)
}

// Invalidate drops the cached entry for a domain and discards any result
// still being fetched for it
func (c *CachedStore) Invalidate(domain string) {
	domain = NormalizeDomain(domain)

	c.mu.Lock()
	c.versions[domain]++
	c.lru.Remove(domain)
	c.mu.Unlock()

	c.group.Forget(domain)
}

// Purge drops every cached entry
func (c *CachedStore) Purge() {
	c.mu.Lock()
	c.generation++
	clear(c.versions)
	c.lru.Purge()
	c.mu.Unlock()
}

func (c *CachedStore) version(domain string) cacheVersion {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cacheVersion{generation: c.generation, domain: c.versions[domain]}
}

func (c *CachedStore) addIfCurrent(domain, alias string, seen cacheVersion) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != seen.generation || c.versions[domain] != seen.domain {
		return
	}
	c.lru.Add(domain, alias)
}

// Len returns the number of cached entries
func (c *CachedStore) Len() int {
	return c.lru.Len()
}
