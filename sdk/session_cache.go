package sdk

import (
	"sync"
	"time"

	"github.com/maypok86/otter"
)

// sessionCache memoizes user-scoped services by session token. Lookups
// and construction happen under one mutex so racing callers for the same
// token share a single instance. Entries expire after the configured TTL
// or when the session logs out.
type sessionCache struct {
	mu       sync.Mutex
	cache    otter.Cache[string, *UserService]
	observer Observer
}

func newSessionCache(size int, ttl time.Duration, observer Observer) (*sessionCache, error) {
	cache, err := otter.MustBuilder[string, *UserService](size).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, err
	}
	return &sessionCache{cache: cache, observer: observer}, nil
}

// getOrCreate returns the cached service for token, building it with
// build on a miss.
func (c *sessionCache) getOrCreate(token string, build func() *UserService) *UserService {
	c.mu.Lock()
	defer c.mu.Unlock()
	if svc, ok := c.cache.Get(token); ok {
		c.observer.OnSessionCacheHit()
		return svc
	}
	c.observer.OnSessionCacheMiss()
	svc := build()
	c.cache.Set(token, svc)
	return svc
}

func (c *sessionCache) invalidate(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Delete(token)
}

func (c *sessionCache) size() int {
	return c.cache.Size()
}

func (c *sessionCache) close() {
	c.cache.Close()
}
