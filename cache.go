package codegrabber

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/codegrabber/codegrabber/backend"
)

// defaultCacheEntries caps how many query results a PostCache holds.
const defaultCacheEntries = 256

// PostCache is an in-memory TTL cache of post lists keyed by the query that
// produced them. Any write to the posts collection invalidates it.
type PostCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	max     int
	gen     uint64
	group   singleflight.Group
}

type cacheEntry struct {
	posts   []backend.BlogPost
	fetched time.Time
}

// NewPostCache creates a PostCache. A ttl of zero or less disables caching.
func NewPostCache(ttl time.Duration) *PostCache {
	return &PostCache{entries: make(map[string]cacheEntry), ttl: ttl, max: defaultCacheEntries}
}

func (c *PostCache) enabled() bool {
	return c != nil && c.ttl > 0
}

func (c *PostCache) lookup(key string) ([]backend.BlogPost, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || time.Since(e.fetched) >= c.ttl {
		return nil, false
	}
	return e.posts, true
}

// Invalidate clears the cache so the next read triggers a fresh load.
// Loads already in flight do not store their result.
func (c *PostCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.gen++
	c.mu.Unlock()
}

// Len returns the number of cached entries, fresh or not.
func (c *PostCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// load returns the cached list for key, calling fetch when it is missing or
// stale. Concurrent loads of one key share a single fetch, which runs
// without holding the cache lock.
func (c *PostCache) load(key string, fetch func() ([]backend.BlogPost, error)) ([]backend.BlogPost, error) {
	if !c.enabled() {
		return fetch()
	}
	if posts, ok := c.lookup(key); ok {
		return posts, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if posts, ok := c.lookup(key); ok {
			return posts, nil
		}
		c.mu.RLock()
		gen := c.gen
		c.mu.RUnlock()

		posts, err := fetch()
		if err != nil {
			return nil, err
		}
		c.store(key, posts, gen)
		return posts, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]backend.BlogPost), nil
}

func (c *PostCache) store(key string, posts []backend.BlogPost, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	now := time.Now()
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.max {
		c.evict(now)
	}
	c.entries[key] = cacheEntry{posts: posts, fetched: now}
}

// evict drops expired entries, then the oldest one if the cache is still
// full. Callers hold the write lock.
func (c *PostCache) evict(now time.Time) {
	var oldest string
	var oldestAt time.Time
	for k, e := range c.entries {
		if now.Sub(e.fetched) >= c.ttl {
			delete(c.entries, k)
			continue
		}
		if oldest == "" || e.fetched.Before(oldestAt) {
			oldest, oldestAt = k, e.fetched
		}
	}
	if len(c.entries) >= c.max && oldest != "" {
		delete(c.entries, oldest)
	}
}
