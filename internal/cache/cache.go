package cache

import (
	"sync"
	"time"
)

// TTLCache is a small in-process cache with a single fixed TTL. The session
// guard uses it to avoid hitting the users table on every protected request.
type TTLCache struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]entry
}

type entry struct {
	val any
	exp time.Time
}

func New(ttl time.Duration) *TTLCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &TTLCache{
		ttl: ttl,
		m:   make(map[string]entry),
	}
}

func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if time.Now().After(e.exp) {
		c.mu.Lock()
		// re-check under the write lock, another goroutine may have replaced it
		if cur, ok := c.m[key]; ok && time.Now().After(cur.exp) {
			delete(c.m, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return e.val, true
}

func (c *TTLCache) Set(key string, val any) {
	c.mu.Lock()
	c.m[key] = entry{val: val, exp: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Delete drops a key. Called when a cached record is known to be stale, e.g.
// right after a password reset.
func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
}

func (c *TTLCache) Clear() {
	c.mu.Lock()
	c.m = make(map[string]entry)
	c.mu.Unlock()
}
