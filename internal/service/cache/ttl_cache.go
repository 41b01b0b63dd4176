package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	v   V
	exp time.Time
}

// TTLCache keeps values past their TTL so callers can fall back to a stale
// copy when the fresh source is unavailable.
type TTLCache[V any] struct {
	mu  sync.RWMutex
	m   map[string]entry[V]
	now func() time.Time
}

func NewTTLCache[V any]() *TTLCache[V] {
	return &TTLCache[V]{m: make(map[string]entry[V]), now: time.Now}
}

// WithClock replaces time.Now. Intended for tests.
func (c *TTLCache[V]) WithClock(now func() time.Time) *TTLCache[V] {
	c.now = now
	return c
}

// Get returns a value that has not expired.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	v, stale, ok := c.GetStale(key)
	if !ok || stale {
		var zero V
		return zero, false
	}
	return v, true
}

// GetStale returns the value even after expiry; stale reports whether the
// TTL has passed.
func (c *TTLCache[V]) GetStale(key string) (v V, stale bool, ok bool) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return v, false, false
	}
	stale = !e.exp.IsZero() && !c.now().Before(e.exp)
	return e.v, stale, true
}

// Age returns how long ago the value's TTL ran out, or 0 when it has not.
func (c *TTLCache[V]) Age(key string) time.Duration {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok || e.exp.IsZero() {
		return 0
	}
	if d := c.now().Sub(e.exp); d > 0 {
		return d
	}
	return 0
}

func (c *TTLCache[V]) Set(key string, v V, ttl time.Duration) {
	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.m[key] = entry[V]{v: v, exp: exp}
	c.mu.Unlock()
}

func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
}
