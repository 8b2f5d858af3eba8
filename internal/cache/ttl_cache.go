// Package cache provides the in-memory TTL cache used in front of
// analytics reads.
package cache

import (
	"sync"
	"time"
)

// Cache is a minimal TTL cache for hot-path lookups. GetOrLoad is the
// preferred entry point: it hides the miss-then-fill dance from callers.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	GetOrLoad(key K, ttl time.Duration, load func() (V, error)) (V, error)
	Delete(key K)
	Flush()
}

type entry[V any] struct {
	value    V
	deadline time.Time
}

func (e entry[V]) expired(now time.Time) bool {
	return !e.deadline.IsZero() && now.After(e.deadline)
}

// TTLCache stores values in-memory with per-entry TTLs. Expired entries
// are reaped lazily on access; there is no background sweeper.
type TTLCache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]entry[V]
}

// NewTTLCache constructs an empty TTLCache.
func NewTTLCache[K comparable, V any]() *TTLCache[K, V] {
	return &TTLCache[K, V]{entries: make(map[K]entry[V])}
}

// Get returns a cached value if it exists and has not expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if e.expired(time.Now()) {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

// Set stores a value. A non-positive TTL stores the value without expiry.
func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	if c == nil {
		return
	}
	e := entry[V]{value: value}
	if ttl > 0 {
		e.deadline = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

// GetOrLoad returns the cached value for key, or runs load and caches its
// result. Load errors are returned as-is and nothing is cached. Concurrent
// misses may run load more than once; the analytics summary this fronts is
// cheap enough that deduplication is not worth the coordination.
func (c *TTLCache[K, V]) GetOrLoad(key K, ttl time.Duration, load func() (V, error)) (V, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}
	value, err := load()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, value, ttl)
	return value, nil
}

// Delete removes a cached entry.
func (c *TTLCache[K, V]) Delete(key K) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Flush drops every cached entry.
func (c *TTLCache[K, V]) Flush() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[K]entry[V])
	c.mu.Unlock()
}

// NoopCache always misses and ignores writes. It keeps cache-aware code
// paths exercisable in tests without TTL timing in play.
type NoopCache[K comparable, V any] struct{}

// Get always returns a miss.
func (NoopCache[K, V]) Get(key K) (V, bool) {
	var zero V
	return zero, false
}

// Set is a no-op.
func (NoopCache[K, V]) Set(key K, value V, ttl time.Duration) {}

// GetOrLoad always runs load and never caches.
func (NoopCache[K, V]) GetOrLoad(key K, ttl time.Duration, load func() (V, error)) (V, error) {
	return load()
}

// Delete is a no-op.
func (NoopCache[K, V]) Delete(key K) {}

// Flush is a no-op.
func (NoopCache[K, V]) Flush() {}
