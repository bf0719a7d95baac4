package services

import (
	"sync"
	"time"
)

// TTLCache holds one fetched value for a fixed time-to-live
type TTLCache[T any] struct {
	mu        sync.RWMutex
	value     T
	cached    bool
	cacheTime time.Time
	ttl       time.Duration
	now       func() time.Time
}

// NewTTLCache creates an empty cache
func NewTTLCache[T any](ttl time.Duration) *TTLCache[T] {
	return &TTLCache[T]{ttl: ttl, now: time.Now}
}

// SetTTL sets the cache time-to-live
func (c *TTLCache[T]) SetTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttl = ttl
}

// isValid checks if the cached value is still fresh; caller holds the lock
func (c *TTLCache[T]) isValid() bool {
	return c.cached && c.now().Sub(c.cacheTime) < c.ttl
}

// Get returns the cached value if valid, otherwise fetches fresh.
// A failed fetch leaves the previous value in place.
func (c *TTLCache[T]) Get(fetch func() (T, error)) (T, error) {
	c.mu.RLock()
	if c.isValid() {
		defer c.mu.RUnlock()
		return c.value, nil
	}
	c.mu.RUnlock()

	// Fetch fresh data
	v, err := fetch()
	if err != nil {
		var zero T
		return zero, err
	}

	// Update cache
	c.mu.Lock()
	c.value = v
	c.cached = true
	c.cacheTime = c.now()
	c.mu.Unlock()

	return v, nil
}

// Invalidate drops the cached value
func (c *TTLCache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.value = zero
	c.cached = false
}
