package insight

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Cache memoizes expensive computations (telemetry fetches and the analyses
// built on them) under string keys with a per-entry time-to-live.
//
// Concurrent readers and writers are safe, but concurrent misses on the same
// key are NOT serialized: both callers may run the computation and the later
// store wins. That is acceptable here because every cached computation is
// idempotent and side-effect free; single-flight de-duplication is not worth
// its complexity for a low-concurrency sidecar.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry

	// now is swappable in tests to exercise TTL expiry.
	now func() time.Time
}

type cacheEntry struct {
	value    interface{}
	storedAt time.Time
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Key derives a cache key from a computation's identity and its arguments.
func Key(fn string, args ...interface{}) string {
	if len(args) == 0 {
		return fn + "()"
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("%v", a)
	}
	return fmt.Sprintf("%s(%s)", fn, strings.Join(parts, ","))
}

// GetOrCompute returns the cached value for key if it was stored within ttl,
// otherwise invokes compute, stores a successful result, and returns it.
// Errors are returned to the caller and never cached.
func (c *Cache) GetOrCompute(key string, ttl time.Duration, compute func() (interface{}, error)) (interface{}, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && c.now().Sub(entry.storedAt) < ttl {
		return entry.value, nil
	}

	value, err := compute()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, storedAt: c.now()}
	c.mu.Unlock()

	return value, nil
}

// InvalidateAll drops every entry regardless of TTL. Used by the explicit
// refresh action.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Len returns the number of stored entries, fresh or expired.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Fetch is a typed wrapper around Cache.GetOrCompute for call sites that
// know the result type.
func Fetch[T any](c *Cache, key string, ttl time.Duration, compute func() (T, error)) (T, error) {
	v, err := c.GetOrCompute(key, ttl, func() (interface{}, error) {
		return compute()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
