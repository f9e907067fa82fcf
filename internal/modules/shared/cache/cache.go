// Package cache provides a small thread-safe TTL cache shared by modules that
// front slow lookups (secrets, per-user progress snapshots).
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

func (e *entry[V]) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// Metrics tracks cache performance statistics
type Metrics struct {
	Hits          int64
	Misses        int64
	Evictions     int64
	Invalidations int64
	Size          int64
}

// HitRate returns the hit rate as a percentage.
func (m Metrics) HitRate() float64 {
	reads := m.Hits + m.Misses
	if reads == 0 {
		return 0.0
	}
	return float64(m.Hits) / float64(reads) * 100.0
}

// Cache is a TTL cache with a size bound. When full, expired entries are
// evicted first, then the entry closest to expiry.
type Cache[V any] struct {
	entries map[string]*entry[V]
	ttl     time.Duration
	maxSize int
	mu      sync.Mutex
	metrics Metrics
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
}

// New creates a cache and starts its background cleanup loop. Call Close to stop it.
func New[V any](ttl time.Duration, maxSize int) *Cache[V] {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if maxSize <= 0 {
		maxSize = 1000
	}
	c := &Cache[V]{
		entries: make(map[string]*entry[V]),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	go c.cleanupLoop()

	return c
}

// Get returns the cached value and whether it was present and fresh.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.expired(c.now()) {
		c.metrics.Misses++
		var zero V
		return zero, false
	}

	c.metrics.Hits++
	return e.value, true
}

// Set stores value under key for the cache TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictExpired()
		if len(c.entries) >= c.maxSize {
			c.evictOldest()
		}
	}

	c.entries[key] = &entry[V]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
	c.metrics.Size = int64(len(c.entries))
}

// Delete drops key from the cache.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.metrics.Invalidations++
	}
	c.metrics.Size = int64(len(c.entries))
}

// Clear removes all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry[V])
	c.metrics.Size = 0
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Metrics returns a copy of the current metrics.
func (c *Cache[V]) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

// Close stops the cleanup loop. Safe to call more than once.
func (c *Cache[V]) Close() {
	c.once.Do(func() {
		close(c.stopCh)
	})
}

func (c *Cache[V]) cleanupLoop() {
	ticker := time.NewTicker(c.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.evictExpired()
			c.metrics.Size = int64(len(c.entries))
			c.mu.Unlock()
		case <-c.stopCh:
			return
		}
	}
}

// evictExpired must be called with the lock held.
func (c *Cache[V]) evictExpired() {
	now := c.now()
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			c.metrics.Evictions++
		}
	}
}

// evictOldest must be called with the lock held.
func (c *Cache[V]) evictOldest() {
	var oldestKey string
	var oldest time.Time

	for key, e := range c.entries {
		if oldestKey == "" || e.expiresAt.Before(oldest) {
			oldestKey = key
			oldest = e.expiresAt
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.metrics.Evictions++
	}
}
