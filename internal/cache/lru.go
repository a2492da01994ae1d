package cache

import (
	"container/list"
	"log/slog"
	"sync"
	"time"
)

// entry is a cached value with expiration.
type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

func (e *entry[V]) expired() bool {
	return time.Now().After(e.expiresAt)
}

// Metrics tracks cache statistics.
type Metrics struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Expirations int64
}

// HitRate returns the cache hit rate as a percentage (0-100).
func (m *Metrics) HitRate() float64 {
	total := m.Hits + m.Misses
	if total == 0 {
		return 0
	}
	return float64(m.Hits) / float64(total) * 100
}

// LRUConfig holds configuration for the LRU cache.
type LRUConfig struct {
	MaxEntries int           // Maximum number of entries (0 = unlimited)
	DefaultTTL time.Duration // Default TTL for entries without explicit expiration
	Logger     *slog.Logger
}

// LRU is a thread-safe least-recently-used cache with TTL support.
type LRU[V any] struct {
	config  LRUConfig
	cache   map[string]*list.Element
	lruList *list.List
	mu      sync.RWMutex
	metrics Metrics
}

// NewLRU creates a new LRU cache.
func NewLRU[V any](config LRUConfig) *LRU[V] {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.DefaultTTL == 0 {
		config.DefaultTTL = 5 * time.Minute
	}

	return &LRU[V]{
		config:  config,
		cache:   make(map[string]*list.Element),
		lruList: list.New(),
	}
}

// Get retrieves a value from the cache.
// Returns the value and true if found and not expired.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.cache[key]
	if !ok {
		c.metrics.Misses++
		return zero, false
	}

	e := elem.Value.(*entry[V])
	if e.expired() {
		c.removeElementLocked(elem)
		c.metrics.Misses++
		c.metrics.Expirations++
		c.config.Logger.Debug("cache miss (expired)",
			slog.String("key", key),
		)
		return zero, false
	}

	c.lruList.MoveToFront(elem)
	c.metrics.Hits++
	return e.value, true
}

// Set stores a value with the default TTL.
func (c *LRU[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.config.DefaultTTL)
}

// SetWithTTL stores a value with a specific TTL.
func (c *LRU[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		e := elem.Value.(*entry[V])
		e.value = value
		e.expiresAt = time.Now().Add(ttl)
		c.lruList.MoveToFront(elem)
		return
	}

	if c.config.MaxEntries > 0 && c.lruList.Len() >= c.config.MaxEntries {
		c.evictOldestLocked()
	}

	elem := c.lruList.PushFront(&entry[V]{
		key:       key,
		value:     value,
		expiresAt: time.Now().Add(ttl),
	})
	c.cache[key] = elem

	c.config.Logger.Debug("cache set",
		slog.String("key", key),
		slog.Duration("ttl", ttl),
	)
}

// Delete removes a key from the cache.
func (c *LRU[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.cache[key]
	if !ok {
		return false
	}

	c.removeElementLocked(elem)
	return true
}

// Clear removes all entries.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[string]*list.Element)
	c.lruList = list.New()
}

// Size returns the number of entries, expired ones included until cleanup.
func (c *LRU[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Metrics returns a copy of the current cache metrics.
func (c *LRU[V]) Metrics() Metrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.metrics
}

// ResetMetrics resets all metrics to zero.
func (c *LRU[V]) ResetMetrics() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = Metrics{}
}

// Cleanup removes all expired entries and returns how many were dropped.
func (c *LRU[V]) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for _, elem := range c.cache {
		e := elem.Value.(*entry[V])
		if e.expired() {
			c.removeElementLocked(elem)
			c.metrics.Expirations++
			count++
		}
	}

	return count
}

// Keys returns all non-expired keys.
func (c *LRU[V]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.cache))
	for key, elem := range c.cache {
		if !elem.Value.(*entry[V]).expired() {
			keys = append(keys, key)
		}
	}
	return keys
}

// evictOldestLocked removes the least recently used entry. Caller holds the
// lock.
func (c *LRU[V]) evictOldestLocked() {
	elem := c.lruList.Back()
	if elem == nil {
		return
	}

	c.removeElementLocked(elem)
	c.metrics.Evictions++

	c.config.Logger.Debug("cache eviction (LRU)",
		slog.String("key", elem.Value.(*entry[V]).key),
	)
}

// removeElementLocked removes an element. Caller holds the lock.
func (c *LRU[V]) removeElementLocked(elem *list.Element) {
	delete(c.cache, elem.Value.(*entry[V]).key)
	c.lruList.Remove(elem)
}
