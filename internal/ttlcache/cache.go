// ABOUTME: Thread-safe TTL cache with a size bound and oldest-first eviction.
// ABOUTME: Backs the membership cache and the Matrix sync replay guard.

package ttlcache

import (
	"container/list"
	"sync"
	"time"
)

// DefaultCleanupInterval is how often expired entries are purged in the background.
const DefaultCleanupInterval = time.Minute

// entry stores a value, when it was written, and its position in the eviction order.
type entry[V any] struct {
	value     V
	timestamp time.Time
	element   *list.Element
}

// Cache maps string keys to values that expire after a fixed TTL.
// Uses a doubly-linked list to maintain write order for O(1) eviction.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]*entry[V]
	order   *list.List // keys in write order (oldest at front)
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	done    chan struct{}
	closed  bool
}

// Option configures a Cache.
type Option[V any] func(*Cache[V])

// WithClock replaces time.Now, mainly for tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) {
		c.now = now
	}
}

// New creates a cache holding at most maxSize entries, each valid for ttl.
// A maxSize of zero or less means unbounded.
// A background goroutine periodically removes expired entries until Close.
func New[V any](ttl time.Duration, maxSize int, opts ...Option[V]) *Cache[V] {
	c := &Cache[V]{
		entries: make(map[string]*entry[V]),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.cleanup(DefaultCleanupInterval)
	return c
}

// TTL returns the configured time-to-live.
func (c *Cache[V]) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached value for key if present and younger than the TTL.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.timestamp) >= c.ttl {
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, refreshing its timestamp. If the cache is at
// capacity, the oldest entry is evicted to make room.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value)
}

// CheckAndMark atomically reports whether key is present and fresh, and stores
// value under it when it is not. Returns true for a duplicate.
func (c *Cache[V]) CheckAndMark(key string, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok && c.now().Sub(e.timestamp) < c.ttl {
		return true
	}
	c.setLocked(key, value)
	return false
}

// Delete removes key. Missing keys are ignored.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.order.Remove(e.element)
		delete(c.entries, key)
	}
}

// Len returns the number of stored entries, including expired ones not yet purged.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// setLocked must be called with mu held.
func (c *Cache[V]) setLocked(key string, value V) {
	now := c.now()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.timestamp = now
		c.order.MoveToBack(e.element)
		return
	}

	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	elem := c.order.PushBack(key)
	c.entries[key] = &entry[V]{
		value:     value,
		timestamp: now,
		element:   elem,
	}
}

// evictOldest must be called with mu held.
func (c *Cache[V]) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}

	key, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.entries, key)
}

func (c *Cache[V]) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Purge()
		case <-c.done:
			return
		}
	}
}

// Purge removes every expired entry now.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if now.Sub(e.timestamp) >= c.ttl {
			c.order.Remove(e.element)
			delete(c.entries, key)
		}
	}
}

// Clear removes every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry[V])
	c.order.Init()
}

// Close stops the background cleanup goroutine. It is safe to call multiple times.
func (c *Cache[V]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
