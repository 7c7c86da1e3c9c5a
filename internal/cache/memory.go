package cache

import (
	"sync"
	"time"
)

// Entry represents a cached value with expiration
type Entry[V any] struct {
	Value      V
	Expiration time.Time
}

// IsExpired checks if the entry has expired
func (e *Entry[V]) IsExpired() bool {
	return time.Now().After(e.Expiration)
}

// MemoryCache is an in-memory cache whose entries expire after a fixed TTL
type MemoryCache[K comparable, V any] struct {
	items map[K]*Entry[V]
	mutex sync.RWMutex
	ttl   time.Duration
	done  chan struct{}
	once  sync.Once
}

// NewMemoryCache creates a cache and starts its cleanup goroutine. Call
// Close to stop it.
func NewMemoryCache[K comparable, V any](ttl time.Duration) *MemoryCache[K, V] {
	c := &MemoryCache[K, V]{
		items: make(map[K]*Entry[V]),
		ttl:   ttl,
		done:  make(chan struct{}),
	}

	go c.cleanupExpired(cleanupInterval(ttl))

	return c
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl < 5*time.Minute {
		return ttl
	}
	return 5 * time.Minute
}

// Set stores a value in the cache
func (c *MemoryCache[K, V]) Set(key K, value V) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = &Entry[V]{
		Value:      value,
		Expiration: time.Now().Add(c.ttl),
	}
}

// Get retrieves a live value from the cache
func (c *MemoryCache[K, V]) Get(key K) (V, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.items[key]
	if !exists || entry.IsExpired() {
		var zero V
		return zero, false
	}

	return entry.Value, true
}

// Delete removes a value from the cache
func (c *MemoryCache[K, V]) Delete(key K) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *MemoryCache[K, V]) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items = make(map[K]*Entry[V])
}

// Size returns the number of stored items, expired ones included until the
// next cleanup.
func (c *MemoryCache[K, V]) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.items)
}

// Close stops the cleanup goroutine.
func (c *MemoryCache[K, V]) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *MemoryCache[K, V]) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mutex.Lock()
			for key, entry := range c.items {
				if entry.IsExpired() {
					delete(c.items, key)
				}
			}
			c.mutex.Unlock()
		}
	}
}
