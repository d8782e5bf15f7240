package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/recipecart/backend/internal/domain"
)

// DefaultCleanupInterval is how often expired search results are swept
const DefaultCleanupInterval = 10 * time.Minute

// entry is a single cached value, kept as JSON so callers never share
// mutable state with the cache.
type entry struct {
	value      json.RawMessage
	expiration time.Time
}

// MemoryCache is a thread-safe in-memory cache with TTL support. It backs the
// single-ingredient search lookups.
type MemoryCache struct {
	data       map[string]entry
	maxEntries int
	mutex      sync.RWMutex

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// MemoryCacheConfig controls sweeping and size
type MemoryCacheConfig struct {
	CleanupInterval time.Duration
	// MaxEntries caps the cache; the entry closest to expiry is evicted
	// first. Zero means unbounded.
	MaxEntries int
}

// NewMemoryCache creates a new in-memory cache. Close must be called to
// stop the background sweeper.
func NewMemoryCache(config MemoryCacheConfig) *MemoryCache {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultCleanupInterval
	}

	cache := &MemoryCache{
		data:       make(map[string]entry),
		maxEntries: config.MaxEntries,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}

	go cache.cleanupExpired(config.CleanupInterval)

	return cache
}

// Get retrieves a value from the cache. The value is the stored JSON
// document.
func (c *MemoryCache) Get(ctx context.Context, key string) (interface{}, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[key]
	if !exists || time.Now().After(item.expiration) {
		return nil, domain.ErrCacheMiss
	}

	return item.value, nil
}

// Set stores a value in the cache with TTL
func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.data[key]; !exists && c.maxEntries > 0 && len(c.data) >= c.maxEntries {
		c.evictLocked()
	}
	c.data[key] = entry{
		value:      data,
		expiration: time.Now().Add(ttl),
	}

	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
	return nil
}

// Exists checks if a key exists in the cache and is not expired
func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[key]
	if !exists {
		return false, nil
	}
	return !time.Now().After(item.expiration), nil
}

// Size returns the current number of items in the cache
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]entry)
}

// Close stops the sweeper and waits for it to exit
func (c *MemoryCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

func (c *MemoryCache) cleanupExpired(interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep(time.Now())
		}
	}
}

func (c *MemoryCache) sweep(now time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for key, item := range c.data {
		if now.After(item.expiration) {
			delete(c.data, key)
		}
	}
}

func (c *MemoryCache) evictLocked() {
	var (
		victim string
		oldest time.Time
	)
	for key, item := range c.data {
		if victim == "" || item.expiration.Before(oldest) {
			victim, oldest = key, item.expiration
		}
	}
	delete(c.data, victim)
}
