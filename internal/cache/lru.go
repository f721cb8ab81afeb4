package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// LRUStore is a size-bounded LRU store implementation using ristretto.
type LRUStore struct {
	cache *ristretto.Cache
}

// cacheItem wraps the data with expiration time.
type cacheItem struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

// NewLRU creates a new LRU store with the given configuration.
// maxCost is the maximum total size of cached values in bytes.
// maxEntries is the expected maximum number of entries.
func NewLRU(maxCost int64, maxEntries int64) (*LRUStore, error) {
	// NumCounters should be ~10x the number of entries for optimal performance
	numCounters := maxEntries * 10
	if numCounters < 1000 {
		numCounters = 1000
	}

	config := &ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     maxCost,
		BufferItems: 64, // Number of keys per Get buffer
		Metrics:     true,
	}

	cache, err := ristretto.NewCache(config)
	if err != nil {
		return nil, err
	}

	return &LRUStore{cache: cache}, nil
}

// Get retrieves a value from the store by key.
func (c *LRUStore) Get(key string) ([]byte, bool) {
	val, found := c.cache.Get(key)
	if !found {
		return nil, false
	}

	item, ok := val.(*cacheItem)
	if !ok {
		// Invalid item type, delete it
		c.cache.Del(key)
		return nil, false
	}

	// Check expiration
	if !item.expiresAt.IsZero() && time.Now().After(item.expiresAt) {
		c.cache.Del(key)
		return nil, false
	}

	return item.data, true
}

// Set stores a value with the given key and TTL. A TTL of 0 stores the
// entry without an expiry.
func (c *LRUStore) Set(key string, value []byte, ttl time.Duration) {
	item := &cacheItem{data: value}
	if ttl > 0 {
		item.expiresAt = time.Now().Add(ttl)
	}

	// Cost is the size of the data in bytes
	cost := int64(len(value))

	// Set will return false if the item could not be added (e.g., due to size limits)
	// We ignore the return value as ristretto handles eviction internally
	_ = c.cache.Set(key, item, cost)

	// Wait for value to pass through buffers (recommended by ristretto docs)
	c.cache.Wait()
}

// Delete removes a value from the store.
func (c *LRUStore) Delete(key string) {
	c.cache.Del(key)
}

// Clear removes all values from the store.
func (c *LRUStore) Clear() {
	c.cache.Clear()
}

// Stats returns store statistics.
func (c *LRUStore) Stats() Stats {
	metrics := c.cache.Metrics

	return Stats{
		Hits:      metrics.Hits(),
		Misses:    metrics.Misses(),
		KeysAdded: metrics.KeysAdded(),
		Evictions: metrics.KeysEvicted(),
		Size:      int64(metrics.CostAdded() - metrics.CostEvicted()), // Approximate current size
		Items:     int64(metrics.KeysAdded() - metrics.KeysEvicted()),
	}
}

// Close closes the store and releases resources.
func (c *LRUStore) Close() {
	c.cache.Close()
}
