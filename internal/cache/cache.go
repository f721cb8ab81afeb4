package cache

import "time"

// Store defines the interface for caching serialized data with TTL.
type Store interface {
	// Get retrieves a value from the store by key.
	// Returns the value and true if found and not expired, otherwise nil and false.
	Get(key string) ([]byte, bool)

	// Set stores a value with the given key and TTL.
	// A TTL of 0 means the entry never expires.
	Set(key string, value []byte, ttl time.Duration)

	// Delete removes a value from the store.
	Delete(key string)

	// Clear removes all values from the store.
	Clear()

	// Stats returns store statistics.
	Stats() Stats
}

// Stats represents cache statistics.
type Stats struct {
	Hits      uint64 // Total cache hits
	Misses    uint64 // Total cache misses
	KeysAdded uint64 // Total keys added
	Evictions uint64 // Total evictions
	Size      int64  // Approximate size in bytes
	Items     int64  // Current number of items
}
