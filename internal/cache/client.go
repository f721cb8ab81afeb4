package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/wicketwise/crickcast/backend/internal/logger"
	"github.com/wicketwise/crickcast/backend/internal/metrics"
)

// LoaderFunc produces a value on a cache miss. Returned errors are never
// cached; the next caller retries the load.
type LoaderFunc func(ctx context.Context) (any, error)

// swrEntry wraps a cached value with its freshness deadline. The entry
// stays readable for the stale window past FreshUntil; the physical TTL
// covers both.
type swrEntry struct {
	Value      json.RawMessage `json:"v"`
	FreshUntil int64           `json:"f"` // unix millis, 0 = always fresh
}

// Client is the tiered cache facade. Reads check the in-process store
// first, then the shared store; values are serialized as JSON under
// namespaced, versioned keys so deploys with format changes never read
// entries written by older code.
type Client struct {
	local   Store
	shared  Store // optional, may be nil
	version string
	locks   sync.Map // full key -> *sync.Mutex
}

// NewClient creates a cache client over a local store and an optional
// shared store.
func NewClient(local Store, shared Store, version string) *Client {
	return &Client{
		local:   local,
		shared:  shared,
		version: version,
	}
}

// Key builds the physical cache key for a namespace and logical key.
func (c *Client) Key(namespace, key string) string {
	return namespace + ":" + c.version + ":" + key
}

// Get retrieves a value and unmarshals it into dest. Returns false on
// miss or decode failure.
func (c *Client) Get(namespace, key string, dest any) bool {
	raw, ok := c.getTiered(c.Key(namespace, key), -1)
	if !ok {
		metrics.CacheMisses.WithLabelValues(namespace).Inc()
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		metrics.CacheMisses.WithLabelValues(namespace).Inc()
		return false
	}
	metrics.CacheHits.WithLabelValues(namespace).Inc()
	return true
}

// Set marshals a value and stores it in every tier. A TTL of 0 stores
// the entry without an expiry.
func (c *Client) Set(namespace, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		logger.Warn("cache set skipped, value not serializable", "namespace", namespace, "error", err)
		return
	}
	c.setTiered(c.Key(namespace, key), raw, ttl)
}

// Delete removes a value from every tier.
func (c *Client) Delete(namespace, key string) {
	full := c.Key(namespace, key)
	c.local.Delete(full)
	if c.shared != nil {
		c.shared.Delete(full)
	}
}

// GetOrSet returns the cached value or runs the loader and stores the
// result. There is no cross-caller exclusion: concurrent callers racing
// on a cold key may each run the loader. Reserve it for values that are
// cheap to recompute; upstream fetches go through StaleWhileRevalidate.
func (c *Client) GetOrSet(ctx context.Context, namespace, key string, ttl time.Duration, loader LoaderFunc, dest any) error {
	full := c.Key(namespace, key)

	if raw, ok := c.getTiered(full, ttl); ok {
		metrics.CacheHits.WithLabelValues(namespace).Inc()
		return json.Unmarshal(raw, dest)
	}

	metrics.CacheMisses.WithLabelValues(namespace).Inc()
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.setTiered(full, raw, ttl)
	return json.Unmarshal(raw, dest)
}

// SingleflightLock returns the mutex for a physical key. The same key
// always yields the same mutex; locks are created on first use and never
// evicted, which is acceptable while key cardinality stays bounded (one
// lock per cached series or match).
func (c *Client) SingleflightLock(full string) *sync.Mutex {
	if mu, ok := c.locks.Load(full); ok {
		return mu.(*sync.Mutex)
	}
	mu, _ := c.locks.LoadOrStore(full, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// StaleWhileRevalidate serves the cached value for the whole ttl+staleTTL
// window and recomputes synchronously on the first call past it. The
// per-key lock guarantees at most one loader execution per key at a time
// process-wide; concurrent cold callers block and then read the stored
// value. There is no background refresh path. A ttl of 0 stores the
// value without expiry.
func (c *Client) StaleWhileRevalidate(ctx context.Context, namespace, key string, ttl, staleTTL time.Duration, loader LoaderFunc, dest any) error {
	full := c.Key(namespace, key)

	if ok := c.readSWR(full, namespace, dest); ok {
		return nil
	}

	mu := c.SingleflightLock(full)
	mu.Lock()
	defer mu.Unlock()

	// Double-check after acquiring the lock: the previous holder may
	// have stored the value while this caller was blocked.
	if ok := c.readSWR(full, namespace, dest); ok {
		return nil
	}

	metrics.CacheMisses.WithLabelValues(namespace).Inc()
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := c.storeSWR(full, ttl, staleTTL, value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Stats returns statistics for the in-process store.
func (c *Client) Stats() Stats {
	return c.local.Stats()
}

// Flush clears every tier.
func (c *Client) Flush() {
	c.local.Clear()
	if c.shared != nil {
		c.shared.Clear()
	}
}

// readSWR reads an entry stored by StaleWhileRevalidate. Reads past the
// fresh boundary but within the stale window still succeed and are
// counted separately.
func (c *Client) readSWR(full, namespace string, dest any) bool {
	raw, ok := c.getTiered(full, -1)
	if !ok {
		return false
	}
	var entry swrEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return false
	}
	if err := json.Unmarshal(entry.Value, dest); err != nil {
		return false
	}
	if entry.FreshUntil != 0 && time.Now().UnixMilli() >= entry.FreshUntil {
		metrics.CacheStaleServed.WithLabelValues(namespace).Inc()
	} else {
		metrics.CacheHits.WithLabelValues(namespace).Inc()
	}
	return true
}

// maxBackfillTTL caps how long a shared-tier hit may live in the local
// tier. The shared entry's remaining lifetime is unknown at read time,
// so a full-TTL backfill would restart the freshness clock and let the
// local copy outlive the shared entry by up to a whole TTL.
const maxBackfillTTL = 30 * time.Second

// getTiered reads the local store first, then the shared store. Shared
// hits are backfilled into the local store when a TTL is known
// (backfillTTL >= 0). A zero TTL means no expiry in either tier, so it
// is passed through uncapped.
func (c *Client) getTiered(full string, backfillTTL time.Duration) ([]byte, bool) {
	if raw, ok := c.local.Get(full); ok {
		return raw, true
	}
	if c.shared == nil {
		return nil, false
	}
	raw, ok := c.shared.Get(full)
	if !ok {
		return nil, false
	}
	if backfillTTL >= 0 {
		if backfillTTL > maxBackfillTTL {
			backfillTTL = maxBackfillTTL
		}
		c.local.Set(full, raw, backfillTTL)
	}
	return raw, true
}

func (c *Client) setTiered(full string, raw []byte, ttl time.Duration) {
	c.local.Set(full, raw, ttl)
	if c.shared != nil {
		c.shared.Set(full, raw, ttl)
	}
}

// storeSWR wraps and stores a value under its physical ttl+staleTTL,
// returning the raw value bytes.
func (c *Client) storeSWR(full string, ttl, staleTTL time.Duration, value any) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	entry := swrEntry{Value: raw}
	physical := ttl + staleTTL
	if ttl > 0 {
		entry.FreshUntil = time.Now().Add(ttl).UnixMilli()
	} else {
		physical = 0
	}
	wrapped, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	c.setTiered(full, wrapped, physical)
	return raw, nil
}
