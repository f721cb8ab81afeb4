package metrics

import (
	"context"
	"time"
)

// CacheStats is a point-in-time snapshot of the in-process cache store.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	CostUsed  int64
}

// Collector periodically refreshes snapshot gauges from live components.
type Collector struct {
	cacheStats   func() CacheStats
	trackerCount func() int
	interval     time.Duration
	stop         chan struct{}
}

// NewCollector creates a new metrics collector. Either source may be nil,
// in which case its gauges are left untouched.
func NewCollector(cacheStats func() CacheStats, trackerCount func() int, interval time.Duration) *Collector {
	return &Collector{
		cacheStats:   cacheStats,
		trackerCount: trackerCount,
		interval:     interval,
		stop:         make(chan struct{}),
	}
}

// Start runs the collection loop until Stop is called or ctx is
// canceled. It blocks, so callers run it in its own goroutine.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Collect initial metrics
	c.collect()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the metrics collector
func (c *Collector) Stop() {
	close(c.stop)
}

func (c *Collector) collect() {
	if c.cacheStats != nil {
		stats := c.cacheStats()
		CacheStoreHits.Set(float64(stats.Hits))
		CacheStoreMisses.Set(float64(stats.Misses))
		CacheStoreEvictions.Set(float64(stats.Evictions))
		CacheStoreCostUsed.Set(float64(stats.CostUsed))
	}
	if c.trackerCount != nil {
		DecisionTrackersActive.Set(float64(c.trackerCount()))
	}
}
