package upstream

import (
	"context"
	"sync/atomic"
	"time"
)

type statsKey struct{}

// Stats accumulates per-request counters so responses can report how
// much work a call actually did.
type Stats struct {
	CacheHits         atomic.Int64
	CacheMisses       atomic.Int64
	UpstreamCalls     atomic.Int64
	UpstreamLatencyMS atomic.Int64
	start             time.Time
}

// WithStats attaches a fresh Stats to the context and returns both.
func WithStats(ctx context.Context) (context.Context, *Stats) {
	s := &Stats{start: time.Now()}
	return context.WithValue(ctx, statsKey{}, s), s
}

// StatsFrom returns the Stats attached to the context, or nil.
func StatsFrom(ctx context.Context) *Stats {
	s, _ := ctx.Value(statsKey{}).(*Stats)
	return s
}

// Snapshot renders the counters for inclusion in a response payload.
func (s *Stats) Snapshot() map[string]int64 {
	return map[string]int64{
		"cache_hits":          s.CacheHits.Load(),
		"cache_misses":        s.CacheMisses.Load(),
		"upstream_calls":      s.UpstreamCalls.Load(),
		"upstream_latency_ms": s.UpstreamLatencyMS.Load(),
		"total_latency_ms":    time.Since(s.start).Milliseconds(),
	}
}

func recordHit(ctx context.Context) {
	if s := StatsFrom(ctx); s != nil {
		s.CacheHits.Add(1)
	}
}

func recordMiss(ctx context.Context) {
	if s := StatsFrom(ctx); s != nil {
		s.CacheMisses.Add(1)
	}
}

func recordCall(ctx context.Context, latency time.Duration) {
	if s := StatsFrom(ctx); s != nil {
		s.UpstreamCalls.Add(1)
		s.UpstreamLatencyMS.Add(latency.Milliseconds())
	}
}
