package decision

import (
	"sync"
	"time"

	"github.com/wicketwise/crickcast/backend/internal/metrics"
)

// Suppression reasons, used both as metric labels and to explain a
// silent payload.
const (
	reasonMinDelta = "min_delta"
	reasonCooldown = "cooldown"
)

// snapshot is the last emitted score for one match key.
type snapshot struct {
	at    time.Time
	score float64
}

// tracker serializes evaluations for one match key. Concurrent polls
// for the same match must not interleave the compare-and-update.
type tracker struct {
	mu   sync.Mutex
	last *snapshot
}

// Suppressor is the per-match hysteresis registry. Trackers are created
// on first use and never evicted; cardinality is bounded by the number
// of matches live at once.
type Suppressor struct {
	minDelta float64
	cooldown time.Duration
	trackers sync.Map // match key -> *tracker

	// now is swappable in tests.
	now func() time.Time
}

// NewSuppressor creates a suppressor with the given hysteresis bounds.
func NewSuppressor(minDelta float64, cooldown time.Duration) *Suppressor {
	return &Suppressor{minDelta: minDelta, cooldown: cooldown, now: time.Now}
}

func (s *Suppressor) trackerFor(key string) *tracker {
	if t, ok := s.trackers.Load(key); ok {
		return t.(*tracker)
	}
	t, loaded := s.trackers.LoadOrStore(key, &tracker{})
	if !loaded {
		metrics.DecisionTrackersActive.Inc()
	}
	return t.(*tracker)
}

// Observe compares score against the last emitted score for key. The
// first observation for a key always emits. Later observations emit
// only when the score moved by at least minDelta and the cooldown
// window has passed; a silent observation leaves the stored snapshot
// untouched so slow drift cannot creep past the threshold.
//
// The returned previous score is nil on the first observation. reason
// is empty when emit is true.
func (s *Suppressor) Observe(key string, score float64) (emit bool, previous *float64, reason string) {
	t := s.trackerFor(key)
	t.mu.Lock()
	defer t.mu.Unlock()

	now := s.now()
	if t.last == nil {
		t.last = &snapshot{at: now, score: score}
		return true, nil, ""
	}

	prev := t.last.score
	if delta := score - prev; delta < s.minDelta && delta > -s.minDelta {
		return false, &prev, reasonMinDelta
	}
	if now.Sub(t.last.at) < s.cooldown {
		return false, &prev, reasonCooldown
	}

	t.last = &snapshot{at: now, score: score}
	return true, &prev, ""
}

// Len reports how many match keys are currently tracked.
func (s *Suppressor) Len() int {
	n := 0
	s.trackers.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
