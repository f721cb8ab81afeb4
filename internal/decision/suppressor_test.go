package decision

import (
	"testing"
	"time"
)

func newTestSuppressor(minDelta float64, cooldown time.Duration) (*Suppressor, *time.Time) {
	s := NewSuppressor(minDelta, cooldown)
	now := time.Date(2024, 5, 12, 19, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestSuppressorFirstObservationEmits(t *testing.T) {
	s, _ := newTestSuppressor(0.08, 45*time.Second)

	emit, previous, reason := s.Observe("m1", 0.50)
	if !emit || previous != nil || reason != "" {
		t.Fatalf("first observation: emit=%v previous=%v reason=%q, want an unconditional emit", emit, previous, reason)
	}
	if s.Len() != 1 {
		t.Errorf("tracked keys = %d, want 1", s.Len())
	}
}

func TestSuppressorHysteresis(t *testing.T) {
	s, now := newTestSuppressor(0.08, 45*time.Second)

	if emit, _, _ := s.Observe("m1", 0.50); !emit {
		t.Fatal("first observation must emit")
	}

	// Small drift inside the cooldown stays silent.
	*now = now.Add(10 * time.Second)
	emit, previous, reason := s.Observe("m1", 0.53)
	if emit || reason != reasonMinDelta {
		t.Fatalf("small delta: emit=%v reason=%q, want silent min_delta", emit, reason)
	}
	if previous == nil || *previous != 0.50 {
		t.Errorf("previous = %v, want the last emitted 0.50", previous)
	}

	// A large swing inside the cooldown is still held back.
	*now = now.Add(10 * time.Second)
	if emit, _, reason := s.Observe("m1", 0.80); emit || reason != reasonCooldown {
		t.Fatalf("inside cooldown: emit=%v reason=%q, want silent cooldown", emit, reason)
	}

	// Past the cooldown the same swing goes through and resets the
	// snapshot.
	*now = now.Add(60 * time.Second)
	if emit, _, _ := s.Observe("m1", 0.80); !emit {
		t.Fatal("large delta past cooldown must emit")
	}
	*now = now.Add(60 * time.Second)
	if _, previous, _ := s.Observe("m1", 0.81); *previous != 0.80 {
		t.Errorf("snapshot not updated: previous = %v, want 0.80", *previous)
	}
}

func TestSuppressorDriftComparesAgainstEmitted(t *testing.T) {
	s, now := newTestSuppressor(0.08, 10*time.Second)

	s.Observe("m1", 0.50)

	// Each step is below the threshold on its own; silence must not
	// advance the reference, so the accumulated drift eventually emits.
	*now = now.Add(time.Minute)
	if emit, _, _ := s.Observe("m1", 0.55); emit {
		t.Fatal("0.05 drift should be silent")
	}
	*now = now.Add(time.Minute)
	emit, previous, _ := s.Observe("m1", 0.60)
	if !emit {
		t.Fatal("accumulated 0.10 drift from the emitted score should emit")
	}
	if *previous != 0.50 {
		t.Errorf("previous = %v, want the emitted 0.50, not the silent 0.55", *previous)
	}
}

func TestSuppressorKeysAreIndependent(t *testing.T) {
	s, _ := newTestSuppressor(0.08, 45*time.Second)

	s.Observe("m1", 0.50)
	if emit, _, _ := s.Observe("m2", 0.50); !emit {
		t.Error("a fresh key must emit regardless of other keys")
	}
	if s.Len() != 2 {
		t.Errorf("tracked keys = %d, want 2", s.Len())
	}
}
