package scheduler

import (
	"testing"
	"time"
)

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{"hourly", "@hourly", false},
		{"daily", "@daily", false},
		{"every 1h", "@every 1h", false},
		{"every 30m", "@every 30m", false},
		{"every 2d", "@every 2d", false},
		{"padded", "  @every 5m  ", false},
		{"unknown keyword", "@weekly", true},
		{"bad duration", "@every soon", true},
		{"zero interval", "@every 0s", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSchedule(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseSchedule(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}

func TestScheduleNext(t *testing.T) {
	base := time.Date(2024, 5, 12, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		expr string
		want time.Time
	}{
		{"every 10m", "@every 10m", base.Add(10 * time.Minute)},
		{"every 1d", "@every 1d", base.Add(24 * time.Hour)},
		{"hourly snaps forward", "@hourly", time.Date(2024, 5, 12, 11, 0, 0, 0, time.UTC)},
		{"daily snaps to midnight", "@daily", time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseSchedule(tt.expr)
			if err != nil {
				t.Fatalf("ParseSchedule(%q): %v", tt.expr, err)
			}
			if got := s.Next(base); !got.Equal(tt.want) {
				t.Errorf("Next(%v) = %v, want %v", base, got, tt.want)
			}
		})
	}
}

func TestScheduleZeroValueDefaults(t *testing.T) {
	var s Schedule
	base := time.Date(2024, 5, 12, 10, 30, 0, 0, time.UTC)
	if got := s.Next(base); !got.Equal(base.Add(10 * time.Minute)) {
		t.Errorf("zero schedule Next = %v, want ten minutes out", got)
	}
	if got := s.String(); got != "@every 10m0s" {
		t.Errorf("zero schedule String = %q", got)
	}
}
