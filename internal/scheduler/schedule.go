package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const defaultInterval = 10 * time.Minute

// Schedule yields successive run times for the warm loop. The zero
// value runs every ten minutes.
type Schedule struct {
	interval time.Duration
	aligned  string
}

// ParseSchedule parses a warm cadence expression. Supported forms are
// "@every <duration>" (with a "d" suffix accepted for days), "@hourly"
// and "@daily".
func ParseSchedule(expr string) (Schedule, error) {
	expr = strings.TrimSpace(expr)
	switch {
	case expr == "@hourly":
		return Schedule{aligned: "hourly"}, nil
	case expr == "@daily":
		return Schedule{aligned: "daily"}, nil
	case strings.HasPrefix(expr, "@every "):
		d, err := parseEvery(strings.TrimPrefix(expr, "@every "))
		if err != nil {
			return Schedule{}, err
		}
		if d <= 0 {
			return Schedule{}, fmt.Errorf("schedule interval must be positive, got %s", d)
		}
		return Schedule{interval: d}, nil
	}
	return Schedule{}, fmt.Errorf("unsupported schedule %q, use @every <duration>, @hourly or @daily", expr)
}

func parseEvery(s string) (time.Duration, error) {
	// time.ParseDuration has no day unit.
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// Next returns the first run time strictly after from. Aligned
// schedules snap to the top of the next hour or day in from's
// location.
func (s Schedule) Next(from time.Time) time.Time {
	switch s.aligned {
	case "hourly":
		return from.Truncate(time.Hour).Add(time.Hour)
	case "daily":
		y, m, d := from.Date()
		return time.Date(y, m, d+1, 0, 0, 0, 0, from.Location())
	}
	iv := s.interval
	if iv <= 0 {
		iv = defaultInterval
	}
	return from.Add(iv)
}

func (s Schedule) String() string {
	if s.aligned != "" {
		return "@" + s.aligned
	}
	iv := s.interval
	if iv <= 0 {
		iv = defaultInterval
	}
	return "@every " + iv.String()
}
