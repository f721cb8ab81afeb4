package scheduler

import (
	"context"
	"time"

	"github.com/wicketwise/crickcast/backend/internal/features"
	"github.com/wicketwise/crickcast/backend/internal/logger"
	"github.com/wicketwise/crickcast/backend/internal/upstream"
)

// Service keeps the default series warm: it periodically rebuilds the
// feature set and today's match list so the first request after a TTL
// expiry never pays the full upstream fan-out.
type Service struct {
	upstream *upstream.Client
	features *features.Store
	seriesID string
	schedule Schedule
	stop     chan struct{}
}

// NewService creates a warmer for one series. The zero Schedule runs
// every ten minutes.
func NewService(up *upstream.Client, store *features.Store, seriesID string, sched Schedule) *Service {
	return &Service{
		upstream: up,
		features: store,
		seriesID: seriesID,
		schedule: sched,
		stop:     make(chan struct{}),
	}
}

// Start begins the warm loop and blocks until the context is done or
// Stop is called. The first pass runs immediately.
func (s *Service) Start(ctx context.Context) {
	logger.Info("cache warmer started", "series_id", s.seriesID, "schedule", s.schedule.String())
	timer := time.NewTimer(time.Until(s.schedule.Next(time.Now())))
	defer timer.Stop()

	s.warm(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Info("cache warmer stopped by context")
			return
		case <-s.stop:
			logger.Info("cache warmer stopped")
			return
		case <-timer.C:
			s.warm(ctx)
			timer.Reset(time.Until(s.schedule.Next(time.Now())))
		}
	}
}

// Stop ends the warm loop.
func (s *Service) Stop() {
	close(s.stop)
}

func (s *Service) warm(ctx context.Context) {
	t0 := time.Now()

	if _, err := s.features.Build(ctx, s.seriesID); err != nil {
		logger.WarnContext(ctx, "feature warm failed", "series_id", s.seriesID, "error", err)
		return
	}

	today := time.Now().UTC().Format("2006-01-02")
	matches, err := s.upstream.MatchesOn(ctx, s.seriesID, today)
	if err != nil {
		logger.WarnContext(ctx, "match list warm failed", "series_id", s.seriesID, "date", today, "error", err)
		return
	}

	logger.InfoContext(ctx, "cache warm pass complete",
		"series_id", s.seriesID,
		"matches_today", len(matches),
		"elapsed_ms", time.Since(t0).Milliseconds())
}
