package features

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wicketwise/crickcast/backend/internal/cache"
	"github.com/wicketwise/crickcast/backend/internal/logger"
	"github.com/wicketwise/crickcast/backend/internal/metrics"
	"github.com/wicketwise/crickcast/backend/internal/upstream"
)

// detailConcurrency bounds parallel match-detail fetches during a build.
const detailConcurrency = 4

// Store builds and caches per-series features. Features are rebuilt
// whole when the cached entry expires, never patched in place.
type Store struct {
	upstream *upstream.Client
	cache    *cache.Client
	ttl      time.Duration
}

// NewStore creates a feature store.
func NewStore(up *upstream.Client, cacheClient *cache.Client, ttl time.Duration) *Store {
	return &Store{upstream: up, cache: cacheClient, ttl: ttl}
}

// Build returns the cached features for a series, computing them on a
// miss.
func (s *Store) Build(ctx context.Context, seriesID string) (*SeriesFeatures, error) {
	var feats SeriesFeatures
	err := s.cache.GetOrSet(ctx, "ft", "series:"+seriesID+":features", s.ttl, func(ctx context.Context) (any, error) {
		return s.build(ctx, seriesID)
	}, &feats)
	if err != nil {
		return nil, err
	}
	return &feats, nil
}

type observation struct {
	result    upstream.MatchResult
	powerplay map[string]upstream.PowerplayScore
}

func (s *Store) build(ctx context.Context, seriesID string) (*SeriesFeatures, error) {
	start := time.Now()
	results, err := s.upstream.SeriesResults(ctx, seriesID)
	if err != nil {
		return nil, err
	}

	// Only settled matches count; "won by" excludes ties, no-results
	// and abandoned games, which carry no usable innings pair.
	var completed []upstream.MatchResult
	for _, r := range results {
		if !strings.Contains(strings.ToLower(r.Status), "won by") {
			continue
		}
		if r.Venue == "" || r.Team1 == "" || r.Team2 == "" || !r.HasScores {
			continue
		}
		completed = append(completed, r)
	}

	// Powerplay splits come from match detail lookups. They are
	// best-effort: a match whose detail fetch fails simply contributes
	// no powerplay observation.
	obs := make([]observation, len(completed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailConcurrency)
	for i, r := range completed {
		g.Go(func() error {
			obs[i].result = r
			detail, err := s.upstream.CompletedMatchDetail(gctx, r.MatchID)
			if err != nil {
				logger.DebugContext(gctx, "skipping powerplay for match", "match_id", r.MatchID, "error", err)
				return nil
			}
			obs[i].powerplay = detail.Powerplay
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	teamForm := map[string]TeamForm{}
	venueRuns := map[string][]float64{}
	venueWkts := map[string][]float64{}
	venuePPRatio := map[string][]float64{}
	var seriesRuns, seriesWkts, seriesPPRatios []float64
	chaseBands := map[string][]int{}

	for _, o := range obs {
		r := o.result
		venueRuns[r.Venue] = append(venueRuns[r.Venue], float64(r.Team1Runs), float64(r.Team2Runs))
		venueWkts[r.Venue] = append(venueWkts[r.Venue], float64(r.Team1Wkts), float64(r.Team2Wkts))
		seriesRuns = append(seriesRuns, float64(r.Team1Runs), float64(r.Team2Runs))
		seriesWkts = append(seriesWkts, float64(r.Team1Wkts), float64(r.Team2Wkts))

		winner := winnerFromStatus(r.Status, r.Team1, r.Team2)
		for _, team := range []string{r.Team1, r.Team2} {
			tf := teamForm[team]
			tf.Played++
			if winner != "" && strings.EqualFold(team, winner) {
				tf.Wins++
			}
			teamForm[team] = tf
		}

		target := r.Team1Runs
		chased := 0
		if r.Team2Runs >= target+1 {
			chased = 1
		}
		band := BandForTarget(target)
		chaseBands[band] = append(chaseBands[band], chased)

		for team, pp := range o.powerplay {
			var total int
			switch {
			case strings.EqualFold(team, r.Team1):
				total = r.Team1Runs
			case strings.EqualFold(team, r.Team2):
				total = r.Team2Runs
			default:
				continue
			}
			if total > 0 && pp.Runs > 0 {
				ratio := float64(pp.Runs) / float64(total)
				venuePPRatio[r.Venue] = append(venuePPRatio[r.Venue], ratio)
				seriesPPRatios = append(seriesPPRatios, ratio)
			}
		}
	}

	venuePriors := map[string]VenuePriors{}
	for venue, runs := range venueRuns {
		wkts := venueWkts[venue]
		if len(runs) < 2 || len(wkts) < 2 {
			continue
		}
		vp := VenuePriors{
			AvgInningsRuns: mean(runs),
			StdInningsRuns: pstdev(runs),
			AvgInningsWkts: mean(wkts),
			StdInningsWkts: pstdev(wkts),
			SampleSize:     len(runs) / 2,
		}
		if pp := venuePPRatio[venue]; len(pp) > 0 {
			ratio := mean(pp)
			vp.PPRatio = &ratio
		}
		venuePriors[venue] = vp
	}

	chasePriors := map[string]float64{}
	for band, outcomes := range chaseBands {
		if len(outcomes) == 0 {
			continue
		}
		var wins int
		for _, c := range outcomes {
			wins += c
		}
		chasePriors[band] = float64(wins) / float64(len(outcomes))
	}

	var seriesPriors *SeriesPriors
	if len(seriesRuns) >= 2 && len(seriesWkts) >= 2 {
		seriesPriors = &SeriesPriors{
			AvgInningsRuns: mean(seriesRuns),
			StdInningsRuns: pstdev(seriesRuns),
			AvgInningsWkts: mean(seriesWkts),
			StdInningsWkts: pstdev(seriesWkts),
			SampleSize:     len(seriesRuns) / 2,
		}
		if len(seriesPPRatios) > 0 {
			ratio := mean(seriesPPRatios)
			seriesPriors.PPRatio = &ratio
		}
	}

	metrics.FeatureBuildDuration.WithLabelValues(seriesID).Observe(time.Since(start).Seconds())
	metrics.FeatureMatchesScanned.WithLabelValues(seriesID).Add(float64(len(results)))
	logger.InfoContext(ctx, "series features built",
		"series", seriesID,
		"matches_scanned", len(results),
		"matches_completed", len(completed),
		"venues", len(venuePriors),
		"duration_ms", time.Since(start).Milliseconds())

	return &SeriesFeatures{
		TeamForm:     teamForm,
		VenuePriors:  venuePriors,
		ChasePriors:  chasePriors,
		SeriesPriors: seriesPriors,
	}, nil
}

// winnerFromStatus matches the status text prefix against the two team
// names, e.g. "Falcons won by 5 wkts".
func winnerFromStatus(status, team1, team2 string) string {
	lower := strings.ToLower(status)
	switch {
	case strings.HasPrefix(lower, strings.ToLower(team1)):
		return team1
	case strings.HasPrefix(lower, strings.ToLower(team2)):
		return team2
	default:
		return ""
	}
}
