package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/wicketwise/crickcast/backend/internal/cache"
	"github.com/wicketwise/crickcast/backend/internal/circuitbreaker"
	"github.com/wicketwise/crickcast/backend/internal/config"
	"github.com/wicketwise/crickcast/backend/internal/httpx"
	"github.com/wicketwise/crickcast/backend/internal/logger"
	"github.com/wicketwise/crickcast/backend/internal/metrics"
	"github.com/wicketwise/crickcast/backend/internal/tracing"
)

const dayKeyLayout = "Mon, 02 Jan 2006"

// Client reads the live cricket data feed through the tiered cache. All
// reads are cache-first; a failed upstream call propagates to the caller
// and is never cached.
type Client struct {
	http      *http.Client
	baseURL   string
	apiKey    string
	userAgent string
	cache     *cache.Client
	cfg       *config.Config
	breaker   *circuitbreaker.CircuitBreaker
}

// New creates a feed client.
func New(cfg *config.Config, cacheClient *cache.Client) *Client {
	return &Client{
		http:      &http.Client{Timeout: cfg.HTTPTimeout},
		baseURL:   cfg.UpstreamBaseURL,
		apiKey:    cfg.UpstreamAPIKey,
		userAgent: cfg.UserAgent,
		cache:     cacheClient,
		cfg:       cfg,
		breaker:   circuitbreaker.New(circuitbreaker.Config{Name: "upstream"}),
	}
}

// fetchJSON performs an upstream GET and decodes the body into out.
// Transient failures are retried per the configured policy before the
// error is surfaced.
func (c *Client) fetchJSON(ctx context.Context, path, label string, out any) error {
	if !c.breaker.Allow() {
		metrics.UpstreamRequestsTotal.WithLabelValues(label, "error").Inc()
		return &Error{Type: ErrorServerError, Message: "live data feed circuit open"}
	}

	build := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("build upstream request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		if c.apiKey != "" {
			req.Header.Set("x-api-key", c.apiKey)
		}
		return req, nil
	}
	policy := httpx.Policy{MaxAttempts: c.cfg.HTTPMaxRetries, BaseDelay: c.cfg.HTTPRetryBase}
	observe := func(info httpx.AttemptInfo) {
		metrics.UpstreamRetries.WithLabelValues(label).Inc()
		logger.WarnContext(ctx, "upstream retry",
			"endpoint", label, "attempt", info.Attempt, "status", info.Status, "error", info.Err)
	}

	t0 := time.Now()
	resp, err := httpx.Do(ctx, c.http, build, policy, observe)
	latency := time.Since(t0)
	recordCall(ctx, latency)
	metrics.UpstreamRequestDuration.WithLabelValues(label).Observe(latency.Seconds())

	if err != nil {
		c.breaker.Failure()
		metrics.UpstreamRequestsTotal.WithLabelValues(label, "error").Inc()
		return &Error{Type: ErrorServerError, Message: err.Error()}
	}
	defer resp.Body.Close()

	logger.InfoContext(ctx, "upstream call",
		"endpoint", label, "path", path,
		"latency_ms", latency.Milliseconds(), "status", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		// 4xx reflect the request, not feed health
		if resp.StatusCode >= 500 {
			c.breaker.Failure()
		} else {
			c.breaker.Success()
		}
		metrics.UpstreamRequestsTotal.WithLabelValues(label, "error").Inc()
		metrics.UpstreamErrors.WithLabelValues(label, strconv.Itoa(resp.StatusCode)).Inc()
		return ClassifyStatus(resp.StatusCode)
	}
	c.breaker.Success()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(label, "error").Inc()
		return BadPayload(err.Error())
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(label, "success").Inc()
	return nil
}

// cachedJSON is the locked read-through path: per-key lock, double-check,
// load, store. Upstream failures propagate uncached. A zero stale window
// makes this a plain locked get-or-load.
func (c *Client) cachedJSON(ctx context.Context, namespace, key string, ttl time.Duration, path, label string, out any) error {
	missed := false
	err := c.cache.StaleWhileRevalidate(ctx, namespace, key, ttl, 0, func(ctx context.Context) (any, error) {
		missed = true
		var payload json.RawMessage
		if err := c.fetchJSON(ctx, path, label, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	}, out)
	if err != nil {
		return err
	}
	if missed {
		recordMiss(ctx)
	} else {
		recordHit(ctx)
	}
	return nil
}

// swrJSON is the stale-while-revalidate path for slow-moving data.
func (c *Client) swrJSON(ctx context.Context, namespace, key string, ttl, staleTTL time.Duration, path, label string, out any) error {
	missed := false
	err := c.cache.StaleWhileRevalidate(ctx, namespace, key, ttl, staleTTL, func(ctx context.Context) (any, error) {
		missed = true
		var payload json.RawMessage
		if err := c.fetchJSON(ctx, path, label, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	}, out)
	if err != nil {
		return err
	}
	if missed {
		recordMiss(ctx)
	} else {
		recordHit(ctx)
	}
	return nil
}

// schedule returns the full series schedule, cached with a long fresh
// window plus a stale window so slow feed days never block reads.
func (c *Client) schedule(ctx context.Context, seriesID string) (*schedulePayload, error) {
	ctx, span := tracing.StartSpan(ctx, "upstream.schedule")
	defer span.End()

	var payload schedulePayload
	err := c.swrJSON(ctx, "sched", seriesID,
		c.cfg.ScheduleTTL, c.cfg.ScheduleStaleTTL,
		"/series/"+seriesID, "series", &payload)
	if err != nil {
		return nil, err
	}
	return &payload, nil
}

// matchListTTL picks a cache TTL by date volatility: past days barely
// change, today churns, future days move with schedule updates.
func (c *Client) matchListTTL(date string) time.Duration {
	today := time.Now().UTC().Format("2006-01-02")
	switch {
	case date < today:
		return c.cfg.MatchListPastTTL
	case date == today:
		return c.cfg.MatchListLiveTTL
	default:
		return c.cfg.MatchListSoonTTL
	}
}

// MatchesOn returns the T20 matches scheduled for a date (YYYY-MM-DD) in
// a series.
func (c *Client) MatchesOn(ctx context.Context, seriesID, date string) ([]MatchSummary, error) {
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	listKey := seriesID + ":" + date
	var cached []MatchSummary
	if c.cache.Get("matchlist", listKey, &cached) {
		recordHit(ctx)
		return cached, nil
	}

	payload, err := c.schedule(ctx, seriesID)
	if err != nil {
		return nil, err
	}

	dayKey := parsed.Format(dayKeyLayout)
	var matches []MatchSummary
	for _, day := range payload.MatchDetails {
		if day.MatchDetailsMap.Key != dayKey {
			continue
		}
		for _, m := range day.MatchDetailsMap.Match {
			info := m.MatchInfo
			if info.MatchFormat != "T20" {
				continue
			}
			matches = append(matches, MatchSummary{
				MatchID:   strconv.FormatInt(info.MatchID, 10),
				Team1:     info.Team1.TeamName,
				Team2:     info.Team2.TeamName,
				Venue:     info.VenueInfo.Ground,
				City:      info.VenueInfo.City,
				Status:    info.Status,
				Format:    info.MatchFormat,
				StartTime: info.startTime(),
			})
		}
	}

	c.cache.Set("matchlist", listKey, matches, c.matchListTTL(date))
	logger.InfoContext(ctx, "match list resolved",
		"series", seriesID, "date", date, "matches", len(matches))
	return matches, nil
}

// MatchByDate returns the first T20 match on a date, or nil when the
// schedule has none.
func (c *Client) MatchByDate(ctx context.Context, seriesID, date string) (*MatchSummary, error) {
	matches, err := c.MatchesOn(ctx, seriesID, date)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}

// SeriesResults returns every match in a series schedule with final
// innings scores where the feed has settled them.
func (c *Client) SeriesResults(ctx context.Context, seriesID string) ([]MatchResult, error) {
	payload, err := c.schedule(ctx, seriesID)
	if err != nil {
		return nil, err
	}

	var results []MatchResult
	for _, day := range payload.MatchDetails {
		for _, m := range day.MatchDetailsMap.Match {
			info := m.MatchInfo
			r := MatchResult{
				MatchID: strconv.FormatInt(info.MatchID, 10),
				Team1:   info.Team1.TeamName,
				Team2:   info.Team2.TeamName,
				Venue:   info.VenueInfo.Ground,
				Status:  info.Status,
			}
			if ms := m.MatchScore; ms != nil {
				t1, t2 := ms.Team1Score.Inngs1, ms.Team2Score.Inngs1
				if t1 != nil && t2 != nil &&
					t1.Runs != nil && t1.Wickets != nil &&
					t2.Runs != nil && t2.Wickets != nil {
					r.Team1Runs, r.Team1Wkts = *t1.Runs, *t1.Wickets
					r.Team2Runs, r.Team2Wkts = *t2.Runs, *t2.Wickets
					r.HasScores = true
				}
			}
			results = append(results, r)
		}
	}
	return results, nil
}

// MatchDetail resolves the live state of one match. The match center
// call must succeed; scorecard and overs are best-effort refinements.
func (c *Client) MatchDetail(ctx context.Context, matchID string) (*MatchDetail, error) {
	ctx, span := tracing.StartSpan(ctx, "upstream.match_detail")
	defer span.End()

	var info matchDetailPayload
	err := c.cachedJSON(ctx, "match", matchID+":info", c.cfg.MatchInfoTTL,
		"/match/"+matchID, "match", &info)
	if err != nil {
		return nil, err
	}

	mi := info.MatchInfo
	detail := &MatchDetail{
		Team1:        mi.Team1.Name,
		Team2:        mi.Team2.Name,
		Venue:        mi.Venue.Name,
		Status:       mi.Status,
		State:        mi.State,
		TossWinner:   mi.TossResults.TossWinnerName,
		TossDecision: mi.TossResults.Decision,
		Squads:       map[string][]string{},
		PlayingXI:    map[string][]string{},
		Powerplay:    map[string]PowerplayScore{},
	}

	for _, team := range []teamDetail{mi.Team1, mi.Team2} {
		if team.Name == "" {
			continue
		}
		var squad, eleven []string
		for _, p := range team.PlayerDetails {
			squad = append(squad, p.FullName)
			if !p.Substitute {
				eleven = append(eleven, p.FullName)
			}
		}
		detail.Squads[team.Name] = squad
		// The feed marks everyone a substitute until the XI is announced
		if len(eleven) < 11 {
			eleven = squad
		}
		detail.PlayingXI[team.Name] = eleven
	}

	var card scorecardPayload
	if err := c.cachedJSON(ctx, "match", matchID+":scorecard", c.cfg.ScorecardTTL,
		"/match/"+matchID+"/scorecard", "scorecard", &card); err == nil {
		for _, in := range card.Scorecard {
			if in.InningsID != 0 && in.BatTeamName != "" {
				detail.Innings = append(detail.Innings, in)
			}
		}
	} else {
		logger.DebugContext(ctx, "scorecard unavailable", "match_id", matchID, "error", err)
	}

	var overs oversPayload
	if err := c.cachedJSON(ctx, "match", matchID+":overs", c.cfg.OversTTL,
		"/match/"+matchID+"/overs", "overs", &overs); err == nil {
		scores := overs.MatchScoreDetails.InningsScoreList
		if len(detail.Innings) == 0 {
			detail.Innings = scores
		}
		detail.Powerplay = extractPowerplay(scores, overs.PPData)
	} else {
		logger.DebugContext(ctx, "overs unavailable", "match_id", matchID, "error", err)
	}

	return detail, nil
}

// CompletedMatchDetail fetches match details with a long TTL. Use only
// for matches known to be completed.
func (c *Client) CompletedMatchDetail(ctx context.Context, matchID string) (*MatchDetail, error) {
	var detail MatchDetail
	err := c.cache.GetOrSet(ctx, "completed", matchID, c.cfg.CompletedMatchTTL, func(ctx context.Context) (any, error) {
		return c.MatchDetail(ctx, matchID)
	}, &detail)
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// extractPowerplay derives each batting side's powerplay score. Inside
// the powerplay the current score is the powerplay score; afterwards the
// feed's ppData is used, and failing that a run-rate estimate with
// wickets capped at 2.
func extractPowerplay(scores []InningsScore, ppData map[string]struct {
	RunsScored int `json:"runsScored"`
}) map[string]PowerplayScore {
	powerplay := make(map[string]PowerplayScore)
	for _, in := range scores {
		switch {
		case in.Overs <= 6:
			powerplay[in.BatTeamName] = PowerplayScore{Runs: in.Runs, Wickets: in.Wickets}
		default:
			ppKey := "pp_1"
			if in.InningsID != 1 {
				ppKey = "pp_2"
			}
			if pp, ok := ppData[ppKey]; ok && pp.RunsScored > 0 {
				powerplay[in.BatTeamName] = PowerplayScore{Runs: pp.RunsScored}
				continue
			}
			est := int(float64(in.Runs) * 6 / in.Overs)
			wkts := in.Wickets
			if wkts > 2 {
				wkts = 2
			}
			powerplay[in.BatTeamName] = PowerplayScore{Runs: est, Wickets: wkts}
		}
	}
	return powerplay
}
