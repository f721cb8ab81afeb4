package predict

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/wicketwise/crickcast/backend/internal/cache"
	"github.com/wicketwise/crickcast/backend/internal/config"
	"github.com/wicketwise/crickcast/backend/internal/features"
	"github.com/wicketwise/crickcast/backend/internal/logger"
	"github.com/wicketwise/crickcast/backend/internal/metrics"
	"github.com/wicketwise/crickcast/backend/internal/tracing"
	"github.com/wicketwise/crickcast/backend/internal/upstream"
	"github.com/wicketwise/crickcast/backend/internal/utils"
)

// ErrMatchNotFound reports that no match exists at the requested series,
// date and index.
var ErrMatchNotFound = errors.New("no match found for requested date and match number")

// ErrInsufficientData reports that neither team has usable form, so a
// winner probability cannot be computed.
var ErrInsufficientData = errors.New("insufficient data for winner prediction")

var completedTokens = []string{"won by", "match tied", "no result", "abandoned", "complete"}

// Service derives staged predictions from live match data and series
// features. Each request re-derives the stage from upstream state; there
// is no persisted stage machine.
type Service struct {
	upstream *upstream.Client
	features *features.Store
	cache    *cache.Client
	cfg      *config.Config
}

// NewService creates a prediction service.
func NewService(up *upstream.Client, store *features.Store, cacheClient *cache.Client, cfg *config.Config) *Service {
	return &Service{upstream: up, features: store, cache: cacheClient, cfg: cfg}
}

func (s *Service) stageTTL(stage string) time.Duration {
	switch stage {
	case StageCompleted:
		return s.cfg.PredCompletedTTL
	case StageInProgress, StageInningsBreak:
		return s.cfg.PredInProgressTTL
	case StagePostToss:
		return s.cfg.PredPostTossTTL
	case StageLive:
		return s.cfg.PredLiveTTL
	default:
		return s.cfg.PredPreTossTTL
	}
}

// ResolvePreMatch returns the pre-match prediction for the matchNumber-th
// match on a date. Results are cached per stage; identical requests
// within the TTL window return the cached payload unchanged.
func (s *Service) ResolvePreMatch(ctx context.Context, seriesID, date string, matchNumber int) (*Prediction, error) {
	ctx, span := tracing.StartSpan(ctx, "predict.prematch")
	defer span.End()

	key := fmt.Sprintf("%s:%s:%d:prematch", seriesID, date, matchNumber)
	var cached Prediction
	if s.cache.Get("pred", key, &cached) {
		return &cached, nil
	}

	start := time.Now()
	pred, err := s.computePreMatch(ctx, seriesID, date, matchNumber)
	if err != nil {
		return nil, err
	}
	metrics.PredictionsTotal.WithLabelValues(pred.Stage).Inc()
	metrics.PredictionDuration.WithLabelValues(pred.Stage).Observe(time.Since(start).Seconds())
	s.cache.Set("pred", key, pred, s.stageTTL(pred.Stage))
	return pred, nil
}

// ResolveLive returns the live prediction for the matchNumber-th match
// on a date, falling back to the pre-match payload before the first ball.
func (s *Service) ResolveLive(ctx context.Context, seriesID, date string, matchNumber int) (*Prediction, error) {
	ctx, span := tracing.StartSpan(ctx, "predict.live")
	defer span.End()

	key := fmt.Sprintf("%s:%s:%d:live", seriesID, date, matchNumber)
	var cached Prediction
	if s.cache.Get("pred", key, &cached) {
		return &cached, nil
	}

	start := time.Now()
	pred, err := s.computeLive(ctx, seriesID, date, matchNumber)
	if err != nil {
		return nil, err
	}
	metrics.PredictionsTotal.WithLabelValues(pred.Stage).Inc()
	metrics.PredictionDuration.WithLabelValues(pred.Stage).Observe(time.Since(start).Seconds())
	s.cache.Set("pred", key, pred, s.stageTTL(pred.Stage))
	return pred, nil
}

func (s *Service) pickMatch(ctx context.Context, seriesID, date string, matchNumber int) (*upstream.MatchSummary, error) {
	matches, err := s.upstream.MatchesOn(ctx, seriesID, date)
	if err != nil {
		return nil, err
	}
	if matchNumber < 0 || matchNumber >= len(matches) {
		return nil, fmt.Errorf("%w: series %s date %s index %d", ErrMatchNotFound, seriesID, date, matchNumber)
	}
	return &matches[matchNumber], nil
}

func isCompletedStatus(status string) bool {
	lower := strings.ToLower(status)
	for _, token := range completedTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

func anyInningsStarted(innings []upstream.InningsScore) bool {
	for _, in := range innings {
		if in.Overs > 0 || in.Runs > 0 {
			return true
		}
	}
	return false
}

// oversDecimal converts the feed's overs notation (12.3 = 12 overs and
// 3 balls) into a decimal over count.
func oversDecimal(overs float64) float64 {
	return utils.ParseOvers(strconv.FormatFloat(overs, 'f', 1, 64))
}

func tossKnown(detail *upstream.MatchDetail) bool {
	if detail.TossWinner != "" || detail.TossDecision != "" {
		return true
	}
	for _, eleven := range detail.PlayingXI {
		if len(eleven) > 0 {
			return true
		}
	}
	return false
}

func formSummary(f *features.TeamForm) *FormSummary {
	if f == nil {
		return nil
	}
	return &FormSummary{Played: f.Played, Wins: f.Wins, WinRate: utils.RoundTo(f.WinRate(), 3)}
}

func featuresUsed(p priorBlock, winnerMethod string) *FeaturesUsed {
	return &FeaturesUsed{
		PriorSource:  p.source,
		AvgRuns:      utils.RoundTo(p.avgRuns, 2),
		StdRuns:      utils.RoundTo(p.stdRuns, 2),
		AvgWkts:      utils.RoundTo(p.avgWkts, 2),
		StdWkts:      utils.RoundTo(p.stdWkts, 2),
		PPRatio:      utils.RoundTo(p.ppRatio, 3),
		WinnerMethod: winnerMethod,
		Team1Form:    formSummary(p.form1),
		Team2Form:    formSummary(p.form2),
	}
}

func winnerPayload(probs map[string]float64, level string) *Winner {
	var team string
	best := math.Inf(-1)
	for t, p := range probs {
		if p > best || (p == best && t < team) {
			team, best = t, p
		}
	}
	rounded := make(map[string]float64, len(probs))
	for t, p := range probs {
		rounded[t] = roundProb(p, level)
	}
	return &Winner{Team: team, Probability: rounded[team], Probabilities: rounded}
}

func (s *Service) computePreMatch(ctx context.Context, seriesID, date string, matchNumber int) (*Prediction, error) {
	m, err := s.pickMatch(ctx, seriesID, date, matchNumber)
	if err != nil {
		return nil, err
	}
	ref := MatchRef{Team1: m.Team1, Team2: m.Team2, Venue: m.Venue, Date: date}

	if isCompletedStatus(m.Status) {
		return &Prediction{
			Stage:   StageCompleted,
			Match:   ref,
			Status:  m.Status,
			Message: "Match already completed. Showing final status only.",
		}, nil
	}

	detail, err := s.upstream.MatchDetail(ctx, m.MatchID)
	if err != nil {
		return nil, err
	}
	if anyInningsStarted(detail.Innings) {
		return &Prediction{
			Stage:   StageInProgress,
			Match:   ref,
			Status:  m.Status,
			Message: "Match already started. Use the live endpoint for current predictions.",
		}, nil
	}

	feats, err := s.features.Build(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	p := resolvePriorBlock(feats, m.Venue, m.Team1, m.Team2)
	metrics.PredictionFallbacks.WithLabelValues(p.level).Inc()

	probs := map[string]float64{m.Team1: 0.5, m.Team2: 0.5}
	winnerMethod := "default_50_50"
	if p.form1 != nil && p.form2 != nil {
		if total := p.form1.WinRate() + p.form2.WinRate(); total > 0 {
			probs[m.Team1] = p.form1.WinRate() / total
			probs[m.Team2] = p.form2.WinRate() / total
			winnerMethod = "series_form_ratio"
		}
	}

	stage := StagePreToss
	toss := tossKnown(detail)
	if toss {
		stage = StagePostToss
		if s.cfg.TossChaseBiasEnabled {
			if applyTossChaseBias(probs, m, detail, feats) {
				winnerMethod += "+toss_chase_bias"
			}
		}
	}

	inningsRange := rangeFromStats(p.avgRuns, math.Max(p.stdRuns, 12), -1)
	wicketsRange := rangeFromStats(p.avgWkts, math.Max(p.stdWkts, 2), 10)

	conf := utils.RoundTo(confidenceScore(p.level, p.sampleSize, 0, toss), 2)
	pred := &Prediction{
		Stage:          stage,
		DataQuality:    p.dataQuality(),
		FallbackLevel:  p.level,
		FallbackReason: p.reason,
		SampleSize:     p.sampleSize,
		Confidence:     conf,
		Uncertainty:    uncertaintyLabel(conf),
		Match:          ref,
		FeaturesUsed:   featuresUsed(p, winnerMethod),
		Winner:         winnerPayload(probs, p.level),
		TotalScore:     &inningsRange,
		Wickets:        &wicketsRange,
	}
	pp := scaleRange(inningsRange, p.ppRatio)
	pred.Powerplay = &pp

	logger.InfoContext(ctx, "prematch prediction resolved",
		"series", seriesID, "date", date, "stage", stage,
		"fallback_level", p.level, "confidence", conf)
	return pred, nil
}

// applyTossChaseBias shifts win probability toward the implied chasing
// side by a delta derived from the series chase success rates, then
// renormalizes. Returns false when the toss result cannot be mapped to
// either team.
func applyTossChaseBias(probs map[string]float64, m *upstream.MatchSummary, detail *upstream.MatchDetail, feats *features.SeriesFeatures) bool {
	if detail.TossWinner == "" || detail.TossDecision == "" {
		return false
	}
	var winner, other string
	switch {
	case strings.EqualFold(detail.TossWinner, m.Team1):
		winner, other = m.Team1, m.Team2
	case strings.EqualFold(detail.TossWinner, m.Team2):
		winner, other = m.Team2, m.Team1
	default:
		return false
	}

	chaser := winner
	if strings.Contains(strings.ToLower(detail.TossDecision), "bat") {
		chaser = other
	}
	chased := winner
	if chaser == winner {
		chased = other
	}

	chaseRate := 0.55
	if len(feats.ChasePriors) > 0 {
		var sum float64
		for _, rate := range feats.ChasePriors {
			sum += rate
		}
		chaseRate = sum / float64(len(feats.ChasePriors))
	}

	delta := (chaseRate - 0.5) * 0.2
	probs[chaser] = utils.Clamp(probs[chaser]+delta, 0.05, 0.95)
	probs[chased] = utils.Clamp(probs[chased]-delta, 0.05, 0.95)
	total := probs[chaser] + probs[chased]
	probs[chaser] /= total
	probs[chased] /= total
	return true
}

func (s *Service) computeLive(ctx context.Context, seriesID, date string, matchNumber int) (*Prediction, error) {
	m, err := s.pickMatch(ctx, seriesID, date, matchNumber)
	if err != nil {
		return nil, err
	}
	ref := MatchRef{Team1: m.Team1, Team2: m.Team2, Venue: m.Venue, Date: date}

	if isCompletedStatus(m.Status) {
		return &Prediction{
			Stage:   StageCompleted,
			Match:   ref,
			Status:  m.Status,
			Message: "Match already completed. Showing final status only.",
		}, nil
	}

	detail, err := s.upstream.MatchDetail(ctx, m.MatchID)
	if err != nil {
		return nil, err
	}

	if !anyInningsStarted(detail.Innings) {
		pre, err := s.ResolvePreMatch(ctx, seriesID, date, matchNumber)
		if err != nil {
			return nil, err
		}
		fallback := *pre
		fallback.Message = "Match has not started yet. Showing pre-match prediction."
		return &fallback, nil
	}

	feats, err := s.features.Build(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	p := resolvePriorBlock(feats, m.Venue, m.Team1, m.Team2)
	metrics.PredictionFallbacks.WithLabelValues(p.level).Inc()

	first, _ := detail.FirstInnings()
	second, hasSecond := detail.SecondInnings()
	firstDone := first.Overs >= 20 || first.Wickets >= 10
	secondStarted := hasSecond && (second.Overs > 0 || second.Runs > 0)

	if firstDone && !secondStarted {
		return s.inningsBreak(ctx, ref, m, first, p, detail, feats)
	}

	current := first
	if secondStarted {
		current = second
	}
	return s.liveStage(ctx, ref, m, detail, feats, p, first, current, secondStarted)
}

// inningsBreak prices the chase from historical band rates before the
// second innings begins.
func (s *Service) inningsBreak(ctx context.Context, ref MatchRef, m *upstream.MatchSummary, first upstream.InningsScore, p priorBlock, detail *upstream.MatchDetail, feats *features.SeriesFeatures) (*Prediction, error) {
	target := first.Runs + 1
	chaser := m.Team2
	if strings.EqualFold(first.BatTeamName, m.Team2) {
		chaser = m.Team1
	}
	defender := m.Team1
	if chaser == m.Team1 {
		defender = m.Team2
	}

	chaseProb := 0.55
	winnerMethod := "chase_band_default"
	if rate, ok := feats.ChasePriors[features.BandForTarget(first.Runs)]; ok {
		chaseProb = rate
		winnerMethod = "chase_band_rate"
	}
	probs := map[string]float64{chaser: chaseProb, defender: 1 - chaseProb}

	// The elapsed-overs lift is a live-stage signal; a completed first
	// innings says nothing about how the chase will unfold.
	conf := utils.RoundTo(confidenceScore(p.level, p.sampleSize, 0, tossKnown(detail)), 2)
	elapsed := oversDecimal(first.Overs)
	crr := 0.0
	if elapsed > 0 {
		crr = float64(first.Runs) / elapsed
	}

	wicketsRange := rangeFromStats(p.avgWkts, math.Max(p.stdWkts, 2), 10)
	total := Range{Low: target, Mid: target, High: target}
	pred := &Prediction{
		Stage:          StageInningsBreak,
		DataQuality:    p.dataQuality(),
		FallbackLevel:  p.level,
		FallbackReason: p.reason,
		SampleSize:     p.sampleSize,
		Confidence:     conf,
		Uncertainty:    uncertaintyLabel(conf),
		Match:          ref,
		FeaturesUsed:   featuresUsed(p, winnerMethod),
		Winner:         winnerPayload(probs, p.level),
		Live: &LiveState{
			BattingTeam:    first.BatTeamName,
			Runs:           first.Runs,
			Wickets:        first.Wickets,
			Overs:          first.Overs,
			CurrentRunRate: utils.RoundTo(crr, 2),
		},
		TotalScore: &total,
		Chase:      &ChaseStatus{Target: target},
		Wickets:    &wicketsRange,
	}
	inningsRange := rangeFromStats(p.avgRuns, math.Max(p.stdRuns, 12), -1)
	pp := scaleRange(inningsRange, p.ppRatio)
	pred.Powerplay = &pp

	logger.InfoContext(ctx, "innings break prediction resolved",
		"series_match", m.MatchID, "target", target, "chase_prob", chaseProb)
	return pred, nil
}

func (s *Service) liveStage(ctx context.Context, ref MatchRef, m *upstream.MatchSummary, detail *upstream.MatchDetail, feats *features.SeriesFeatures, p priorBlock, first, current upstream.InningsScore, chasing bool) (*Prediction, error) {
	elapsed := oversDecimal(current.Overs)
	runs, wkts := current.Runs, current.Wickets
	crr := 0.0
	if elapsed > 0 {
		crr = float64(runs) / elapsed
	}
	remaining := math.Max(0, 20-elapsed)

	var (
		projected    int
		totalScore   Range
		chasePayload *ChaseStatus
		probs        map[string]float64
		winnerMethod string
	)

	if chasing {
		target := first.Runs + 1
		ballsElapsed := utils.BallsFromOvers(elapsed)
		ballsRemaining := 120 - ballsElapsed
		if ballsRemaining < 0 {
			ballsRemaining = 0
		}
		var rrr *float64
		if ballsRemaining > 0 && target > runs {
			v := utils.RoundTo(float64(target-runs)/(float64(ballsRemaining)/6), 2)
			rrr = &v
		}

		mult := chaseMultiplier(10 - wkts)
		if rrr != nil && crr > 0 && *rrr > 1.5*crr {
			mult *= 0.85
		}
		adjRR := crr * mult
		projected = int(math.Round(float64(runs) + adjRR*remaining))

		willReach := runs >= target || projected >= target
		chasePayload = &ChaseStatus{Target: target, WillReach: &willReach, RequiredRunRate: rrr}
		if willReach {
			ballsNeeded := 0
			if adjRR > 0 && target > runs {
				ballsNeeded = int(math.Ceil(float64(target-runs) / adjRR * 6))
			}
			finish := utils.FormatOvers(ballsElapsed + ballsNeeded)
			chasePayload.FinishAt = &finish
		} else {
			short := int(math.Ceil(float64(target - projected)))
			chasePayload.ShortBy = &short
		}

		// Blend the trajectory verdict with the historical chase rate
		// for this target band when the series has one.
		binary := 0.0
		if willReach {
			binary = 1.0
		}
		chaseProb := binary
		winnerMethod = "chase_projection"
		if rate, ok := feats.ChasePriors[features.BandForTarget(first.Runs)]; ok {
			chaseProb = 0.6*binary + 0.4*rate
			winnerMethod = "chase_projection+band_rate"
		}
		defender := m.Team1
		if strings.EqualFold(current.BatTeamName, m.Team1) {
			defender = m.Team2
		}
		probs = map[string]float64{current.BatTeamName: chaseProb, defender: 1 - chaseProb}
		totalScore = Range{Low: target, Mid: target, High: target}
	} else {
		projected = int(math.Round(projectFirstInnings(float64(runs), elapsed, p.avgRuns, p.ppRatio)))
		liveStd := math.Max(p.stdRuns, 12) * remaining / 20
		totalScore = rangeFromStats(float64(projected), liveStd, -1)

		if p.form1 == nil && p.form2 == nil {
			return nil, fmt.Errorf("%w: no form for %s or %s", ErrInsufficientData, m.Team1, m.Team2)
		}
		rate1, rate2 := 0.0, 0.0
		if p.form1 != nil {
			rate1 = p.form1.WinRate()
		}
		if p.form2 != nil {
			rate2 = p.form2.WinRate()
		}
		winnerMethod = "series_form_ratio"
		if total := rate1 + rate2; total > 0 {
			probs = map[string]float64{m.Team1: rate1 / total, m.Team2: rate2 / total}
		} else {
			probs = map[string]float64{m.Team1: 0.5, m.Team2: 0.5}
			winnerMethod = "default_50_50"
		}
	}

	conf := utils.RoundTo(confidenceScore(p.level, p.sampleSize, elapsed, tossKnown(detail)), 2)
	wicketsRange := rangeFromStats(p.avgWkts, math.Max(p.stdWkts, 2), 10)
	inningsRange := rangeFromStats(p.avgRuns, math.Max(p.stdRuns, 12), -1)
	pp := scaleRange(inningsRange, p.ppRatio)

	pred := &Prediction{
		Stage:          StageLive,
		DataQuality:    p.dataQuality(),
		FallbackLevel:  p.level,
		FallbackReason: p.reason,
		SampleSize:     p.sampleSize,
		Confidence:     conf,
		Uncertainty:    uncertaintyLabel(conf),
		Match:          ref,
		FeaturesUsed:   featuresUsed(p, winnerMethod),
		Winner:         winnerPayload(probs, p.level),
		Live: &LiveState{
			BattingTeam:    current.BatTeamName,
			Runs:           runs,
			Wickets:        wkts,
			Overs:          current.Overs,
			CurrentRunRate: utils.RoundTo(crr, 2),
		},
		ProjectedTotal: &projected,
		TotalScore:     &totalScore,
		Chase:          chasePayload,
		Wickets:        &wicketsRange,
		Powerplay:      &pp,
	}

	logger.InfoContext(ctx, "live prediction resolved",
		"match_id", m.MatchID, "chasing", chasing,
		"projected", projected, "confidence", conf)
	return pred, nil
}

// projectFirstInnings extrapolates the innings total phase by phase.
// The resolved average splits into powerplay, middle and death shares;
// each remaining phase contributes its run rate times its remaining
// overs.
func projectFirstInnings(runs, elapsed, avgRuns, ppRatio float64) float64 {
	ppRuns := avgRuns * ppRatio
	deathRuns := avgRuns * deathOversRatio
	middleRuns := avgRuns - ppRuns - deathRuns

	ppRPO := ppRuns / 6
	middleRPO := middleRuns / 9
	deathRPO := deathRuns / 5

	remPP := math.Max(0, 6-elapsed)
	remMiddle := math.Max(0, 15-math.Max(elapsed, 6))
	remDeath := math.Max(0, 20-math.Max(elapsed, 15))

	return runs + ppRPO*remPP + middleRPO*remMiddle + deathRPO*remDeath
}
