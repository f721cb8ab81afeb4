package decision

import (
	"fmt"
	"math"
	"time"

	"github.com/wicketwise/crickcast/backend/internal/metrics"
	"github.com/wicketwise/crickcast/backend/internal/utils"
)

// RiskMode shifts the direction score toward or away from action.
type RiskMode string

const (
	RiskConservative RiskMode = "conservative"
	RiskBalanced     RiskMode = "balanced"
	RiskAggressive   RiskMode = "aggressive"
)

// ParseRiskMode validates a client-supplied risk mode, defaulting to
// balanced when empty.
func ParseRiskMode(s string) (RiskMode, error) {
	switch RiskMode(s) {
	case RiskConservative, RiskBalanced, RiskAggressive:
		return RiskMode(s), nil
	case "":
		return RiskBalanced, nil
	default:
		return "", fmt.Errorf("unknown risk mode %q", s)
	}
}

// Direction labels for the emitted signal.
const (
	DirectionHold   = "Hold"
	DirectionLean   = "Lean"
	DirectionStrong = "Strong"
	DirectionFlip   = "Flip"
)

// MatchState is the live innings position a decision is derived from.
// Overs uses cricket notation: the fractional digit counts balls into
// the current over.
type MatchState struct {
	Runs            int      `json:"runs"`
	Wickets         int      `json:"wickets"`
	Overs           float64  `json:"overs"`
	Target          *int     `json:"target,omitempty"`
	CurrentRunRate  float64  `json:"current_run_rate"`
	RequiredRunRate *float64 `json:"required_run_rate,omitempty"`
	WinEdge         float64  `json:"win_edge"`
}

// LatentState is the derived pressure vector, each component in [0,1].
type LatentState struct {
	Momentum           float64 `json:"momentum"`
	CollapseRisk       float64 `json:"collapse_risk"`
	AccelerationWindow float64 `json:"acceleration_window"`
	StabilityIndex     float64 `json:"stability_index"`
}

// ComputeLatentState derives the pressure vector from raw match state.
// Momentum tracks run rate against an 8.5 baseline, collapse risk grows
// with wickets and any required-rate shortfall, and the acceleration
// window peaks at over 16 falling off linearly across 8 overs.
func ComputeLatentState(state MatchState) LatentState {
	rrrGap := 0.0
	if state.RequiredRunRate != nil {
		rrrGap = *state.RequiredRunRate - state.CurrentRunRate
	}

	momentum := utils.Clamp01(0.5 + (state.CurrentRunRate-8.5)/10 - float64(state.Wickets)*0.03)
	collapse := utils.Clamp01(0.2 + float64(state.Wickets)*0.08 + math.Max(rrrGap, 0)*0.07)
	accel := utils.Clamp01(1 - math.Abs(state.Overs-16)/8)
	stability := utils.Clamp01(1 - collapse*0.7 + momentum*0.3)
	return LatentState{
		Momentum:           momentum,
		CollapseRisk:       collapse,
		AccelerationWindow: accel,
		StabilityIndex:     stability,
	}
}

// ScoreDirection folds the latent vector, the win edge and the risk
// bias into a single [0,1] directional score.
func ScoreDirection(latent LatentState, mode RiskMode, winEdge float64) float64 {
	bias := 0.0
	switch mode {
	case RiskConservative:
		bias = -0.08
	case RiskAggressive:
		bias = 0.08
	}
	return utils.Clamp01(0.50 + (latent.Momentum-latent.CollapseRisk)*0.45 + winEdge*0.25 + bias)
}

func directionLabel(score float64, previous *float64) string {
	if previous != nil && math.Abs(score-*previous) >= 0.20 {
		return DirectionFlip
	}
	switch {
	case score >= 0.66:
		return DirectionStrong
	case score >= 0.54:
		return DirectionLean
	default:
		return DirectionHold
	}
}

// triggerRule pairs a named moment with its firing predicate. Rules are
// evaluated top to bottom and every matching moment is reported, so the
// order here is the priority order of the recommendation.
type triggerRule struct {
	moment string
	fires  func(s MatchState, l LatentState) bool
}

const momentHoldWindow = "hold_window"

var triggerRules = []triggerRule{
	{"opening_powerplay_entry", func(s MatchState, _ LatentState) bool {
		return s.Overs >= 0.1 && s.Overs <= 1.0
	}},
	{"early_wicket_shock", func(s MatchState, _ LatentState) bool {
		return s.Overs <= 4.0 && s.Wickets >= 1
	}},
	{"powerplay_exit", func(s MatchState, _ LatentState) bool {
		return s.Overs >= 5.5 && s.Overs <= 6.1
	}},
	{"overs_7_to_10_rebuild", func(s MatchState, _ LatentState) bool {
		return s.Overs >= 7.0 && s.Overs <= 10.0 && s.Wickets >= 2
	}},
	{"middle_overs_acceleration", func(s MatchState, _ LatentState) bool {
		return s.Overs >= 10.0 && s.Overs <= 14.0
	}},
	{"set_batter_vulnerability", func(s MatchState, _ LatentState) bool {
		return s.Overs >= 12.0 && s.Overs <= 16.0 && s.Wickets <= 4
	}},
	{"spin_lock_pressure", func(s MatchState, _ LatentState) bool {
		return s.Overs >= 8.0 && s.Overs <= 14.0 && s.CurrentRunRate < 8.0
	}},
	{"death_overs_entry", func(s MatchState, _ LatentState) bool {
		return s.Overs >= 15.0 && s.Overs <= 16.0
	}},
	{"death_overs_collapse_risk", func(s MatchState, _ LatentState) bool {
		return s.Overs >= 16.0 && s.Overs <= 20.0 && s.Wickets >= 6
	}},
	{"chase_required_rate_spike", func(s MatchState, _ LatentState) bool {
		return s.RequiredRunRate != nil && *s.RequiredRunRate-s.CurrentRunRate >= 1.5
	}},
	{"chase_stability_window", func(s MatchState, _ LatentState) bool {
		return s.Target != nil && s.Wickets <= 4 && s.Overs <= 14.0
	}},
	{"final_24_balls_flip_zone", func(s MatchState, _ LatentState) bool {
		return s.Overs >= 16.0 && s.Overs <= 18.0
	}},
	{"final_12_balls_closer", func(s MatchState, _ LatentState) bool {
		return s.Overs >= 18.0 && s.Overs <= 20.0
	}},
	{"super_over_edge", func(s MatchState, _ LatentState) bool {
		return s.Target != nil && s.Overs >= 19.4
	}},
}

// ActiveMoments returns every matching trigger in declaration order.
// When nothing fires and the innings looks stable, a single hold-window
// moment stands in.
func ActiveMoments(state MatchState, latent LatentState) []string {
	var moments []string
	for _, rule := range triggerRules {
		if rule.fires(state, latent) {
			moments = append(moments, rule.moment)
		}
	}
	if len(moments) == 0 && latent.StabilityIndex >= 0.65 {
		moments = append(moments, momentHoldWindow)
	}
	return moments
}

// Counterfactual is a fixed-horizon flip-probability estimate for one
// favorable and one unfavorable next event.
type Counterfactual struct {
	HorizonBalls        int     `json:"horizon_balls"`
	FlipIfPositiveEvent float64 `json:"flip_if_positive_event"`
	FlipIfNegativeEvent float64 `json:"flip_if_negative_event"`
}

const counterfactualHorizonBalls = 12

func counterfactualFlip(state MatchState, latent LatentState) Counterfactual {
	positive := utils.Clamp01(0.35 + latent.AccelerationWindow*0.35 - latent.CollapseRisk*0.2)
	negative := utils.Clamp01(0.30 + latent.CollapseRisk*0.45 - latent.Momentum*0.2)
	base := utils.Clamp01(0.22 + math.Abs(state.WinEdge)*0.35)
	return Counterfactual{
		HorizonBalls:        counterfactualHorizonBalls,
		FlipIfPositiveEvent: utils.RoundTo(math.Min(1, base+positive*0.35), 3),
		FlipIfNegativeEvent: utils.RoundTo(math.Min(1, base+negative*0.45), 3),
	}
}

// microWhy picks the single most pressing rationale, in fixed priority
// order: collapse risk, then the acceleration window, then required-rate
// pressure, then the momentum default.
func microWhy(direction string, latent LatentState, state MatchState) string {
	if direction == DirectionHold {
		return "State is stable and edge movement is below action threshold."
	}
	if latent.CollapseRisk > 0.6 {
		return "Collapse risk is elevated and the next over can materially shift control."
	}
	if latent.AccelerationWindow > 0.65 {
		return "Acceleration window is open, so proactive timing has higher leverage."
	}
	if state.RequiredRunRate != nil && *state.RequiredRunRate > state.CurrentRunRate {
		return "Required rate pressure is building faster than current scoring pace."
	}
	return "Momentum edge is strengthening with enough stability to act."
}

var leverageCheckpoints = []int{36, 60, 90, 108, 120}

// nextLeverageWindow reports the balls remaining until the next fixed
// over checkpoint (6, 10, 15, 18, 20).
func nextLeverageWindow(overs float64) string {
	done := utils.BallsFromNotation(overs)
	for _, cp := range leverageCheckpoints {
		if done < cp {
			return fmt.Sprintf("%d balls", cp-done)
		}
	}
	return "match end"
}

// Recommendation is the actionable part of a decision payload.
type Recommendation struct {
	Direction string `json:"direction"`
	Action    string `json:"action"`
	Moment    string `json:"moment"`
}

// InternalState exposes the latent vector and raw score for
// observability.
type InternalState struct {
	Momentum           float64 `json:"momentum"`
	CollapseRisk       float64 `json:"collapse_risk"`
	AccelerationWindow float64 `json:"acceleration_window"`
	StabilityIndex     float64 `json:"stability_index"`
	DirectionScore     float64 `json:"direction_score"`
}

// Payload is the full decision evaluation result. Silent evaluations
// carry the same computed fields plus the suppression reason.
type Payload struct {
	MatchKey       string         `json:"match_key"`
	RiskMode       string         `json:"risk_mode"`
	Recommendation Recommendation `json:"recommendation"`
	MicroWhy       string         `json:"micro_why"`
	NextWindowIn   string         `json:"next_window_in"`
	Counterfactual Counterfactual `json:"counterfactual"`
	Silent         bool           `json:"silent"`
	SilentReason   string         `json:"silent_reason,omitempty"`
	InternalState  InternalState  `json:"internal_state"`
}

// Engine evaluates match state into directional signals, debounced per
// match key by its suppressor.
type Engine struct {
	suppressor *Suppressor
}

// NewEngine creates an engine with the given hysteresis bounds.
func NewEngine(minDelta float64, cooldown time.Duration) *Engine {
	return &Engine{suppressor: NewSuppressor(minDelta, cooldown)}
}

// TrackedMatches reports how many match keys hold suppressor state.
func (e *Engine) TrackedMatches() int {
	return e.suppressor.Len()
}

// Evaluate scores the state for matchKey and runs it through the noise
// suppressor. The payload is always returned; emit reports whether the
// caller should treat it as a fresh signal rather than a silent echo.
func (e *Engine) Evaluate(matchKey string, state MatchState, mode RiskMode) (emit bool, payload *Payload) {
	latent := ComputeLatentState(state)
	score := ScoreDirection(latent, mode, state.WinEdge)

	emit, previous, reason := e.suppressor.Observe(matchKey, score)
	direction := directionLabel(score, previous)

	moments := ActiveMoments(state, latent)
	moment := momentHoldWindow
	if len(moments) > 0 {
		moment = moments[0]
	}
	for _, m := range moments {
		metrics.DecisionTriggersFired.WithLabelValues(m).Inc()
	}

	action := "Act now"
	if direction == DirectionHold {
		action = "Hold"
	}

	payload = &Payload{
		MatchKey: matchKey,
		RiskMode: string(mode),
		Recommendation: Recommendation{
			Direction: direction,
			Action:    action,
			Moment:    moment,
		},
		MicroWhy:       microWhy(direction, latent, state),
		NextWindowIn:   nextLeverageWindow(state.Overs),
		Counterfactual: counterfactualFlip(state, latent),
		Silent:         !emit,
		InternalState: InternalState{
			Momentum:           utils.RoundTo(latent.Momentum, 3),
			CollapseRisk:       utils.RoundTo(latent.CollapseRisk, 3),
			AccelerationWindow: utils.RoundTo(latent.AccelerationWindow, 3),
			StabilityIndex:     utils.RoundTo(latent.StabilityIndex, 3),
			DirectionScore:     utils.RoundTo(score, 3),
		},
	}

	if emit {
		metrics.DecisionsTotal.WithLabelValues(direction).Inc()
	} else {
		metrics.DecisionsSuppressed.WithLabelValues(reason).Inc()
		switch reason {
		case reasonMinDelta:
			payload.SilentReason = "Noise suppression: score delta below threshold."
		case reasonCooldown:
			payload.SilentReason = "Noise suppression: cooldown window active."
		}
	}
	return emit, payload
}
