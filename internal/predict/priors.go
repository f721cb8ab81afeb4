package predict

import (
	"fmt"
	"math"

	"github.com/wicketwise/crickcast/backend/internal/features"
)

// League-wide T20 baselines, the lowest prior tier.
const (
	leagueAvgRuns = 160.0
	leagueStdRuns = 25.0
	leagueAvgWkts = 7.0
	leagueStdWkts = 2.5
	leaguePPRatio = 0.28

	// Share of a typical innings scored in overs 16-20. The middle-overs
	// share is whatever the powerplay and death shares leave over.
	deathOversRatio = 0.35
)

// priorBlock is the resolved prior tier for one prediction, including
// the form-driven degradation of the effective fallback level.
type priorBlock struct {
	source     string // tier that supplied the numbers
	level      string // effective fallback level after form degradation
	reason     string
	avgRuns    float64
	stdRuns    float64
	avgWkts    float64
	stdWkts    float64
	ppRatio    float64
	sampleSize int
	form1      *features.TeamForm
	form2      *features.TeamForm
}

func (p priorBlock) dataQuality() string {
	if p.level == "venue" {
		return "good"
	}
	return "degraded"
}

// resolvePriorBlock picks venue priors first, then series, then league
// constants. A missing team form drops the effective level to league
// even when venue numbers exist, since the winner call is then weaker
// than the score ranges suggest.
func resolvePriorBlock(feats *features.SeriesFeatures, venue, team1, team2 string) priorBlock {
	p := priorBlock{}

	if vp, ok := feats.VenuePriors[venue]; ok {
		p.source = "venue"
		p.avgRuns, p.stdRuns = vp.AvgInningsRuns, vp.StdInningsRuns
		p.avgWkts, p.stdWkts = vp.AvgInningsWkts, vp.StdInningsWkts
		p.ppRatio = leaguePPRatio
		if vp.PPRatio != nil {
			p.ppRatio = *vp.PPRatio
		}
		p.sampleSize = vp.SampleSize
		p.reason = fmt.Sprintf("Venue %q has %d completed matches in series", venue, vp.SampleSize)
	} else if sp := feats.SeriesPriors; sp != nil {
		p.source = "series"
		p.avgRuns, p.stdRuns = sp.AvgInningsRuns, sp.StdInningsRuns
		p.avgWkts, p.stdWkts = sp.AvgInningsWkts, sp.StdInningsWkts
		p.ppRatio = leaguePPRatio
		if sp.PPRatio != nil {
			p.ppRatio = *sp.PPRatio
		}
		p.sampleSize = sp.SampleSize
		p.reason = fmt.Sprintf("No venue data for %q; using series averages (%d matches)", venue, sp.SampleSize)
	} else {
		p.source = "league"
		p.avgRuns, p.stdRuns = leagueAvgRuns, leagueStdRuns
		p.avgWkts, p.stdWkts = leagueAvgWkts, leagueStdWkts
		p.ppRatio = leaguePPRatio
		p.reason = "No venue or series data available; using T20 league averages"
	}

	if f, ok := feats.TeamForm[team1]; ok {
		form := f
		p.form1 = &form
	}
	if f, ok := feats.TeamForm[team2]; ok {
		form := f
		p.form2 = &form
	}

	p.level = p.source
	if p.form1 == nil || p.form2 == nil {
		p.level = "league"
		p.reason += "; team form unavailable for one or both teams"
	}
	return p
}

// rangeFromStats builds a low/mid/high band around avg with one std of
// width. A non-negative limit bounds all three values.
func rangeFromStats(avg, std float64, limit int) Range {
	low := int(math.Round(avg - std))
	if low < 0 {
		low = 0
	}
	mid := int(math.Round(avg))
	if mid < 0 {
		mid = 0
	}
	high := int(math.Round(avg + std))
	if high < low {
		high = low
	}
	if limit >= 0 {
		low = min(low, limit)
		mid = min(mid, limit)
		high = min(high, limit)
	}
	return Range{Low: low, Mid: mid, High: high}
}

// scaleRange applies the powerplay ratio to an innings range.
func scaleRange(r Range, ratio float64) Range {
	low := int(math.Round(float64(r.Low) * ratio))
	mid := int(math.Round(float64(r.Mid) * ratio))
	high := int(math.Round(float64(r.High) * ratio))
	return Range{Low: min(low, high), Mid: mid, High: max(low, high)}
}

// roundProb rounds a probability with finer precision at the venue tier.
func roundProb(p float64, level string) float64 {
	places := 2
	if level == "venue" {
		places = 3
	}
	ratio := math.Pow(10, float64(places))
	return math.Round(p*ratio) / ratio
}

// confidenceScore is the calibration used across all numeric stages.
// Monotone in sample size for a fixed tier and in elapsed overs for a
// fixed tier, capped at 0.92.
func confidenceScore(level string, sampleSize int, elapsedOvers float64, tossKnown bool) float64 {
	c := 0.48
	if level == "venue" || level == "series" {
		c += math.Min(0.10, float64(sampleSize)/20*0.10)
	}
	if level == "venue" {
		c += 0.05
	}
	if elapsedOvers > 0 {
		c += math.Min(0.15, elapsedOvers/20*0.15)
	}
	if tossKnown {
		c += 0.05
	}
	return math.Min(0.92, c)
}

func uncertaintyLabel(confidence float64) string {
	switch {
	case confidence >= 0.70:
		return "low"
	case confidence >= 0.55:
		return "medium"
	default:
		return "high"
	}
}

// chaseMultiplier tiers the naive chase projection by wickets in hand.
func chaseMultiplier(wicketsInHand int) float64 {
	switch {
	case wicketsInHand >= 8:
		return 1.00
	case wicketsInHand >= 6:
		return 0.92
	case wicketsInHand >= 4:
		return 0.80
	case wicketsInHand >= 3:
		return 0.65
	default:
		return 0.45
	}
}
