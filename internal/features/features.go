package features

import "math"

// targetBand is one row of the fixed chase-band table.
type targetBand struct {
	Low   int
	High  int
	Label string
}

// TargetBands buckets first-innings totals for chase success rates. The
// table is ordered and exhaustive over non-negative targets.
var TargetBands = []targetBand{
	{0, 140, "0-140"},
	{141, 160, "141-160"},
	{161, 180, "161-180"},
	{181, 9999, "181+"},
}

// BandForTarget returns the chase band label for a first-innings total.
func BandForTarget(target int) string {
	for _, b := range TargetBands {
		if target >= b.Low && target <= b.High {
			return b.Label
		}
	}
	return "181+"
}

// VenuePriors are innings-level aggregates for one ground.
type VenuePriors struct {
	AvgInningsRuns float64  `json:"avgInningsRuns"`
	StdInningsRuns float64  `json:"stdInningsRuns"`
	AvgInningsWkts float64  `json:"avgInningsWkts"`
	StdInningsWkts float64  `json:"stdInningsWkts"`
	PPRatio        *float64 `json:"ppRatio,omitempty"`
	SampleSize     int      `json:"sampleSize"`
}

// SeriesPriors are innings-level aggregates over the whole series.
type SeriesPriors struct {
	AvgInningsRuns float64  `json:"avgInningsRuns"`
	StdInningsRuns float64  `json:"stdInningsRuns"`
	AvgInningsWkts float64  `json:"avgInningsWkts"`
	StdInningsWkts float64  `json:"stdInningsWkts"`
	PPRatio        *float64 `json:"ppRatio,omitempty"`
	SampleSize     int      `json:"sampleSize"`
}

// TeamForm tallies completed matches for one team.
type TeamForm struct {
	Played int `json:"played"`
	Wins   int `json:"wins"`
}

// WinRate returns wins/played, 0 for a team with no completed matches.
func (f TeamForm) WinRate() float64 {
	if f.Played == 0 {
		return 0
	}
	return float64(f.Wins) / float64(f.Played)
}

// SeriesFeatures is the immutable output of one feature build. A venue
// or series key is absent rather than emitted with thin data, so the
// consumer falls through to the next prior tier.
type SeriesFeatures struct {
	TeamForm     map[string]TeamForm    `json:"teamForm"`
	VenuePriors  map[string]VenuePriors `json:"venuePriors"`
	ChasePriors  map[string]float64     `json:"chasePriors"`
	SeriesPriors *SeriesPriors          `json:"seriesPriors,omitempty"`
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// pstdev is the population standard deviation.
func pstdev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}
