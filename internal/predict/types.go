package predict

// Stage names double as cache TTL selectors and metric labels.
const (
	StageCompleted    = "completed"
	StageInProgress   = "in_progress"
	StagePreToss      = "pre_toss"
	StagePostToss     = "post_toss"
	StageInningsBreak = "innings_break"
	StageLive         = "live"
)

// Range is a low/mid/high band for a predicted quantity.
type Range struct {
	Low  int `json:"low"`
	Mid  int `json:"mid"`
	High int `json:"high"`
}

// MatchRef identifies the match a prediction is about.
type MatchRef struct {
	Team1 string `json:"team1"`
	Team2 string `json:"team2"`
	Venue string `json:"venue"`
	Date  string `json:"date"`
}

// FormSummary is a team's completed-match record within the series.
type FormSummary struct {
	Played  int     `json:"played"`
	Wins    int     `json:"wins"`
	WinRate float64 `json:"win_rate"`
}

// FeaturesUsed reports which priors fed the prediction.
type FeaturesUsed struct {
	PriorSource  string       `json:"prior_source"`
	AvgRuns      float64      `json:"avg_runs"`
	StdRuns      float64      `json:"std_runs"`
	AvgWkts      float64      `json:"avg_wkts"`
	StdWkts      float64      `json:"std_wkts"`
	PPRatio      float64      `json:"pp_ratio"`
	WinnerMethod string       `json:"winner_method"`
	Team1Form    *FormSummary `json:"team1_form"`
	Team2Form    *FormSummary `json:"team2_form"`
}

// Winner is the winner call with per-team probabilities.
type Winner struct {
	Team          string             `json:"team"`
	Probability   float64            `json:"probability"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// LiveState echoes the innings position the prediction was made from.
type LiveState struct {
	BattingTeam    string  `json:"batting_team"`
	Runs           int     `json:"runs"`
	Wickets        int     `json:"wickets"`
	Overs          float64 `json:"overs"`
	CurrentRunRate float64 `json:"current_run_rate"`
}

// ChaseStatus describes a second-innings chase trajectory.
type ChaseStatus struct {
	Target          int      `json:"target"`
	WillReach       *bool    `json:"will_reach,omitempty"`
	FinishAt        *string  `json:"finish_at,omitempty"`
	ShortBy         *int     `json:"short_by,omitempty"`
	RequiredRunRate *float64 `json:"required_run_rate,omitempty"`
}

// Prediction is the full staged prediction payload.
type Prediction struct {
	Stage          string        `json:"prediction_stage"`
	DataQuality    string        `json:"data_quality,omitempty"`
	FallbackLevel  string        `json:"fallback_level,omitempty"`
	FallbackReason string        `json:"fallback_reason,omitempty"`
	SampleSize     int           `json:"sample_size,omitempty"`
	Confidence     float64       `json:"confidence,omitempty"`
	Uncertainty    string        `json:"uncertainty,omitempty"`
	Match          MatchRef      `json:"match"`
	Status         string        `json:"status,omitempty"`
	Message        string        `json:"message,omitempty"`
	FeaturesUsed   *FeaturesUsed `json:"features_used,omitempty"`
	Winner         *Winner       `json:"winner,omitempty"`
	Live           *LiveState    `json:"live,omitempty"`
	ProjectedTotal *int          `json:"projected_total,omitempty"`
	TotalScore     *Range        `json:"total_score,omitempty"`
	Chase          *ChaseStatus  `json:"chase,omitempty"`
	Wickets        *Range        `json:"wickets,omitempty"`
	Powerplay      *Range        `json:"powerplay,omitempty"`
}
