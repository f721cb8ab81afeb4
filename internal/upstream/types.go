package upstream

import (
	"strconv"
	"strings"
	"time"
)

// flexMillis is a unix-millisecond timestamp the feed serializes either
// as a number or a quoted string.
type flexMillis int64

func (f *flexMillis) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexMillis(n)
	return nil
}

// schedulePayload mirrors the feed's series schedule response.
type schedulePayload struct {
	MatchDetails []struct {
		MatchDetailsMap struct {
			Key   string               `json:"key"`
			Match []scheduleMatchEntry `json:"match"`
		} `json:"matchDetailsMap"`
	} `json:"matchDetails"`
}

type scheduleMatchEntry struct {
	MatchInfo  scheduleMatch `json:"matchInfo"`
	MatchScore *matchScore   `json:"matchScore,omitempty"`
}

// matchScore carries final innings lines for settled matches. Every
// field is optional in the feed.
type matchScore struct {
	Team1Score struct {
		Inngs1 *inningsLine `json:"inngs1"`
	} `json:"team1Score"`
	Team2Score struct {
		Inngs1 *inningsLine `json:"inngs1"`
	} `json:"team2Score"`
}

type inningsLine struct {
	Runs    *int `json:"runs"`
	Wickets *int `json:"wickets"`
}

type scheduleMatch struct {
	MatchID     int64      `json:"matchId"`
	MatchFormat string     `json:"matchFormat"`
	StartDate   flexMillis `json:"startDate"`
	Status      string     `json:"status"`
	State       string     `json:"state"`
	Team1       teamRef    `json:"team1"`
	Team2       teamRef    `json:"team2"`
	VenueInfo   struct {
		Ground string `json:"ground"`
		City   string `json:"city"`
	} `json:"venueInfo"`
}

func (m *scheduleMatch) startTime() time.Time {
	if m.StartDate == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(m.StartDate)).UTC()
}

type teamRef struct {
	TeamName string `json:"teamName"`
}

// matchDetailPayload mirrors the feed's match center response.
type matchDetailPayload struct {
	MatchInfo struct {
		Status      string `json:"status"`
		State       string `json:"state"`
		TossResults struct {
			TossWinnerName string `json:"tossWinnerName"`
			Decision       string `json:"decision"`
		} `json:"tossResults"`
		Team1 teamDetail `json:"team1"`
		Team2 teamDetail `json:"team2"`
		Venue struct {
			Name string `json:"name"`
		} `json:"venue"`
	} `json:"matchInfo"`
}

type teamDetail struct {
	Name          string `json:"name"`
	PlayerDetails []struct {
		FullName   string `json:"fullName"`
		Substitute bool   `json:"substitute"`
	} `json:"playerDetails"`
}

// oversPayload mirrors the feed's live overs response.
type oversPayload struct {
	MatchScoreDetails struct {
		InningsScoreList []InningsScore `json:"inningsScoreList"`
	} `json:"matchScoreDetails"`
	PPData map[string]struct {
		RunsScored int `json:"runsScored"`
	} `json:"ppData"`
}

// scorecardPayload mirrors the feed's scorecard response.
type scorecardPayload struct {
	Scorecard []InningsScore `json:"scorecard"`
}

// InningsScore is one innings line: batting team, total, wickets, overs.
type InningsScore struct {
	InningsID   int     `json:"inningsId"`
	BatTeamName string  `json:"batTeamName"`
	Runs        int     `json:"score"`
	Wickets     int     `json:"wickets"`
	Overs       float64 `json:"overs"`
}

// PowerplayScore is a team's score at the end of the powerplay.
type PowerplayScore struct {
	Runs    int `json:"runs"`
	Wickets int `json:"wickets"`
}

// MatchResult is a schedule entry with the final innings scores, used
// to build series features. HasScores is false when the feed has not
// settled both innings lines yet.
type MatchResult struct {
	MatchID   string
	Team1     string
	Team2     string
	Venue     string
	Status    string
	Team1Runs int
	Team1Wkts int
	Team2Runs int
	Team2Wkts int
	HasScores bool
}

// MatchSummary is a schedule entry for one match.
type MatchSummary struct {
	MatchID   string    `json:"matchId"`
	Team1     string    `json:"team1"`
	Team2     string    `json:"team2"`
	Venue     string    `json:"venue"`
	City      string    `json:"city,omitempty"`
	Status    string    `json:"status"`
	Format    string    `json:"format"`
	StartTime time.Time `json:"startTime"`
}

// MatchDetail is the resolved live state of one match.
type MatchDetail struct {
	Team1        string                    `json:"team1"`
	Team2        string                    `json:"team2"`
	Venue        string                    `json:"venue"`
	Status       string                    `json:"status"`
	State        string                    `json:"state"`
	TossWinner   string                    `json:"tossWinner"`
	TossDecision string                    `json:"tossDecision"`
	Squads       map[string][]string       `json:"squads"`
	PlayingXI    map[string][]string       `json:"playingXI"`
	Innings      []InningsScore            `json:"innings"`
	Powerplay    map[string]PowerplayScore `json:"powerplay"`
}

// FirstInnings returns the innings with the lowest inningsId, or false
// when no innings has been recorded.
func (d *MatchDetail) FirstInnings() (InningsScore, bool) {
	if len(d.Innings) == 0 {
		return InningsScore{}, false
	}
	first := d.Innings[0]
	for _, in := range d.Innings[1:] {
		if in.InningsID < first.InningsID {
			first = in
		}
	}
	return first, true
}

// SecondInnings returns the innings with the highest inningsId when at
// least two innings exist.
func (d *MatchDetail) SecondInnings() (InningsScore, bool) {
	if len(d.Innings) < 2 {
		return InningsScore{}, false
	}
	second := d.Innings[0]
	for _, in := range d.Innings[1:] {
		if in.InningsID > second.InningsID {
			second = in
		}
	}
	return second, true
}
