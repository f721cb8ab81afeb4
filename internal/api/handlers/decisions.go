package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/wicketwise/crickcast/backend/internal/apierr"
	"github.com/wicketwise/crickcast/backend/internal/decision"
)

// decisionRequest is the body for POST /api/decisions/evaluate.
type decisionRequest struct {
	MatchKey string              `json:"match_key"`
	RiskMode string              `json:"risk_mode"`
	State    decision.MatchState `json:"state"`
}

// EvaluateDecision scores one match state through the decision engine.
// Accepted signals are broadcast to the match's websocket subscribers;
// suppressed evaluations are returned to the caller only.
// POST /api/decisions/evaluate
func EvaluateDecision(engine *decision.Engine, hub *DecisionHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req decisionRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
			return
		}

		if strings.TrimSpace(req.MatchKey) == "" {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationMissingField("match_key"))
			return
		}
		mode, err := decision.ParseRiskMode(req.RiskMode)
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("risk_mode", "must be one of conservative, balanced, aggressive"))
			return
		}
		if req.State.Overs < 0 || req.State.Overs > 20 {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("state.overs", "must be between 0 and 20"))
			return
		}
		if req.State.Wickets < 0 || req.State.Wickets > 10 {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("state.wickets", "must be between 0 and 10"))
			return
		}

		emit, payload := engine.Evaluate(req.MatchKey, req.State, mode)
		if emit && hub != nil {
			hub.Publish(payload)
		}

		writeData(w, r, payload, nil)
	}
}
