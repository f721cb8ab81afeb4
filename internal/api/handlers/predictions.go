package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/wicketwise/crickcast/backend/internal/apierr"
	"github.com/wicketwise/crickcast/backend/internal/logger"
	"github.com/wicketwise/crickcast/backend/internal/predict"
	"github.com/wicketwise/crickcast/backend/internal/upstream"
)

// parseMatchQuery validates the series/date/match_number triple shared
// by the prediction and match-list endpoints.
func parseMatchQuery(r *http.Request) (seriesID, date string, matchNumber int, apiErr *apierr.Error) {
	q := r.URL.Query()

	seriesID = q.Get("series_id")
	if seriesID == "" {
		return "", "", 0, apierr.ValidationMissingField("series_id")
	}

	date = q.Get("date")
	if date == "" {
		return "", "", 0, apierr.ValidationMissingField("date")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return "", "", 0, apierr.ValidationInvalidFormat("date must be YYYY-MM-DD")
	}

	if raw := q.Get("match_number"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return "", "", 0, apierr.ValidationInvalidValue("match_number", "match_number must be a non-negative integer")
		}
		matchNumber = n
	}
	return seriesID, date, matchNumber, nil
}

// writePredictionError maps pipeline errors onto the API taxonomy.
func writePredictionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, predict.ErrMatchNotFound):
		apierr.WriteErrorWithContext(w, r, apierr.MatchNotFound(""))
	case errors.Is(err, predict.ErrInsufficientData):
		apierr.WriteErrorWithContext(w, r, apierr.PredictionInsufficientData(err.Error()))
	default:
		if ue, ok := upstream.AsError(err); ok {
			apiErr := apierr.UpstreamUnavailable("").WithDetails(map[string]interface{}{
				"upstream_status": ue.StatusCode,
				"upstream_error":  ue.Message,
			})
			apierr.WriteErrorWithContext(w, r, apiErr)
			return
		}
		logger.ErrorContext(r.Context(), "prediction failed", "error", err)
		apierr.WriteErrorWithContext(w, r, apierr.PredictionFailed(""))
	}
}

// GetPreMatchPrediction serves the staged pre-match prediction.
// GET /api/predictions/prematch?series_id&date&match_number
func GetPreMatchPrediction(svc *predict.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seriesID, date, matchNumber, apiErr := parseMatchQuery(r)
		if apiErr != nil {
			apierr.WriteErrorWithContext(w, r, apiErr)
			return
		}

		ctx, stats := upstream.WithStats(r.Context())
		pred, err := svc.ResolvePreMatch(ctx, seriesID, date, matchNumber)
		if err != nil {
			writePredictionError(w, r, err)
			return
		}
		writeData(w, r, pred, stats)
	}
}

// GetLivePrediction serves the live prediction, falling back to the
// pre-match payload before the first ball.
// GET /api/predictions/live?series_id&date&match_number
func GetLivePrediction(svc *predict.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seriesID, date, matchNumber, apiErr := parseMatchQuery(r)
		if apiErr != nil {
			apierr.WriteErrorWithContext(w, r, apiErr)
			return
		}

		ctx, stats := upstream.WithStats(r.Context())
		pred, err := svc.ResolveLive(ctx, seriesID, date, matchNumber)
		if err != nil {
			writePredictionError(w, r, err)
			return
		}
		writeData(w, r, pred, stats)
	}
}

// matchEntry is one row of the day's match list.
type matchEntry struct {
	MatchNumber int      `json:"match_number"`
	MatchID     string   `json:"match_id"`
	Teams       []string `json:"teams"`
	Venue       string   `json:"venue"`
	Status      string   `json:"status"`
	StartTime   string   `json:"start_time,omitempty"`
}

// GetMatches lists the day's matches for a series, indexed the way the
// prediction endpoints address them.
// GET /api/matches?series_id&date
func GetMatches(up *upstream.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seriesID, date, _, apiErr := parseMatchQuery(r)
		if apiErr != nil {
			apierr.WriteErrorWithContext(w, r, apiErr)
			return
		}

		ctx, stats := upstream.WithStats(r.Context())
		matches, err := up.MatchesOn(ctx, seriesID, date)
		if err != nil {
			writePredictionError(w, r, err)
			return
		}

		entries := make([]matchEntry, 0, len(matches))
		for i, m := range matches {
			entry := matchEntry{
				MatchNumber: i,
				MatchID:     m.MatchID,
				Teams:       []string{m.Team1, m.Team2},
				Venue:       m.Venue,
				Status:      m.Status,
			}
			if !m.StartTime.IsZero() {
				entry.StartTime = m.StartTime.UTC().Format(time.RFC3339)
			}
			entries = append(entries, entry)
		}
		writeData(w, r, map[string]any{"matches": entries}, stats)
	}
}
