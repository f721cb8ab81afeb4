package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wicketwise/crickcast/backend/internal/api/handlers"
	"github.com/wicketwise/crickcast/backend/internal/cache"
	"github.com/wicketwise/crickcast/backend/internal/config"
	"github.com/wicketwise/crickcast/backend/internal/decision"
	"github.com/wicketwise/crickcast/backend/internal/features"
	"github.com/wicketwise/crickcast/backend/internal/predict"
	"github.com/wicketwise/crickcast/backend/internal/upstream"
)

// scheduleDay builds one day of the series schedule with a single
// upcoming Falcons v Royals fixture.
func scheduleDay(status string) map[string]any {
	return map[string]any{
		"matchDetailsMap": map[string]any{
			"key": "Sun, 12 May 2024",
			"match": []any{
				map[string]any{
					"matchInfo": map[string]any{
						"matchId":     100,
						"matchFormat": "T20",
						"status":      status,
						"team1":       map[string]any{"teamName": "Falcons"},
						"team2":       map[string]any{"teamName": "Royals"},
						"venueInfo":   map[string]any{"ground": "Eden Gardens"},
					},
				},
			},
		},
	}
}

func newTestRouter(t *testing.T, upstreamMux http.Handler) http.Handler {
	t.Helper()

	srv := httptest.NewServer(upstreamMux)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		UserAgent:         "crickcast-test/1.0",
		HTTPTimeout:       2 * time.Second,
		UpstreamBaseURL:   srv.URL,
		ScheduleTTL:       time.Hour,
		ScheduleStaleTTL:  time.Hour,
		MatchInfoTTL:      time.Minute,
		OversTTL:          time.Minute,
		ScorecardTTL:      time.Minute,
		CompletedMatchTTL: time.Hour,
		PredPreTossTTL:    time.Hour,
		PredPostTossTTL:   time.Hour,
		PredCompletedTTL:  time.Hour,
		PredInProgressTTL: time.Minute,
		PredLiveTTL:       time.Minute,

		SuppressorMinDelta: 0.08,
		SuppressorCooldown: 45 * time.Second,
		AdminAPIToken:      "test-admin-token",
	}

	cc := cache.NewClient(cache.NewMockStore(), nil, "v1")
	up := upstream.New(cfg, cc)
	store := features.NewStore(up, cc, time.Hour)
	svc := predict.NewService(up, store, cc, cfg)
	engine := decision.NewEngine(cfg.SuppressorMinDelta, cfg.SuppressorCooldown)

	hub := handlers.NewDecisionHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	router, limiter := NewRouter(Deps{
		Config:      cfg,
		Predictions: svc,
		Engine:      engine,
		Upstream:    up,
		Cache:       cc,
		Hub:         hub,
	})
	if limiter != nil {
		t.Cleanup(limiter.Stop)
	}
	return router
}

func emptyUpstream() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{})
	})
	return mux
}

func decodeError(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var resp struct {
		Error map[string]any `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, body)
	}
	if resp.Error == nil {
		t.Fatalf("missing error envelope in %s", body)
	}
	return resp.Error
}

func TestPredictionQueryValidation(t *testing.T) {
	router := newTestRouter(t, emptyUpstream())

	tests := []struct {
		name     string
		target   string
		wantCode string
	}{
		{"missing series_id", "/api/predictions/prematch?date=2024-05-12", "VALIDATION_MISSING_FIELD"},
		{"missing date", "/api/predictions/prematch?series_id=77", "VALIDATION_MISSING_FIELD"},
		{"bad date format", "/api/predictions/prematch?series_id=77&date=12-05-2024", "VALIDATION_INVALID_FORMAT"},
		{"negative match number", "/api/predictions/live?series_id=77&date=2024-05-12&match_number=-1", "VALIDATION_INVALID_VALUE"},
		{"non-numeric match number", "/api/predictions/live?series_id=77&date=2024-05-12&match_number=abc", "VALIDATION_INVALID_VALUE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", tt.target, nil))

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			errObj := decodeError(t, w.Body.Bytes())
			if errObj["code"] != tt.wantCode {
				t.Errorf("code = %v, want %s", errObj["code"], tt.wantCode)
			}
		})
	}
}

func TestPredictionMatchNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/series/77", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"matchDetails": []any{scheduleDay("Match starts at 7:30 PM")},
		})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{})
	})
	router := newTestRouter(t, mux)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/predictions/prematch?series_id=77&date=2024-05-12&match_number=5", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	errObj := decodeError(t, w.Body.Bytes())
	if errObj["code"] != "MATCH_NOT_FOUND" {
		t.Errorf("code = %v, want MATCH_NOT_FOUND", errObj["code"])
	}
}

func TestPredictionUpstreamFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "feed down", http.StatusInternalServerError)
	})
	router := newTestRouter(t, mux)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/predictions/prematch?series_id=77&date=2024-05-12", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	errObj := decodeError(t, w.Body.Bytes())
	if errObj["code"] != "UPSTREAM_UNAVAILABLE" {
		t.Errorf("code = %v, want UPSTREAM_UNAVAILABLE", errObj["code"])
	}
	details, _ := errObj["details"].(map[string]any)
	if details == nil || details["upstream_status"] != float64(http.StatusInternalServerError) {
		t.Errorf("details = %v, want upstream_status 500", errObj["details"])
	}
}

func TestGetMatches(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/series/77", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"matchDetails": []any{scheduleDay("Match starts at 7:30 PM")},
		})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{})
	})
	router := newTestRouter(t, mux)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/matches?series_id=77&date=2024-05-12", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data struct {
			Matches []struct {
				MatchNumber int      `json:"match_number"`
				MatchID     string   `json:"match_id"`
				Teams       []string `json:"teams"`
				Venue       string   `json:"venue"`
			} `json:"matches"`
		} `json:"data"`
		Meta struct {
			RequestID string `json:"request_id"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data.Matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(resp.Data.Matches))
	}
	m := resp.Data.Matches[0]
	if m.MatchNumber != 0 || m.MatchID != "100" || m.Venue != "Eden Gardens" {
		t.Errorf("unexpected match row: %+v", m)
	}
	if len(m.Teams) != 2 || m.Teams[0] != "Falcons" || m.Teams[1] != "Royals" {
		t.Errorf("teams = %v", m.Teams)
	}
	if resp.Meta.RequestID == "" {
		t.Error("meta.request_id should be populated")
	}
}

func evaluateBody(winEdge float64) string {
	body := map[string]any{
		"match_key": "ipl-2024-final",
		"risk_mode": "balanced",
		"state": map[string]any{
			"runs":             130,
			"wickets":          3,
			"overs":            13.0,
			"current_run_rate": 10.0,
			"win_edge":         winEdge,
		},
	}
	raw, _ := json.Marshal(body)
	return string(raw)
}

func TestEvaluateDecisionValidation(t *testing.T) {
	router := newTestRouter(t, emptyUpstream())

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"invalid json", "{not json", "VALIDATION_INVALID_JSON"},
		{"unknown field", `{"match_key":"m1","bogus":true}`, "VALIDATION_INVALID_JSON"},
		{"missing match key", `{"risk_mode":"balanced","state":{"overs":10}}`, "VALIDATION_MISSING_FIELD"},
		{"bad risk mode", `{"match_key":"m1","risk_mode":"reckless","state":{"overs":10}}`, "VALIDATION_INVALID_VALUE"},
		{"overs out of range", `{"match_key":"m1","state":{"overs":25}}`, "VALIDATION_INVALID_VALUE"},
		{"wickets out of range", `{"match_key":"m1","state":{"overs":10,"wickets":11}}`, "VALIDATION_INVALID_VALUE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/decisions/evaluate", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
			}
			errObj := decodeError(t, w.Body.Bytes())
			if errObj["code"] != tt.wantCode {
				t.Errorf("code = %v, want %s", errObj["code"], tt.wantCode)
			}
		})
	}
}

func TestEvaluateDecisionEmitsThenSuppresses(t *testing.T) {
	router := newTestRouter(t, emptyUpstream())

	post := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/decisions/evaluate", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		return w
	}

	first := post(evaluateBody(0.1))
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d: %s", first.Code, first.Body.String())
	}
	var resp struct {
		Data decision.Payload `json:"data"`
	}
	if err := json.Unmarshal(first.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode first: %v", err)
	}
	if resp.Data.Silent {
		t.Error("first evaluation should emit")
	}
	if resp.Data.MatchKey != "ipl-2024-final" {
		t.Errorf("match_key = %s", resp.Data.MatchKey)
	}
	if resp.Data.Recommendation.Moment == "" || resp.Data.MicroWhy == "" {
		t.Errorf("incomplete payload: %+v", resp.Data)
	}

	second := post(evaluateBody(0.1))
	if second.Code != http.StatusOK {
		t.Fatalf("second status = %d", second.Code)
	}
	if err := json.Unmarshal(second.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode second: %v", err)
	}
	if !resp.Data.Silent {
		t.Error("identical re-evaluation should be suppressed")
	}
	if !strings.Contains(resp.Data.SilentReason, "delta below threshold") {
		t.Errorf("silent_reason = %q", resp.Data.SilentReason)
	}

	// A large swing inside the cooldown window stays silent too.
	third := post(evaluateBody(0.9))
	if err := json.Unmarshal(third.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode third: %v", err)
	}
	if !resp.Data.Silent {
		t.Error("swing inside cooldown should be suppressed")
	}
	if !strings.Contains(resp.Data.SilentReason, "cooldown") {
		t.Errorf("silent_reason = %q", resp.Data.SilentReason)
	}
}

func TestHealthAndStatus(t *testing.T) {
	router := newTestRouter(t, emptyUpstream())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("healthz: %d %s", w.Code, w.Body.String())
	}

	// Seed one tracked match so the gauge is non-zero.
	req := httptest.NewRequest("POST", "/api/decisions/evaluate", strings.NewReader(evaluateBody(0.0)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(httptest.NewRecorder(), req)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data struct {
			Status         string `json:"status"`
			TrackedMatches int    `json:"tracked_matches"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.Status != "ok" || resp.Data.TrackedMatches != 1 {
		t.Errorf("status payload = %+v", resp.Data)
	}
}

func TestCacheAdminAuth(t *testing.T) {
	router := newTestRouter(t, emptyUpstream())

	invalidate := func(authHeader string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/admin/cache/invalidate", nil)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		router.ServeHTTP(w, req)
		return w
	}

	if w := invalidate(""); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", w.Code)
	}
	if w := invalidate("Bearer wrong-token"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", w.Code)
	}
	if w := invalidate("test-admin-token"); w.Code != http.StatusUnauthorized {
		t.Errorf("missing bearer prefix: status = %d, want 401", w.Code)
	}
	if w := invalidate("Bearer test-admin-token"); w.Code != http.StatusOK {
		t.Errorf("valid token: status = %d, want 200: %s", w.Code, w.Body.String())
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/admin/cache/stats", nil)
	req.Header.Set("Authorization", "Bearer test-admin-token")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "hits") {
		t.Errorf("stats: %d %s", w.Code, w.Body.String())
	}
}

func TestUnknownRoute(t *testing.T) {
	router := newTestRouter(t, emptyUpstream())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), "NOT_FOUND") {
		t.Errorf("body = %s", w.Body.String())
	}
}
