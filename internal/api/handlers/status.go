package handlers

import (
	"net/http"
	"time"

	"github.com/wicketwise/crickcast/backend/internal/cache"
	"github.com/wicketwise/crickcast/backend/internal/decision"
)

var startTime = time.Now()

type cacheStatus struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	KeysAdded uint64 `json:"keys_added"`
	Evictions uint64 `json:"evictions"`
	Items     int64  `json:"items"`
	SizeBytes int64  `json:"size_bytes"`
}

type statusResponse struct {
	Status         string      `json:"status"`
	UptimeSeconds  int64       `json:"uptime_seconds"`
	Cache          cacheStatus `json:"cache"`
	TrackedMatches int         `json:"tracked_matches"`
}

// Health reports process liveness.
// GET /healthz
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}
}

// Status reports runtime counters for dashboards and smoke checks.
// GET /api/status
func Status(c *cache.Client, engine *decision.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := c.Stats()
		resp := statusResponse{
			Status:        "ok",
			UptimeSeconds: int64(time.Since(startTime).Seconds()),
			Cache: cacheStatus{
				Hits:      stats.Hits,
				Misses:    stats.Misses,
				KeysAdded: stats.KeysAdded,
				Evictions: stats.Evictions,
				Items:     stats.Items,
				SizeBytes: stats.Size,
			},
			TrackedMatches: engine.TrackedMatches(),
		}
		writeData(w, r, resp, nil)
	}
}
