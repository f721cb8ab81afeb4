package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wicketwise/crickcast/backend/internal/apierr"
	"github.com/wicketwise/crickcast/backend/internal/upstream"
)

// envelope wraps every successful data response with per-request meta.
type envelope struct {
	Data any  `json:"data"`
	Meta meta `json:"meta"`
}

type meta struct {
	RequestID string           `json:"request_id,omitempty"`
	Stats     map[string]int64 `json:"stats,omitempty"`
}

func writeData(w http.ResponseWriter, r *http.Request, data any, stats *upstream.Stats) {
	m := meta{RequestID: apierr.GetRequestID(r.Context())}
	if stats != nil {
		m.Stats = stats.Snapshot()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(envelope{Data: data, Meta: m})
}
