package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/wicketwise/crickcast/backend/internal/apierr"
	"github.com/wicketwise/crickcast/backend/internal/cache"
	"github.com/wicketwise/crickcast/backend/internal/logger"
)

// CacheAdminHandler exposes cache administration endpoints behind a
// bearer token. When no token is configured every request is refused.
type CacheAdminHandler struct {
	cache *cache.Client
	token string
}

// NewCacheAdminHandler creates a new cache admin handler.
func NewCacheAdminHandler(c *cache.Client, token string) *CacheAdminHandler {
	return &CacheAdminHandler{cache: c, token: token}
}

func (h *CacheAdminHandler) authorize(w http.ResponseWriter, r *http.Request) bool {
	if h.token == "" {
		apierr.WriteErrorWithContext(w, r, apierr.AuthForbidden("admin endpoints are disabled"))
		return false
	}
	auth := r.Header.Get("Authorization")
	if auth == "" {
		apierr.WriteErrorWithContext(w, r, apierr.AuthMissing(""))
		return false
	}
	presented := strings.TrimPrefix(auth, "Bearer ")
	if presented == auth || subtle.ConstantTimeCompare([]byte(presented), []byte(h.token)) != 1 {
		apierr.WriteErrorWithContext(w, r, apierr.AuthInvalid(""))
		return false
	}
	return true
}

// InvalidateCache clears every cache tier.
// POST /api/admin/cache/invalidate
func (h *CacheAdminHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	h.cache.Flush()
	logger.Info("cache flushed via admin endpoint", "request_id", apierr.GetRequestID(r.Context()))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"message": "Cache invalidated successfully",
	})
}

// GetCacheStats returns current cache statistics.
// GET /api/admin/cache/stats
func (h *CacheAdminHandler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	stats := h.cache.Stats()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"hits":      stats.Hits,
		"misses":    stats.Misses,
		"keysAdded": stats.KeysAdded,
		"evictions": stats.Evictions,
		"sizeBytes": stats.Size,
		"items":     stats.Items,
	})
}
