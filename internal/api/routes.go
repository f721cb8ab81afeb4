package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wicketwise/crickcast/backend/internal/api/handlers"
	"github.com/wicketwise/crickcast/backend/internal/cache"
	"github.com/wicketwise/crickcast/backend/internal/config"
	"github.com/wicketwise/crickcast/backend/internal/decision"
	"github.com/wicketwise/crickcast/backend/internal/middleware"
	"github.com/wicketwise/crickcast/backend/internal/predict"
	"github.com/wicketwise/crickcast/backend/internal/upstream"
)

// Deps collects everything the router needs.
type Deps struct {
	Config      *config.Config
	Predictions *predict.Service
	Engine      *decision.Engine
	Upstream    *upstream.Client
	Cache       *cache.Client
	Hub         *handlers.DecisionHub
}

// NewRouter wires all routes with the standard middleware chain. The
// returned limiter is nil when rate limiting is disabled; callers own
// stopping it on shutdown.
func NewRouter(deps Deps) (*mux.Router, *middleware.RateLimiter) {
	r := mux.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RecoverWithSentry)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(&middleware.CORSConfig{
		AllowedOrigins:   deps.Config.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.ValidateRequestBody)
	r.Use(middleware.Compress)
	r.Use(middleware.ETag)

	var limiter *middleware.RateLimiter
	if deps.Config.EnableRateLimit {
		limiter = middleware.NewRateLimiter(
			deps.Config.RateLimitGlobal,
			deps.Config.RateLimitGlobalBurst,
			deps.Config.RateLimitPerIP,
			deps.Config.RateLimitPerIPBurst,
		)
		r.Use(limiter.Limit)
	}

	// Predictions
	r.HandleFunc("/api/predictions/prematch", handlers.GetPreMatchPrediction(deps.Predictions)).Methods("GET")
	r.HandleFunc("/api/predictions/live", handlers.GetLivePrediction(deps.Predictions)).Methods("GET")

	// Fixtures
	r.HandleFunc("/api/matches", handlers.GetMatches(deps.Upstream)).Methods("GET")

	// Decisions
	r.HandleFunc("/api/decisions/evaluate", handlers.EvaluateDecision(deps.Engine, deps.Hub)).Methods("POST")
	r.HandleFunc("/ws/decisions", handlers.DecisionStream(deps.Hub)).Methods("GET")

	// Operational
	r.HandleFunc("/healthz", handlers.Health()).Methods("GET")
	r.HandleFunc("/api/status", handlers.Status(deps.Cache, deps.Engine)).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Admin
	admin := handlers.NewCacheAdminHandler(deps.Cache, deps.Config.AdminAPIToken)
	r.HandleFunc("/api/admin/cache/invalidate", admin.InvalidateCache).Methods("POST")
	r.HandleFunc("/api/admin/cache/stats", admin.GetCacheStats).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"Route not found"}}`))
	})

	return r, limiter
}
