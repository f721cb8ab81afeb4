package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upstream feed metrics
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of HTTP requests made to the live data feed",
		},
		[]string{"endpoint", "status"}, // status: success, error
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Duration of live data feed requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_errors_total",
			Help: "Total number of live data feed errors by HTTP status",
		},
		[]string{"endpoint", "code"},
	)

	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_retries_total",
			Help: "Total number of retried live data feed requests",
		},
		[]string{"endpoint"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_trips_total",
			Help: "Total number of circuit breaker trips to open",
		},
		[]string{"name"},
	)

	// Cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"namespace"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"namespace"},
	)

	CacheStaleServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_stale_served_total",
			Help: "Total number of reads served past the fresh boundary but within the stale window",
		},
		[]string{"namespace"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache evictions",
		},
		[]string{"namespace"},
	)

	// Feature store metrics
	FeatureBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feature_build_duration_seconds",
			Help:    "Duration of series feature builds in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"series"},
	)

	FeatureMatchesScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feature_matches_scanned_total",
			Help: "Total number of historical matches scanned during feature builds",
		},
		[]string{"series"},
	)

	// Prediction metrics
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of predictions produced by match stage",
		},
		[]string{"stage"}, // stage: completed, in_progress, pre_toss, post_toss, innings_break, live
	)

	PredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prediction_duration_seconds",
			Help:    "Duration of prediction resolution in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"stage"},
	)

	PredictionFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_prior_fallbacks_total",
			Help: "Total number of prior resolutions by fallback tier",
		},
		[]string{"tier"}, // tier: venue, series, league
	)

	// Decision engine metrics
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decisions_total",
			Help: "Total number of decision evaluations by label",
		},
		[]string{"label"}, // label: FLIP, STRONG, LEAN, HOLD
	)

	DecisionsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decisions_suppressed_total",
			Help: "Total number of decision calls suppressed by the noise filter",
		},
		[]string{"reason"}, // reason: min_delta, cooldown
	)

	DecisionTriggersFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decision_triggers_fired_total",
			Help: "Total number of decision trigger rule firings",
		},
		[]string{"rule"},
	)

	// API request metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"endpoint", "method", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Cache store snapshot gauges, refreshed by the Collector
	CacheStoreHits = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_store_hits",
			Help: "Lifetime hit count reported by the in-process cache store",
		},
	)

	CacheStoreMisses = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_store_misses",
			Help: "Lifetime miss count reported by the in-process cache store",
		},
	)

	CacheStoreEvictions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_store_evictions",
			Help: "Lifetime eviction count reported by the in-process cache store",
		},
	)

	CacheStoreCostUsed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_store_cost_used_bytes",
			Help: "Approximate cost currently held by the in-process cache store",
		},
	)

	DecisionTrackersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "decision_trackers_active",
			Help: "Number of match innings currently tracked by the noise suppressor",
		},
	)

	// Metrics collection error tracking
	MetricsCollectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metrics_collection_errors_total",
			Help: "Total number of errors during metrics collection",
		},
		[]string{"collector"},
	)

	// WebSocket metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	WebSocketMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent to clients",
		},
	)
)
