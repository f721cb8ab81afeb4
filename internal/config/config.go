package config

import (
	"os"
	"strings"
	"time"

	"github.com/wicketwise/crickcast/backend/internal/utils"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	Port        string
	UserAgent   string
	HTTPTimeout time.Duration
	// Series the unscoped endpoints default to
	DefaultSeriesID string
	// Cadence expression for the cache warmer ("@every 10m", "@hourly")
	WarmSchedule string
	// Upstream feed configuration
	UpstreamBaseURL string
	UpstreamAPIKey  string
	HTTPMaxRetries  int
	HTTPRetryBase   time.Duration
	// Cache backend configuration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheVersion  string
	CacheMaxCost  int64
	// Upstream data TTLs
	ScheduleTTL       time.Duration
	ScheduleStaleTTL  time.Duration
	MatchInfoTTL      time.Duration
	OversTTL          time.Duration
	ScorecardTTL      time.Duration
	CompletedMatchTTL time.Duration
	FeaturesTTL       time.Duration
	MatchListPastTTL  time.Duration
	MatchListLiveTTL  time.Duration
	MatchListSoonTTL  time.Duration
	// Prediction TTLs by stage
	PredPreTossTTL    time.Duration
	PredPostTossTTL   time.Duration
	PredCompletedTTL  time.Duration
	PredInProgressTTL time.Duration
	PredLiveTTL       time.Duration
	// Decision engine tuning
	TossChaseBiasEnabled bool
	SuppressorMinDelta   float64
	SuppressorCooldown   time.Duration
	// Security settings
	RateLimitGlobal      float64  // requests per second globally
	RateLimitGlobalBurst int      // burst size for global rate limit
	RateLimitPerIP       float64  // requests per second per IP
	RateLimitPerIPBurst  int      // burst size for per-IP rate limit
	CORSAllowedOrigins   []string // allowed CORS origins
	EnableRateLimit      bool     // enable rate limiting middleware
	AdminAPIToken        string   // Bearer token gating cache admin endpoints
	// Observability settings
	LogLevel          string  // log level: debug, info, warn, error
	OTELEnabled       bool    // enable OpenTelemetry tracing
	OTELEndpoint      string  // OpenTelemetry collector endpoint
	OTELSampleRate    float64 // trace sampling rate (0.0 to 1.0)
	SentryDSN         string  // Sentry DSN for error reporting
	SentryEnvironment string  // Sentry environment (dev, staging, production)
	SentryRelease     string  // Sentry release version
	SentrySampleRate  float64 // Sentry error sampling rate (0.0 to 1.0)
}

var cached *Config

// Load reads env vars once and caches them.
func Load() *Config {
	if cached != nil {
		return cached
	}
	ua := os.Getenv("CRICKCAST_USER_AGENT")
	if strings.TrimSpace(ua) == "" {
		ua = "crickcast/0.1"
	}
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8000"
	}
	warm := strings.TrimSpace(os.Getenv("WARM_SCHEDULE"))
	if warm == "" {
		warm = "@every 10m"
	}
	cached = &Config{
		Port:            port,
		UserAgent:       ua,
		DefaultSeriesID: strings.TrimSpace(os.Getenv("DEFAULT_SERIES_ID")),
		WarmSchedule:    warm,
		HTTPTimeout:     time.Duration(utils.GetEnvAsInt("HTTP_TIMEOUT_MS", 15000)) * time.Millisecond,
		UpstreamBaseURL: strings.TrimRight(strings.TrimSpace(os.Getenv("UPSTREAM_BASE_URL")), "/"),
		UpstreamAPIKey:  strings.TrimSpace(os.Getenv("UPSTREAM_API_KEY")),
		// Failed upstream calls propagate; the next request retries
		// naturally. Transport-level retries are opt-in.
		HTTPMaxRetries: utils.GetEnvAsInt("HTTP_MAX_RETRIES", 1),
		HTTPRetryBase:  time.Duration(utils.GetEnvAsInt("HTTP_RETRY_BASE_MS", 250)) * time.Millisecond,
		RedisAddr:      strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        utils.GetEnvAsInt("REDIS_DB", 0),
		CacheVersion:   strings.TrimSpace(os.Getenv("CACHE_VERSION")),
		CacheMaxCost:   int64(utils.GetEnvAsInt("CACHE_MAX_COST_MB", 64)) << 20,
		// Upstream TTLs: near-real-time endpoints churn every few seconds,
		// schedule and completed data barely move.
		ScheduleTTL:       time.Duration(utils.GetEnvAsInt("SCHEDULE_TTL_S", 86400)) * time.Second,
		ScheduleStaleTTL:  time.Duration(utils.GetEnvAsInt("SCHEDULE_STALE_TTL_S", 3600)) * time.Second,
		MatchInfoTTL:      time.Duration(utils.GetEnvAsInt("MATCH_INFO_TTL_S", 30)) * time.Second,
		OversTTL:          time.Duration(utils.GetEnvAsInt("OVERS_TTL_S", 8)) * time.Second,
		ScorecardTTL:      time.Duration(utils.GetEnvAsInt("SCORECARD_TTL_S", 10)) * time.Second,
		CompletedMatchTTL: time.Duration(utils.GetEnvAsInt("COMPLETED_MATCH_TTL_S", 86400)) * time.Second,
		FeaturesTTL:       time.Duration(utils.GetEnvAsInt("FEATURES_TTL_S", 3600)) * time.Second,
		MatchListPastTTL:  time.Duration(utils.GetEnvAsInt("MATCH_LIST_PAST_TTL_S", 86400)) * time.Second,
		MatchListLiveTTL:  time.Duration(utils.GetEnvAsInt("MATCH_LIST_LIVE_TTL_S", 3600)) * time.Second,
		MatchListSoonTTL:  time.Duration(utils.GetEnvAsInt("MATCH_LIST_SOON_TTL_S", 1800)) * time.Second,
		// Prediction TTLs by stage
		PredPreTossTTL:    time.Duration(utils.GetEnvAsInt("PRED_PRE_TOSS_TTL_S", 1800)) * time.Second,
		PredPostTossTTL:   time.Duration(utils.GetEnvAsInt("PRED_POST_TOSS_TTL_S", 300)) * time.Second,
		PredCompletedTTL:  time.Duration(utils.GetEnvAsInt("PRED_COMPLETED_TTL_S", 86400)) * time.Second,
		PredInProgressTTL: time.Duration(utils.GetEnvAsInt("PRED_IN_PROGRESS_TTL_S", 30)) * time.Second,
		PredLiveTTL:       time.Duration(utils.GetEnvAsInt("PRED_LIVE_TTL_S", 8)) * time.Second,
		// Decision engine tuning
		TossChaseBiasEnabled: utils.GetEnvAsBool("TOSS_CHASE_BIAS_ENABLED", true),
		SuppressorMinDelta:   utils.GetEnvAsFloat("SUPPRESSOR_MIN_DELTA", 0.08),
		SuppressorCooldown:   time.Duration(utils.GetEnvAsInt("SUPPRESSOR_COOLDOWN_S", 45)) * time.Second,
		// Security settings with sensible defaults
		RateLimitGlobal:      utils.GetEnvAsFloat("RATE_LIMIT_GLOBAL", 100.0),
		RateLimitGlobalBurst: utils.GetEnvAsInt("RATE_LIMIT_GLOBAL_BURST", 200),
		RateLimitPerIP:       utils.GetEnvAsFloat("RATE_LIMIT_PER_IP", 10.0),
		RateLimitPerIPBurst:  utils.GetEnvAsInt("RATE_LIMIT_PER_IP_BURST", 20),
		EnableRateLimit:      utils.GetEnvAsBool("ENABLE_RATE_LIMIT", true),
		AdminAPIToken:        strings.TrimSpace(os.Getenv("ADMIN_API_TOKEN")),
		// Observability settings
		LogLevel:          strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))),
		OTELEnabled:       utils.GetEnvAsBool("OTEL_ENABLED", false),
		OTELEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTELSampleRate:    utils.GetEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),
		SentryDSN:         strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		SentryEnvironment: strings.TrimSpace(os.Getenv("SENTRY_ENVIRONMENT")),
		SentryRelease:     strings.TrimSpace(os.Getenv("SENTRY_RELEASE")),
		SentrySampleRate:  utils.GetEnvAsFloat("SENTRY_SAMPLE_RATE", 1.0),
	}
	if cached.CacheVersion == "" {
		cached.CacheVersion = "v1"
	}
	if cached.LogLevel == "" {
		cached.LogLevel = "info"
	}
	if cached.SentryEnvironment == "" {
		if env := os.Getenv("ENV"); env != "" {
			cached.SentryEnvironment = env
		} else {
			cached.SentryEnvironment = "development"
		}
	}

	// Parse CORS allowed origins
	corsOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if corsOrigins == "" {
		// Default to common development origins
		cached.CORSAllowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	} else {
		cached.CORSAllowedOrigins = strings.Split(corsOrigins, ",")
		for i := range cached.CORSAllowedOrigins {
			cached.CORSAllowedOrigins[i] = strings.TrimSpace(cached.CORSAllowedOrigins[i])
		}
	}

	return cached
}

// ResetForTest clears cached config; for use in tests only.
func ResetForTest() { cached = nil }
