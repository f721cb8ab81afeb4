package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wicketwise/crickcast/backend/internal/api"
	"github.com/wicketwise/crickcast/backend/internal/api/handlers"
	"github.com/wicketwise/crickcast/backend/internal/cache"
	"github.com/wicketwise/crickcast/backend/internal/config"
	"github.com/wicketwise/crickcast/backend/internal/decision"
	"github.com/wicketwise/crickcast/backend/internal/errorreporting"
	"github.com/wicketwise/crickcast/backend/internal/features"
	"github.com/wicketwise/crickcast/backend/internal/logger"
	"github.com/wicketwise/crickcast/backend/internal/metrics"
	"github.com/wicketwise/crickcast/backend/internal/predict"
	"github.com/wicketwise/crickcast/backend/internal/scheduler"
	"github.com/wicketwise/crickcast/backend/internal/secrets"
	"github.com/wicketwise/crickcast/backend/internal/tracing"
	"github.com/wicketwise/crickcast/backend/internal/upstream"
)

func main() {
	// No .env file is fine, system env still applies
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	if err := secrets.ValidateRequired(map[string]string{
		"UPSTREAM_BASE_URL": cfg.UpstreamBaseURL,
	}); err != nil {
		logger.Error("config invalid", "error", err)
		os.Exit(1)
	}
	logger.Info("upstream feed configured",
		"base_url", secrets.MaskURL(cfg.UpstreamBaseURL),
		"api_key", secrets.Mask(cfg.UpstreamAPIKey))

	if err := errorreporting.Init(cfg.SentryEnvironment); err != nil {
		logger.Warn("sentry init failed, continuing without error reporting", "error", err)
	}
	defer errorreporting.Flush(2 * time.Second)

	shutdownTracing, err := tracing.Init("crickcast-backend")
	if err != nil {
		logger.Warn("tracing init failed, continuing without traces", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	local, err := cache.NewLRU(cfg.CacheMaxCost, 1<<20)
	if err != nil {
		logger.Error("local cache init failed", "error", err)
		os.Exit(1)
	}

	var shared cache.Store
	if cfg.RedisAddr != "" {
		redis, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("redis unreachable, running on local cache only", "addr", cfg.RedisAddr, "error", err)
		} else {
			shared = redis
			logger.Info("redis cache tier connected", "addr", cfg.RedisAddr)
		}
	}

	cacheClient := cache.NewClient(local, shared, cfg.CacheVersion)
	up := upstream.New(cfg, cacheClient)
	featureStore := features.NewStore(up, cacheClient, cfg.FeaturesTTL)
	predictions := predict.NewService(up, featureStore, cacheClient, cfg)
	engine := decision.NewEngine(cfg.SuppressorMinDelta, cfg.SuppressorCooldown)

	hub := handlers.NewDecisionHub()
	go hub.Run()
	defer hub.Stop()

	collector := metrics.NewCollector(func() metrics.CacheStats {
		s := cacheClient.Stats()
		return metrics.CacheStats{
			Hits:      s.Hits,
			Misses:    s.Misses,
			Evictions: s.Evictions,
			CostUsed:  s.Size,
		}
	}, engine.TrackedMatches, 15*time.Second)
	go collector.Start(ctx)
	defer collector.Stop()

	if cfg.DefaultSeriesID != "" {
		sched, err := scheduler.ParseSchedule(cfg.WarmSchedule)
		if err != nil {
			logger.Warn("invalid WARM_SCHEDULE, falling back to default cadence",
				"value", cfg.WarmSchedule, "error", err)
		}
		warmer := scheduler.NewService(up, featureStore, cfg.DefaultSeriesID, sched)
		go warmer.Start(ctx)
		defer warmer.Stop()
	}

	router, limiter := api.NewRouter(api.Deps{
		Config:      cfg,
		Predictions: predictions,
		Engine:      engine,
		Upstream:    up,
		Cache:       cacheClient,
		Hub:         hub,
	})
	if limiter != nil {
		defer limiter.Stop()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}
	logger.Info("server stopped")
}
