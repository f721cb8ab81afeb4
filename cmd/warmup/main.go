package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/wicketwise/crickcast/backend/internal/cache"
	"github.com/wicketwise/crickcast/backend/internal/config"
	"github.com/wicketwise/crickcast/backend/internal/features"
	"github.com/wicketwise/crickcast/backend/internal/logger"
	"github.com/wicketwise/crickcast/backend/internal/upstream"
)

// Warms the shared cache tier for a series ahead of play: the full
// feature build plus the day's match list. Pointless without Redis,
// since a process-local cache dies with this process.
func main() {
	_ = godotenv.Load()

	seriesID := flag.String("series", "", "series identifier to warm (defaults to DEFAULT_SERIES_ID)")
	date := flag.String("date", time.Now().UTC().Format("2006-01-02"), "match date to warm (YYYY-MM-DD)")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	series := *seriesID
	if series == "" {
		series = cfg.DefaultSeriesID
	}
	if series == "" {
		fmt.Fprintln(os.Stderr, "no series: pass -series or set DEFAULT_SERIES_ID")
		os.Exit(2)
	}
	if cfg.RedisAddr == "" {
		fmt.Fprintln(os.Stderr, "REDIS_ADDR not set: warming requires the shared cache tier")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	local, err := cache.NewLRU(cfg.CacheMaxCost, 1<<20)
	if err != nil {
		logger.Error("local cache init failed", "error", err)
		os.Exit(1)
	}
	redis, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Error("redis unreachable", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}

	cacheClient := cache.NewClient(local, redis, cfg.CacheVersion)
	up := upstream.New(cfg, cacheClient)
	store := features.NewStore(up, cacheClient, cfg.FeaturesTTL)

	t0 := time.Now()
	feats, err := store.Build(ctx, series)
	if err != nil {
		logger.Error("feature build failed", "series_id", series, "error", err)
		os.Exit(1)
	}
	matches, err := up.MatchesOn(ctx, series, *date)
	if err != nil {
		logger.Error("match list warm failed", "series_id", series, "date", *date, "error", err)
		os.Exit(1)
	}

	sample := 0
	if feats.SeriesPriors != nil {
		sample = feats.SeriesPriors.SampleSize
	}
	logger.Info("warmup complete",
		"series_id", series,
		"date", *date,
		"sample_size", sample,
		"matches", len(matches),
		"elapsed_ms", time.Since(t0).Milliseconds())
}
