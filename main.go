package main

import (
	"context"
	"log"
	"os"

	"transcriber/internal/api"
	"transcriber/internal/config"
	"transcriber/internal/metrics"
	"transcriber/internal/ratelimit"
	"transcriber/internal/redis"
	"transcriber/internal/storage"
	"transcriber/internal/transcribe"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfgPath := os.Getenv("TRANSCRIBER_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := os.MkdirAll(cfg.BasicConfig.TempBaseDir, 0o755); err != nil {
		log.Fatalf("create temp base dir: %v", err)
	}

	// The sweeper is the backstop for per-request cleanup; it removes any
	// run directory older than the retention window.
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	storage.StartSweeper(sweepCtx, cfg.BasicConfig.TempBaseDir, cfg.SweepInterval(), cfg.RetentionAge())

	// Redis is optional: without it the rate limiter keeps per-instance
	// counters in memory.
	var cache *redis.Client
	if cfg.Redis.Host != "" {
		cache, err = redis.NewRedisClient(cfg)
		if err != nil {
			log.Fatalf("create redis client: %v", err)
		}
		defer cache.Close()
	}
	limiter := ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimitWindow(), cache)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	client := transcribe.NewClient(cfg.Transcription)
	handlers := api.NewHandler(client, cfg, limiter, m)

	router := gin.Default()
	handlers.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	if err := router.Run(cfg.BasicConfig.ServerAddress); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
