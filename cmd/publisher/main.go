package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"zapgoals/internal/adapters/relay"
	"zapgoals/internal/domain"
	"zapgoals/internal/infra/cache"
	"zapgoals/internal/infra/config"
	applog "zapgoals/internal/infra/log"
	"zapgoals/internal/infra/metrics"
	"zapgoals/internal/infra/queue"
	"zapgoals/internal/usecase/publish"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)

	var redisClient *redis.Client
	var kv domain.Cache
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		kv = cache.NewRedis(redisClient)
	}

	jobs, closeQueue, err := queue.Open(cfg.Queues.Backend, redisClient, cfg.Queues.RabbitURL, cfg.Queues.Publish)
	if err != nil {
		logger.Fatal().Err(err).Msg("publisher: queue unavailable")
	}
	defer closeQueue()

	pool := relay.NewPool(cfg.Relays, cfg.Ingest.EOSETimeout, logger)
	defer pool.Close()
	if err := pool.Connect(ctx); err != nil {
		logger.Fatal().Err(err).Msg("publisher: relays unavailable")
	}

	worker := publish.NewWorker(jobs, pool, kv, cfg.Queues.MaxAttempts, logger)
	logger.Info().Str("backend", cfg.Queues.Backend).Msg("publisher: processing queue")
	worker.Run(ctx)
	logger.Info().Msg("publisher: stopped")
}
