package main

import (
	"context"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"zapgoals/internal/adapters/memstore"
	"zapgoals/internal/adapters/relay"
	"zapgoals/internal/adapters/repo"
	"zapgoals/internal/adapters/telegram"
	"zapgoals/internal/domain"
	"zapgoals/internal/infra/cache"
	"zapgoals/internal/infra/config"
	"zapgoals/internal/infra/db"
	httpinfra "zapgoals/internal/infra/http"
	applog "zapgoals/internal/infra/log"
	"zapgoals/internal/infra/metrics"
	"zapgoals/internal/infra/queue"
	"zapgoals/internal/usecase/ingest"
	"zapgoals/internal/usecase/listing"
	"zapgoals/internal/usecase/parse"
	"zapgoals/internal/usecase/publish"
	"zapgoals/internal/usecase/stats"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)

	follower := ""
	if cfg.FollowerPubkey != "" {
		pk, err := relay.DecodePubkey(cfg.FollowerPubkey)
		if err != nil {
			logger.Fatal().Err(err).Msg("zapgoals: invalid FOLLOWER_PUBKEY")
		}
		follower = pk
	}

	var redisClient *redis.Client
	var kv domain.Cache
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		kv = cache.NewRedis(redisClient)
	}

	store := memstore.New()
	statsService := stats.NewService(store)
	parser := parse.New(parse.WithDefaultTarget(cfg.Goals.DefaultTargetSats))

	var archive domain.EventArchive
	var archiver *ingest.Archiver
	if cfg.PGDSN != "" {
		pgPool, err := db.Connect(cfg.PGDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("zapgoals: no database connection")
		}
		defer pgPool.Close()
		applied, err := db.Migrate(ctx, pgPool)
		if err != nil {
			logger.Fatal().Err(err).Msg("zapgoals: migrations failed")
		}
		logger.Info().Int("applied", applied).Msg("zapgoals: migrations done")
		archive = repo.NewArchive(pgPool)
		archiver = ingest.NewArchiver(archive, cfg.Ingest.ArchiveBuffer, logger)
	}

	var watcher *ingest.FundingWatcher
	if cfg.Telegram.Token != "" && cfg.Telegram.NotifyChatID != 0 {
		botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			logger.Fatal().Err(err).Msg("zapgoals: failed to create telegram bot")
		}
		notifier := telegram.NewNotifier(botAPI, cfg.Telegram.NotifyChatID)
		watcher = ingest.NewFundingWatcher(store, statsService, kv, notifier, cfg.Goals.ExcludeSelfZaps, logger)
	}

	pool := relay.NewPool(cfg.Relays, cfg.Ingest.EOSETimeout, logger)
	defer pool.Close()

	ingestService := ingest.NewService(pool, store, parser, ingest.Options{
		MinLoading:      cfg.Ingest.MinLoading,
		MinGoals:        cfg.Ingest.MinGoals,
		GoalLimit:       cfg.Ingest.GoalLimit,
		ZapLimit:        cfg.Ingest.ZapLimit,
		ReactionLimit:   cfg.Ingest.ReactionLimit,
		NoteLimit:       cfg.Ingest.NoteLimit,
		RefreshInterval: cfg.Ingest.RefreshInterval,
		Resubscribe:     cfg.Ingest.ResubscribeDelay,
		Follower:        follower,
	}, archiver, watcher, logger)

	if archive != nil {
		replayed, err := ingestService.Replay(ctx, archive, cfg.Ingest.ReplayLimit)
		if err != nil {
			logger.Error().Err(err).Msg("zapgoals: archive replay failed")
		} else {
			logger.Info().Int("events", replayed).Msg("zapgoals: archive replayed")
		}
	}
	if archiver != nil {
		go archiver.Run(ctx)
	}

	api := &httpinfra.API{
		Stats:      statsService,
		Store:      store,
		Phase:      ingestService,
		Relays:     pool,
		Paginator:  listing.NewPaginator(cfg.Listing.PageSize, cfg.Listing.MaxPages),
		Follower:   follower,
		WriteToken: cfg.API.WriteToken,
		Log:        logger,
	}
	publishService, closeQueue := newPublishService(cfg, redisClient, kv, store, logger)
	defer closeQueue()
	if publishService != nil {
		api.Publish = publishService
	}
	server := httpinfra.NewServer(logger)
	api.Mount(server.Router)
	go func() {
		if err := server.Start(":" + strconv.Itoa(cfg.Port)); err != nil {
			logger.Error().Err(err).Msg("zapgoals: http server stopped")
			stop()
		}
	}()

	if err := pool.Connect(ctx); err != nil {
		logger.Fatal().Err(err).Msg("zapgoals: relays unavailable")
	}
	go func() {
		select {
		case <-ingestService.Ready():
			logger.Info().Interface("counts", store.Counts()).Msg("zapgoals: initial load complete")
		case <-ctx.Done():
		}
	}()

	logger.Info().Strs("relays", cfg.Relays).Msg("zapgoals: ingestion started")
	if err := ingestService.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("zapgoals: ingestion stopped")
	}
	if watcher != nil {
		watcher.Wait()
	}

	logger.Info().Msg("zapgoals: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

// newPublishService returns nil when no queue backend is reachable; the API
// then answers publish requests with 503.
func newPublishService(cfg config.AppConfig, client *redis.Client, kv domain.Cache, goals publish.GoalReader, logger zerolog.Logger) (*publish.Service, func()) {
	q, closeQueue, err := queue.Open(cfg.Queues.Backend, client, cfg.Queues.RabbitURL, cfg.Queues.Publish)
	if err != nil {
		logger.Warn().Err(err).Msg("zapgoals: publishing disabled")
		return nil, closeQueue
	}
	var signer domain.Signer
	if cfg.Nostr.PrivateKey != "" {
		s, err := relay.NewKeySigner(cfg.Nostr.PrivateKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("zapgoals: invalid NOSTR_PRIVATE_KEY")
		}
		signer = s
		logger.Info().Str("pubkey", s.PublicKey()).Msg("zapgoals: server signing enabled")
	}
	return publish.NewService(q, relay.Verifier{}, signer, goals, kv, logger), closeQueue
}
