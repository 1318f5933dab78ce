package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/stockbridge-backend/internal/audit"
	"github.com/angelmondragon/stockbridge-backend/internal/consumer"
	"github.com/angelmondragon/stockbridge-backend/internal/engine"
	"github.com/angelmondragon/stockbridge-backend/internal/gate"
	"github.com/angelmondragon/stockbridge-backend/internal/inventory"
	"github.com/angelmondragon/stockbridge-backend/internal/mappings"
	"github.com/angelmondragon/stockbridge-backend/internal/propagation"
	"github.com/angelmondragon/stockbridge-backend/internal/ratelimit"
	"github.com/angelmondragon/stockbridge-backend/internal/shops"
	"github.com/angelmondragon/stockbridge-backend/pkg/config"
	"github.com/angelmondragon/stockbridge-backend/pkg/db"
	"github.com/angelmondragon/stockbridge-backend/pkg/logger"
	"github.com/angelmondragon/stockbridge-backend/pkg/metrics"
	"github.com/angelmondragon/stockbridge-backend/pkg/migrate"
	"github.com/angelmondragon/stockbridge-backend/pkg/pubsub"
	"github.com/angelmondragon/stockbridge-backend/pkg/redis"
	"github.com/angelmondragon/stockbridge-backend/pkg/remote"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logg := logger.New(logger.Options{ServiceName: "sync-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "sync-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := psClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub", err)
		}
	}()

	registry := prometheus.NewRegistry()
	syncMetrics := metrics.NewSyncMetrics(registry)

	limits := ratelimit.NewController(ratelimit.Options{
		BackoffBase:         cfg.Sync.BackoffBase,
		BackoffMax:          cfg.Sync.BackoffMax,
		DeadLetterThreshold: cfg.Sync.DeadLetterErrors,
		LowWaterFraction:    cfg.Sync.LowWaterFraction,
	})

	remoteClient, err := remote.NewClient(
		cfg.Remote.BaseURL,
		remote.WithAPIVersion(cfg.Remote.APIVersion),
		remote.WithHTTPClient(&http.Client{Timeout: cfg.Remote.HTTPTimeout}),
	)
	if err != nil {
		logg.Error(ctx, "failed to create remote client", err)
		os.Exit(1)
	}

	itemResolver, err := remote.NewItemIDResolver(remoteClient, redisClient, cfg.Eventing.ItemIDTTL)
	if err != nil {
		logg.Error(ctx, "failed to create item resolver", err)
		os.Exit(1)
	}

	shopsRepo := shops.NewRepository(dbClient.DB())

	writer, err := engine.NewRemoteWriter(remoteClient, itemResolver, shopsRepo, limits, logg, syncMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create remote writer", err)
		os.Exit(1)
	}

	queue, err := propagation.NewQueue(propagation.Params{
		Writer:             writer,
		Limits:             limits,
		Log:                logg,
		Metrics:            syncMetrics,
		FlushInterval:      cfg.Sync.FlushInterval,
		BatchSize:          cfg.Sync.FlushBatchSize,
		DelayHighWaterMark: cfg.Sync.DelayHighWaterMark,
	})
	if err != nil {
		logg.Error(ctx, "failed to create propagation queue", err)
		os.Exit(1)
	}

	dedupGate, err := gate.New(redisClient, cfg.Eventing.DedupTTL)
	if err != nil {
		logg.Error(ctx, "failed to create idempotency gate", err)
		os.Exit(1)
	}

	mappingService, err := mappings.NewService(mappings.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create mapping service", err)
		os.Exit(1)
	}

	auditRecorder, err := audit.NewRecorder(dbClient.DB(), logg, syncMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create audit recorder", err)
		os.Exit(1)
	}

	engineService, err := engine.NewService(engine.ServiceParams{
		Gate:      dedupGate,
		Mappings:  mappingService,
		Shops:     shopsRepo,
		Inventory: inventory.NewRepository(dbClient.DB()),
		Limits:    limits,
		Queue:     queue,
		Writer:    writer,
		Audit:     auditRecorder,
		Log:       logg,
		Metrics:   syncMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create sync engine", err)
		os.Exit(1)
	}

	eventConsumer, err := consumer.NewConsumer(engineService, psClient.EventsSubscription(), logg)
	if err != nil {
		logg.Error(ctx, "failed to create event consumer", err)
		os.Exit(1)
	}

	svc, err := NewService(ServiceParams{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		PubSub:   psClient,
		Consumer: eventConsumer,
		Queue:    queue,
		Limits:   limits,
		Audit:    auditRecorder,
		Registry: registry,
	})
	if err != nil {
		logg.Error(ctx, "failed to assemble worker", err)
		os.Exit(1)
	}

	runCtx := logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(runCtx, "starting sync worker")

	if err := svc.Run(ctx); err != nil && err != context.Canceled {
		logg.Error(runCtx, "sync worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "sync worker shut down gracefully")
}
