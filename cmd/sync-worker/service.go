package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/stockbridge-backend/api/routes"
	"github.com/angelmondragon/stockbridge-backend/internal/audit"
	"github.com/angelmondragon/stockbridge-backend/internal/consumer"
	"github.com/angelmondragon/stockbridge-backend/internal/propagation"
	"github.com/angelmondragon/stockbridge-backend/internal/ratelimit"
	"github.com/angelmondragon/stockbridge-backend/pkg/config"
	"github.com/angelmondragon/stockbridge-backend/pkg/db"
	"github.com/angelmondragon/stockbridge-backend/pkg/logger"
	"github.com/angelmondragon/stockbridge-backend/pkg/pubsub"
	"github.com/angelmondragon/stockbridge-backend/pkg/redis"
)

type ServiceParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *db.Client
	Redis    *redis.Client
	PubSub   *pubsub.Client
	Consumer *consumer.Consumer
	Queue    *propagation.Queue
	Limits   *ratelimit.Controller
	Audit    *audit.Recorder
	Registry *prometheus.Registry
}

type Service struct {
	cfg      *config.Config
	logg     *logger.Logger
	db       *db.Client
	redis    *redis.Client
	pubsub   *pubsub.Client
	consumer *consumer.Consumer
	queue    *propagation.Queue
	limits   *ratelimit.Controller
	audit    *audit.Recorder
	registry *prometheus.Registry
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.Consumer == nil {
		return nil, errors.New("event consumer is required")
	}
	if params.Queue == nil {
		return nil, errors.New("propagation queue is required")
	}
	if params.Limits == nil {
		return nil, errors.New("rate limit controller is required")
	}

	return &Service{
		cfg:      params.Config,
		logg:     params.Logger,
		db:       params.DB,
		redis:    params.Redis,
		pubsub:   params.PubSub,
		consumer: params.Consumer,
		queue:    params.Queue,
		limits:   params.Limits,
		audit:    params.Audit,
		registry: params.Registry,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "redis", s.redis.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "pubsub", s.pubsub.Ping); err != nil {
		return err
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

// adminHandler exposes health, metrics and the sync operator endpoints.
func (s *Service) adminHandler() http.Handler {
	deps := routes.Deps{
		Config:   s.cfg,
		Log:      s.logg,
		DB:       s.db,
		Redis:    s.redis,
		PubSub:   s.pubsub,
		Limits:   s.limits,
		Queue:    s.queue,
		Registry: s.registry,
	}
	if s.audit != nil {
		deps.Outcomes = s.audit
	}
	return routes.NewRouter(deps)
}

// Run blocks until the context is canceled or a component fails.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	addr := ":" + s.cfg.App.Port
	server := &http.Server{Addr: addr, Handler: s.adminHandler()}

	errCh := make(chan error, 2)
	go func() {
		errCh <- s.consumer.Run(ctx)
	}()
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		s.queue.Stop()
	}()

	select {
	case <-ctx.Done():
		s.logg.Info(ctx, "worker context canceled")
		return ctx.Err()
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logg.Error(ctx, "worker component stopped unexpectedly", err)
			return err
		}
		return err
	}
}
