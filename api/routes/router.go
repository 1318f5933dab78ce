package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/stockbridge-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/stockbridge-backend/api/controllers/webhooks"
	"github.com/angelmondragon/stockbridge-backend/api/middleware"
	"github.com/angelmondragon/stockbridge-backend/internal/ratelimit"
	"github.com/angelmondragon/stockbridge-backend/pkg/config"
	"github.com/angelmondragon/stockbridge-backend/pkg/db"
	"github.com/angelmondragon/stockbridge-backend/pkg/logger"
	"github.com/angelmondragon/stockbridge-backend/pkg/redis"
)

// Pinger is any dependency that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps carries everything the HTTP surface needs. Worker-only processes pass
// a subset; nil components simply have their routes omitted.
type Deps struct {
	Config *config.Config
	Log    *logger.Logger

	DB       db.Pinger
	Redis    redis.Pinger
	PubSub   Pinger
	Ingest   webhookcontrollers.IngestService
	Limits   *ratelimit.Controller
	Queue    interface{ Depth() int }
	Outcomes controllers.OutcomeReader

	Registry *prometheus.Registry
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(deps.Log),
		middleware.RequestID(deps.Log),
		middleware.Logging(deps.Log),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, deps.Log, deps.DB, deps.Redis, deps.PubSub))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	if deps.Ingest != nil {
		r.Route("/api/v1/webhooks", func(r chi.Router) {
			r.Post("/commerce", webhookcontrollers.CommerceWebhook(deps.Ingest, deps.Config.Webhook, deps.Log))
		})
	}

	if deps.Limits != nil {
		r.Route("/api/admin/v1/sync", func(r chi.Router) {
			r.Get("/status", controllers.SyncStatus(deps.Limits, deps.Queue, deps.Log))
			r.Get("/shops/{shopId}/limits", controllers.ShopLimitStatus(deps.Limits, deps.Log))
			r.Post("/shops/{shopId}/limits/reset", controllers.ResetShopLimit(deps.Limits, deps.Log))
			if deps.Outcomes != nil {
				r.Get("/shops/{shopId}/outcomes", controllers.ShopOutcomes(deps.Outcomes, deps.Log))
			}
		})
	}

	return r
}
