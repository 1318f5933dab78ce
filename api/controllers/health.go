package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/stockbridge-backend/api/responses"
	"github.com/angelmondragon/stockbridge-backend/pkg/config"
	"github.com/angelmondragon/stockbridge-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/stockbridge-backend/pkg/errors"
	"github.com/angelmondragon/stockbridge-backend/pkg/logger"
	"github.com/angelmondragon/stockbridge-backend/pkg/redis"
)

const envHeader = "X-Stockbridge-Env"

type pubsubPinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger, psP pubsubPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set(envHeader, cfg.App.Env)

		checks := map[string]string{}

		if dbP != nil {
			if err := dbP.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
				return
			}
			checks["db"] = "ok"
		}
		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unreachable"))
				return
			}
			checks["redis"] = "ok"
		}
		if psP != nil {
			if err := psP.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "pubsub unreachable"))
				return
			}
			checks["pubsub"] = "ok"
		}

		checks["status"] = "ready"
		responses.WriteSuccess(w, checks)
	}
}
