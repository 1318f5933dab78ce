package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/stockbridge-backend/api/responses"
	"github.com/angelmondragon/stockbridge-backend/api/validators"
	"github.com/angelmondragon/stockbridge-backend/internal/ratelimit"
	"github.com/angelmondragon/stockbridge-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/stockbridge-backend/pkg/errors"
	"github.com/angelmondragon/stockbridge-backend/pkg/logger"
)

// OutcomeReader lists recent propagation outcomes for one destination shop.
type OutcomeReader interface {
	Recent(ctx context.Context, destinationShopID uuid.UUID, limit int) ([]models.SyncOutcome, error)
}

type queueDepther interface {
	Depth() int
}

// SyncStatus reports the queue depth and every tracked shop's throttle state.
func SyncStatus(limits *ratelimit.Controller, queue queueDepther, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if limits == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rate limit controller unavailable"))
			return
		}

		body := map[string]any{"shops": limits.Snapshots()}
		if queue != nil {
			body["queue_depth"] = queue.Depth()
		}
		responses.WriteSuccess(w, body)
	}
}

// ShopLimitStatus reports the throttle state for one shop.
func ShopLimitStatus(limits *ratelimit.Controller, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if limits == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rate limit controller unavailable"))
			return
		}

		shopID := chi.URLParam(r, "shopId")
		if _, err := uuid.Parse(shopID); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "shop id must be a uuid"))
			return
		}

		responses.WriteSuccess(w, limits.Snapshot(shopID))
	}
}

// ResetShopLimit clears a shop's throttle state, including dead-letter
// suspension. Operator escape hatch after a destination recovers.
func ResetShopLimit(limits *ratelimit.Controller, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if limits == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rate limit controller unavailable"))
			return
		}

		shopID := chi.URLParam(r, "shopId")
		if _, err := uuid.Parse(shopID); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "shop id must be a uuid"))
			return
		}

		limits.Reset(shopID)
		if logg != nil {
			ctx := logg.WithShopID(r.Context(), shopID)
			logg.Info(ctx, "rate limit state reset by operator")
		}
		responses.WriteSuccess(w, limits.Snapshot(shopID))
	}
}

// ShopOutcomes lists recent sync outcomes for one destination shop.
func ShopOutcomes(outcomes OutcomeReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if outcomes == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "outcome recorder unavailable"))
			return
		}

		shopID, err := uuid.Parse(chi.URLParam(r, "shopId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "shop id must be a uuid"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := outcomes.Recent(r.Context(), shopID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list outcomes"))
			return
		}

		responses.WriteSuccess(w, map[string]any{"outcomes": rows})
	}
}
