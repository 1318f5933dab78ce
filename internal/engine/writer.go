package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockbridge-backend/internal/propagation"
	"github.com/angelmondragon/stockbridge-backend/internal/ratelimit"
	"github.com/angelmondragon/stockbridge-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockbridge-backend/pkg/errors"
	"github.com/angelmondragon/stockbridge-backend/pkg/logger"
	"github.com/angelmondragon/stockbridge-backend/pkg/metrics"
	"github.com/angelmondragon/stockbridge-backend/pkg/remote"
)

type remoteAPI interface {
	SetInventoryQuantities(ctx context.Context, creds remote.Credentials, quantities []remote.InventoryQuantity) (*remote.WriteResult, error)
}

type itemResolver interface {
	Resolve(ctx context.Context, shopID string, creds remote.Credentials, variantID string) (string, error)
}

// RemoteWriter turns pending updates into one bulk admin-API call and
// feeds the response's throttle telemetry back into the controller.
type RemoteWriter struct {
	api     remoteAPI
	items   itemResolver
	shops   shopsRepository
	limits  *ratelimit.Controller
	log     *logger.Logger
	metrics *metrics.SyncMetrics
}

// NewRemoteWriter builds the propagation writer backed by the admin API.
// Metrics may be nil.
func NewRemoteWriter(api remoteAPI, items itemResolver, shops shopsRepository, limits *ratelimit.Controller, log *logger.Logger, m *metrics.SyncMetrics) (*RemoteWriter, error) {
	if api == nil {
		return nil, fmt.Errorf("engine: remote api required")
	}
	if items == nil {
		return nil, fmt.Errorf("engine: item resolver required")
	}
	if shops == nil {
		return nil, fmt.Errorf("engine: shops repository required")
	}
	if limits == nil {
		return nil, fmt.Errorf("engine: rate-limit controller required")
	}
	if log == nil {
		return nil, fmt.Errorf("engine: logger required")
	}
	return &RemoteWriter{api: api, items: items, shops: shops, limits: limits, log: log, metrics: m}, nil
}

// SetInventoryQuantities implements propagation.Writer. Quantities are
// absolute, so replays after a requeue converge on the same state.
func (w *RemoteWriter) SetInventoryQuantities(ctx context.Context, shopID string, updates []propagation.PendingInventoryUpdate) error {
	id, err := uuid.Parse(shopID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse destination shop id")
	}
	shop, err := w.shops.FindByID(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load destination shop")
	}
	if shop.AccessToken == "" {
		return pkgerrors.New(pkgerrors.CodeConflict, "destination shop has no credentials")
	}
	creds := remote.Credentials{Domain: shop.Domain, AccessToken: shop.AccessToken}

	quantities := make([]remote.InventoryQuantity, 0, len(updates))
	dropped := 0
	for _, update := range updates {
		itemID, err := w.items.Resolve(ctx, shopID, creds, update.DestinationVariantID)
		if err != nil {
			if pkgerrors.IsRetryable(err) {
				return err
			}
			// A variant the destination does not know stays unknown on
			// redelivery; drop this update and let its siblings through.
			dropped++
			w.metrics.IncOutcome(string(enums.OutcomeFailure))
			w.log.Error(w.log.WithField(ctx, "destination_variant_id", update.DestinationVariantID),
				"item id resolution failed, update dropped", err)
			continue
		}
		quantities = append(quantities, remote.InventoryQuantity{
			InventoryItemID: itemID,
			LocationID:      update.LocationID,
			Available:       update.Quantity,
		})
	}
	if len(quantities) == 0 {
		if dropped > 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "every update in the batch was dropped")
		}
		return nil
	}

	result, err := w.api.SetInventoryQuantities(ctx, creds, quantities)
	if result != nil {
		w.observe(shopID, result.RateLimit)
	}
	return err
}

func (w *RemoteWriter) observe(shopID string, info remote.RateLimitInfo) {
	if info.CallLimit != "" {
		w.limits.ObserveRESTHeader(shopID, info.CallLimit)
	}
	if info.Budget != nil {
		w.limits.ObserveCost(shopID, ratelimit.CostBudget{
			CurrentlyAvailable: info.Budget.CurrentlyAvailable,
			RestoreRate:        info.Budget.RestoreRate,
			MaximumAvailable:   info.Budget.MaximumAvailable,
		})
	}
}
