// Package engine orchestrates inbound webhook events end to end:
// dedup, delta resolution, authoritative quantity updates, per
// connection adjustment, and propagation under rate-limit backoff.
package engine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockbridge-backend/internal/adjust"
	"github.com/angelmondragon/stockbridge-backend/internal/audit"
	"github.com/angelmondragon/stockbridge-backend/internal/events"
	"github.com/angelmondragon/stockbridge-backend/internal/gate"
	"github.com/angelmondragon/stockbridge-backend/internal/mappings"
	"github.com/angelmondragon/stockbridge-backend/internal/propagation"
	"github.com/angelmondragon/stockbridge-backend/internal/ratelimit"
	"github.com/angelmondragon/stockbridge-backend/internal/resolver"
	"github.com/angelmondragon/stockbridge-backend/pkg/db/models"
	"github.com/angelmondragon/stockbridge-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockbridge-backend/pkg/errors"
	"github.com/angelmondragon/stockbridge-backend/pkg/logger"
	"github.com/angelmondragon/stockbridge-backend/pkg/metrics"
)

const (
	outcomeSkippedDuplicate = "duplicate delivery"
	outcomeNoConnections    = "no active connections"
	outcomeCatalogIgnored   = "catalog event, no inventory action"
)

type shopsRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error)
	ClearAccessToken(ctx context.Context, id uuid.UUID) error
}

type inventoryRepository interface {
	Level(ctx context.Context, sourceVariantID string) (*models.InventoryLevel, error)
	SetAbsolute(ctx context.Context, sourceVariantID string, quantity int) (*models.InventoryLevel, error)
	ApplyDelta(ctx context.Context, sourceVariantID string, delta int) (*models.InventoryLevel, error)
}

// Service consumes inbound events and drives synchronization.
type Service interface {
	HandleEvent(ctx context.Context, event events.InboundEvent) (string, error)
}

// ServiceParams collects the engine's collaborators.
type ServiceParams struct {
	Gate      *gate.Gate
	Mappings  mappings.Service
	Shops     shopsRepository
	Inventory inventoryRepository
	Limits    *ratelimit.Controller
	Queue     *propagation.Queue
	Writer    propagation.Writer
	Audit     *audit.Recorder
	Log       *logger.Logger
	Metrics   *metrics.SyncMetrics
}

type service struct {
	gate      *gate.Gate
	mappings  mappings.Service
	shops     shopsRepository
	inventory inventoryRepository
	limits    *ratelimit.Controller
	queue     *propagation.Queue
	writer    propagation.Writer
	audit     *audit.Recorder
	log       *logger.Logger
	metrics   *metrics.SyncMetrics
}

// NewService builds the sync engine.
func NewService(params ServiceParams) (Service, error) {
	if params.Gate == nil {
		return nil, fmt.Errorf("engine: gate required")
	}
	if params.Mappings == nil {
		return nil, fmt.Errorf("engine: mappings service required")
	}
	if params.Shops == nil {
		return nil, fmt.Errorf("engine: shops repository required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("engine: inventory repository required")
	}
	if params.Limits == nil {
		return nil, fmt.Errorf("engine: rate-limit controller required")
	}
	if params.Queue == nil {
		return nil, fmt.Errorf("engine: propagation queue required")
	}
	if params.Writer == nil {
		return nil, fmt.Errorf("engine: remote writer required")
	}
	if params.Log == nil {
		return nil, fmt.Errorf("engine: logger required")
	}
	return &service{
		gate:      params.Gate,
		mappings:  params.Mappings,
		shops:     params.Shops,
		inventory: params.Inventory,
		limits:    params.Limits,
		queue:     params.Queue,
		writer:    params.Writer,
		audit:     params.Audit,
		log:       params.Log,
		metrics:   params.Metrics,
	}, nil
}

// HandleEvent processes one webhook delivery behind the idempotency
// gate. Returns a short outcome summary for logging.
func (s *service) HandleEvent(ctx context.Context, event events.InboundEvent) (string, error) {
	ctx = s.log.WithShopID(ctx, event.ShopID.String())
	ctx = s.log.WithTopic(ctx, string(event.Topic))

	var outcome string
	skipped, err := s.gate.Process(ctx, event, func(ctx context.Context) (string, error) {
		result, err := s.dispatch(ctx, event)
		outcome = result
		return result, err
	})
	if err != nil {
		return "", err
	}
	if skipped {
		s.metrics.IncDeduped()
		s.log.Info(ctx, "duplicate delivery skipped")
		return outcomeSkippedDuplicate, nil
	}
	s.log.Info(ctx, "event processed: "+outcome)
	return outcome, nil
}

func (s *service) dispatch(ctx context.Context, event events.InboundEvent) (string, error) {
	payload, err := events.DecodePayload(event.Topic, event.Payload)
	if err != nil {
		return "", err
	}

	switch event.ResourceType() {
	case enums.ResourceOrder:
		return s.handleOrder(ctx, event, payload.(*events.OrderPayload))
	case enums.ResourceInventory:
		return s.handleInventorySet(ctx, event, payload.(*events.InventoryPayload))
	case enums.ResourceApp:
		return s.handleUninstall(ctx, event)
	default:
		// Catalog churn is the mapping subsystem's problem; the engine
		// only moves quantities.
		return outcomeCatalogIgnored, nil
	}
}

// handleOrder resolves an order-lifecycle event from a reseller shop
// into deltas on the source shop's authoritative quantities, then fans
// the new quantities out to every connected destination.
func (s *service) handleOrder(ctx context.Context, event events.InboundEvent, payload *events.OrderPayload) (string, error) {
	kind, ok := event.OrderEventKind()
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "topic is not an order event")
	}

	conns, err := s.mappings.ConnectionsForDestination(ctx, event.ShopID)
	if err != nil {
		return "", err
	}
	if len(conns) == 0 {
		return outcomeNoConnections, nil
	}

	touched := 0
	var firstErr error
	for _, conn := range conns {
		ctx := s.log.WithConnectionID(ctx, conn.ID.String())

		policy, err := s.mappings.GetConnectionPolicy(ctx, conn.ID)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		deltas := resolver.ResolveOrder(resolver.Policy{Trigger: policy.Trigger, SyncMode: policy.SyncMode}, kind, *payload)
		if len(deltas) == 0 {
			continue
		}

		mappingRows, err := s.mappings.GetActiveMappings(ctx, conn.ID)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		byDestination := indexByDestination(mappingRows)

		for _, delta := range deltas {
			mapping, ok := byDestination[delta.VariantID]
			if !ok || !mapping.SyncEnabled || mapping.Status != enums.MappingActive {
				continue
			}
			level, err := s.inventory.ApplyDelta(ctx, mapping.SourceVariantID, delta.Quantity)
			if err != nil {
				if firstErr == nil {
					firstErr = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply inventory delta")
				}
				continue
			}
			touched++
			if err := s.propagate(ctx, mapping.SourceVariantID, level.Quantity, enums.ReasonOrderEvent, ""); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}

	if firstErr != nil {
		return "", firstErr
	}
	return "order resolved, " + strconv.Itoa(touched) + " variant(s) updated", nil
}

// handleInventorySet applies a raw absolute quantity from the source
// shop and fans it out. An inventory event from a destination shop is
// instead checked for drift against the derived expectation.
func (s *service) handleInventorySet(ctx context.Context, event events.InboundEvent, payload *events.InventoryPayload) (string, error) {
	if payload.InventoryItemID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "inventory event missing item id")
	}

	sourceConns, err := s.mappings.ConnectionsForSource(ctx, event.ShopID)
	if err != nil {
		return "", err
	}
	if len(sourceConns) > 0 {
		level, err := s.inventory.SetAbsolute(ctx, payload.InventoryItemID, payload.Available)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set authoritative quantity")
		}
		if err := s.propagate(ctx, payload.InventoryItemID, level.Quantity, enums.ReasonInventorySet, payload.LocationID); err != nil {
			return "", err
		}
		return "authoritative quantity set to " + strconv.Itoa(level.Quantity), nil
	}

	return s.checkDrift(ctx, event, payload)
}

// checkDrift compares a destination shop's reported quantity against
// the value derived from the authoritative record.
func (s *service) checkDrift(ctx context.Context, event events.InboundEvent, payload *events.InventoryPayload) (string, error) {
	conns, err := s.mappings.ConnectionsForDestination(ctx, event.ShopID)
	if err != nil {
		return "", err
	}
	if len(conns) == 0 {
		return outcomeNoConnections, nil
	}

	for _, conn := range conns {
		mappingRows, err := s.mappings.GetActiveMappings(ctx, conn.ID)
		if err != nil {
			return "", err
		}
		mapping, ok := indexByDestination(mappingRows)[payload.InventoryItemID]
		if !ok {
			continue
		}
		level, err := s.inventory.Level(ctx, mapping.SourceVariantID)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load authoritative quantity")
		}
		expected := adjust.New(conn).Available(level.Quantity, false)
		if expected != payload.Available && s.audit != nil {
			s.audit.RecordDrift(ctx, conn.ID, conn.DestinationShopID, mapping.DestinationVariantID, expected, payload.Available)
			return "drift detected on variant " + mapping.DestinationVariantID, nil
		}
	}
	return "destination quantity consistent", nil
}

// handleUninstall pauses every connection touching the shop, drops its
// credentials, and discards its queued writes, which can never land
// without a token.
func (s *service) handleUninstall(ctx context.Context, event events.InboundEvent) (string, error) {
	paused, err := s.mappings.PauseShop(ctx, event.ShopID)
	if err != nil {
		return "", err
	}
	if err := s.shops.ClearAccessToken(ctx, event.ShopID); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear shop credentials")
	}
	dropped := s.queue.DropShop(event.ShopID.String())
	s.log.Warn(ctx, "app uninstalled, connections paused")
	return "uninstalled, " + strconv.Itoa(int(paused)) + " connection(s) paused, " +
		strconv.Itoa(dropped) + " queued update(s) dropped", nil
}

// propagate derives each destination's quantity from the authoritative
// level and either writes it immediately or defers it to the queue when
// the destination is throttled.
func (s *service) propagate(ctx context.Context, sourceVariantID string, quantity int, reason enums.UpdateReason, locationID string) error {
	// The authoritative record is keyed by source variant; every active
	// connection carrying a mapping for it gets a derived quantity.
	pairs, err := s.mappings.ConnectionsForVariant(ctx, sourceVariantID)
	if err != nil {
		return err
	}

	orderTriggered := reason == enums.ReasonOrderEvent

	var firstErr error
	for _, pair := range pairs {
		conn := pair.Connection
		ctx := s.log.WithConnectionID(ctx, conn.ID.String())
		pipeline := adjust.New(conn)

		// Catalog-only connections never move inventory from order
		// activity, even when another connection shares the variant.
		if orderTriggered && conn.SyncMode == enums.SyncModeCatalogOnly {
			s.recordOutcome(ctx, conn, enums.OutcomeSkipped, 0, "catalog-only connection")
			continue
		}
		if !pipeline.LocationAllowed(locationID) {
			s.recordOutcome(ctx, conn, enums.OutcomeSkipped, 0, "location filter")
			continue
		}
		if !pipeline.Eligible(pair.Mapping) {
			s.recordOutcome(ctx, conn, enums.OutcomeSkipped, 0, "mapping disabled or inactive")
			continue
		}

		update := propagation.PendingInventoryUpdate{
			DestinationShopID:    conn.DestinationShopID.String(),
			DestinationVariantID: pair.Mapping.DestinationVariantID,
			Quantity:             pipeline.Available(quantity, orderTriggered),
			Reason:               reason,
			LocationID:           locationID,
		}

		if err := s.deliver(ctx, conn, update); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// deliver writes an update now if the destination is healthy, or parks
// it on the propagation queue otherwise.
func (s *service) deliver(ctx context.Context, conn models.SyncConnection, update propagation.PendingInventoryUpdate) error {
	shopID := conn.DestinationShopID.String()

	delay, deadLettered := s.limits.RequiredDelay(shopID)
	throttled := s.limits.Status(shopID) == enums.RateLimitThrottled

	if deadLettered || throttled || delay > 0 {
		s.queue.Enqueue(update)
		if deadLettered {
			s.recordOutcome(ctx, conn, enums.OutcomeDeadLetter, 1, "destination dead-lettered, update queued")
		}
		return nil
	}

	if err := s.writer.SetInventoryQuantities(ctx, shopID, []propagation.PendingInventoryUpdate{update}); err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeRateLimit {
			s.limits.RecordThrottle(shopID)
			s.queue.Enqueue(update)
			return nil
		}
		s.recordOutcome(ctx, conn, enums.OutcomeFailure, 1, err.Error())
		return err
	}

	s.limits.RecordSuccess(shopID)
	s.recordOutcome(ctx, conn, enums.OutcomeSuccess, 1, "")
	return nil
}

func (s *service) recordOutcome(ctx context.Context, conn models.SyncConnection, kind enums.OutcomeKind, variants int, detail string) {
	if s.audit == nil {
		return
	}
	connID := conn.ID
	s.audit.Record(ctx, audit.Entry{
		ConnectionID:      &connID,
		DestinationShopID: conn.DestinationShopID,
		Kind:              kind,
		VariantCount:      variants,
		Detail:            detail,
	})
}

func indexByDestination(rows []models.VariantMapping) map[string]models.VariantMapping {
	index := make(map[string]models.VariantMapping, len(rows))
	for _, row := range rows {
		index[row.DestinationVariantID] = row
	}
	return index
}
