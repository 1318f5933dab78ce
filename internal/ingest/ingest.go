// Package ingest turns verified webhook deliveries into inbound events on the
// processing topic. The receiver stays thin: verify, resolve the shop, hand
// off, acknowledge. All business handling happens in the worker.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockbridge-backend/internal/events"
	"github.com/angelmondragon/stockbridge-backend/pkg/db/models"
	"github.com/angelmondragon/stockbridge-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockbridge-backend/pkg/errors"
	"github.com/angelmondragon/stockbridge-backend/pkg/logger"
)

// EventPublisher pushes serialized events onto the processing topic.
type EventPublisher interface {
	PublishEvent(ctx context.Context, data []byte, attrs map[string]string) (string, error)
}

type shopLookup interface {
	FindByDomain(ctx context.Context, domain string) (*models.Shop, error)
}

type Service struct {
	shops     shopLookup
	publisher EventPublisher
	log       *logger.Logger
}

type ServiceParams struct {
	Shops     shopLookup
	Publisher EventPublisher
	Log       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Shops == nil {
		return nil, errors.New("shop lookup is required")
	}
	if params.Publisher == nil {
		return nil, errors.New("event publisher is required")
	}
	if params.Log == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{shops: params.Shops, publisher: params.Publisher, log: params.Log}, nil
}

// Accept validates a delivery and publishes it for asynchronous processing.
// The returned event is what was published, mainly for logging and tests.
func (s *Service) Accept(ctx context.Context, domain, rawTopic, deliveryID string, payload []byte) (events.InboundEvent, error) {
	topic, err := enums.ParseWebhookTopic(rawTopic)
	if err != nil {
		return events.InboundEvent{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported webhook topic")
	}

	domain = strings.TrimSpace(domain)
	if domain == "" {
		return events.InboundEvent{}, pkgerrors.New(pkgerrors.CodeValidation, "shop domain header missing")
	}

	shop, err := s.shops.FindByDomain(ctx, domain)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return events.InboundEvent{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "unknown shop domain")
		}
		return events.InboundEvent{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve shop")
	}

	event := events.InboundEvent{
		ShopID:     shop.ID,
		Topic:      topic,
		ResourceID: resourceID(payload, deliveryID),
		Payload:    json.RawMessage(payload),
		ReceivedAt: time.Now().UTC(),
	}

	// Reject bodies the worker would not be able to decode, so the platform
	// retries against us instead of poisoning the topic.
	if _, err := events.DecodePayload(event.Topic, event.Payload); err != nil {
		return events.InboundEvent{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return events.InboundEvent{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "serialize event")
	}

	attrs := map[string]string{
		"topic":   string(event.Topic),
		"shop_id": event.ShopID.String(),
	}
	msgID, err := s.publisher.PublishEvent(ctx, data, attrs)
	if err != nil {
		return events.InboundEvent{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish event")
	}

	ctx = s.log.WithShopID(ctx, shop.ID.String())
	ctx = s.log.WithTopic(ctx, string(event.Topic))
	ctx = s.log.WithField(ctx, "message_id", msgID)
	s.log.Info(ctx, "webhook accepted")

	return event, nil
}

// resourceID pulls the upstream resource identifier from the payload body,
// falling back to the delivery header when the body has no id field.
func resourceID(payload []byte, deliveryID string) string {
	var probe struct {
		ID any `json:"id"`
	}
	if err := json.Unmarshal(payload, &probe); err == nil && probe.ID != nil {
		switch v := probe.ID.(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	if deliveryID != "" {
		return deliveryID
	}
	return uuid.NewString()
}
