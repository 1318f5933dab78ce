package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockbridge-backend/pkg/enums"
)

// InboundEvent is one webhook delivery from the upstream platform. Events are
// immutable and live only for the duration of processing; the dedup record is
// the only trace kept afterwards.
type InboundEvent struct {
	ShopID     uuid.UUID          `json:"shop_id"`
	Topic      enums.WebhookTopic `json:"topic"`
	ResourceID string             `json:"resource_id"`
	Payload    json.RawMessage    `json:"payload"`
	ReceivedAt time.Time          `json:"received_at"`
}

// ResourceType infers the upstream resource class from the topic.
func (e InboundEvent) ResourceType() enums.ResourceType {
	switch e.Topic {
	case enums.TopicProductsCreate, enums.TopicProductsUpdate, enums.TopicProductsDelete:
		return enums.ResourceProduct
	case enums.TopicInventoryLevelsUpdate:
		return enums.ResourceInventory
	case enums.TopicOrdersCreate, enums.TopicOrdersPaid, enums.TopicOrdersCancelled,
		enums.TopicOrdersEdited, enums.TopicRefundsCreate:
		return enums.ResourceOrder
	case enums.TopicAppUninstalled:
		return enums.ResourceApp
	}
	return enums.ResourceProduct
}

// Priority ranks the event for processing order. Uninstalls and new orders
// jump the line; catalog churn waits.
func (e InboundEvent) Priority() enums.EventPriority {
	switch e.Topic {
	case enums.TopicAppUninstalled, enums.TopicOrdersCreate:
		return enums.PriorityCritical
	case enums.TopicInventoryLevelsUpdate, enums.TopicOrdersPaid,
		enums.TopicOrdersCancelled, enums.TopicOrdersEdited, enums.TopicRefundsCreate:
		return enums.PriorityHigh
	case enums.TopicProductsUpdate:
		return enums.PriorityNormal
	default:
		return enums.PriorityLow
	}
}

// OrderEventKind maps order-resource topics onto lifecycle transitions.
// Returns false for non-order topics.
func (e InboundEvent) OrderEventKind() (enums.OrderEventKind, bool) {
	switch e.Topic {
	case enums.TopicOrdersCreate:
		return enums.OrderCreated, true
	case enums.TopicOrdersPaid:
		return enums.OrderPaid, true
	case enums.TopicOrdersCancelled:
		return enums.OrderCancelled, true
	case enums.TopicOrdersEdited:
		return enums.OrderEdited, true
	case enums.TopicRefundsCreate:
		return enums.OrderRefunded, true
	}
	return "", false
}
