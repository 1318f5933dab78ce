// Package consumer drains the inbound-events subscription and hands each
// event to the sync engine. Ack/nack policy: handler success and permanent
// failures ack; retryable failures nack so the subscription redelivers.
package consumer

import (
	"context"
	"encoding/json"
	"errors"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/stockbridge-backend/internal/events"
	pkgerrors "github.com/angelmondragon/stockbridge-backend/pkg/errors"
	"github.com/angelmondragon/stockbridge-backend/pkg/logger"
)

type eventHandler interface {
	HandleEvent(ctx context.Context, event events.InboundEvent) (string, error)
}

type Consumer struct {
	handler      eventHandler
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

func NewConsumer(handler eventHandler, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if handler == nil {
		return nil, errors.New("event handler is required")
	}
	if subscription == nil {
		return nil, errors.New("events subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{handler: handler, subscription: subscription, logg: logg}, nil
}

// Run processes messages until the context is canceled or the subscription errors.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"topic_attr": msg.Attributes["topic"],
	})

	var event events.InboundEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		// Undecodable messages never become decodable; drop them.
		c.logg.Error(logCtx, "failed to unmarshal event", err)
		return processResult{ack: true}
	}

	logCtx = c.logg.WithShopID(logCtx, event.ShopID.String())
	logCtx = c.logg.WithTopic(logCtx, string(event.Topic))

	outcome, err := c.handler.HandleEvent(logCtx, event)
	if err != nil {
		if pkgerrors.IsRetryable(err) {
			c.logg.Error(logCtx, "event handling failed, will retry", err)
			return processResult{nack: true}
		}
		c.logg.Error(logCtx, "event handling failed permanently", err)
		return processResult{ack: true}
	}

	logCtx = c.logg.WithField(logCtx, "outcome", outcome)
	c.logg.Info(logCtx, "event processed")
	return processResult{ack: true}
}
