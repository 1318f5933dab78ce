package gate

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/angelmondragon/stockbridge-backend/internal/events"
	"github.com/angelmondragon/stockbridge-backend/pkg/redis"
)

const keyScope = "evt"

// Gate deduplicates webhook deliveries using namespaced redis keys with a TTL.
// A key is written only after the handler completes, so a failed handler
// leaves no record and the next delivery of the same event is reprocessed.
type Gate struct {
	store redis.DedupStore
	ttl   time.Duration
}

// Record is the snapshot stored once an event is processed.
type Record struct {
	Outcome     string    `json:"outcome"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Handler processes one event and reports a short outcome summary.
type Handler func(ctx context.Context) (string, error)

// New builds an idempotency gate. The TTL should exceed the platform's
// duplicate-delivery window by a comfortable margin.
func New(store redis.DedupStore, ttl time.Duration) (*Gate, error) {
	if store == nil {
		return nil, errors.New("dedup store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	return &Gate{store: store, ttl: ttl}, nil
}

// Key returns the namespaced dedup key for the event.
func (g *Gate) Key(event events.InboundEvent) (string, error) {
	fingerprint, err := event.IdempotencyKey()
	if err != nil {
		return "", err
	}
	return g.store.DedupKey(keyScope, fingerprint), nil
}

// IsProcessed reports whether the key has a processed record.
func (g *Gate) IsProcessed(ctx context.Context, key string) (bool, error) {
	return g.store.Exists(ctx, key)
}

// MarkProcessed writes the processed record. Callers must only invoke this
// after the handler has succeeded.
func (g *Gate) MarkProcessed(ctx context.Context, key, outcome string) error {
	record, err := json.Marshal(Record{Outcome: outcome, ProcessedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	_, err = g.store.SetNX(ctx, key, string(record), g.ttl)
	return err
}

// Process runs the handler exactly once per distinct event fingerprint.
// Returns skipped=true without invoking the handler when the event was
// already processed. Handler errors propagate and leave no record.
func (g *Gate) Process(ctx context.Context, event events.InboundEvent, handler Handler) (skipped bool, err error) {
	key, err := g.Key(event)
	if err != nil {
		return false, err
	}

	processed, err := g.IsProcessed(ctx, key)
	if err != nil {
		return false, err
	}
	if processed {
		return true, nil
	}

	outcome, err := handler(ctx)
	if err != nil {
		return false, err
	}

	if err := g.MarkProcessed(ctx, key, outcome); err != nil {
		return false, err
	}
	return false, nil
}
