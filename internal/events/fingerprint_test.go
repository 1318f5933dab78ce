package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockbridge-backend/pkg/enums"
)

func orderEvent(t *testing.T, shopID uuid.UUID, topic enums.WebhookTopic, resourceID, body string) InboundEvent {
	t.Helper()
	return InboundEvent{
		ShopID:     shopID,
		Topic:      topic,
		ResourceID: resourceID,
		Payload:    json.RawMessage(body),
		ReceivedAt: time.Now(),
	}
}

func TestIdempotencyKeyStableForIdenticalTuples(t *testing.T) {
	shopID := uuid.New()
	body := `{"id":"1001","financial_status":"paid","line_items":[{"variant_id":"v1","quantity":2,"price":"19.99"}]}`

	a := orderEvent(t, shopID, enums.TopicOrdersPaid, "1001", body)
	b := orderEvent(t, shopID, enums.TopicOrdersPaid, "1001", body)

	keyA, err := a.IdempotencyKey()
	if err != nil {
		t.Fatalf("IdempotencyKey: %v", err)
	}
	keyB, err := b.IdempotencyKey()
	if err != nil {
		t.Fatalf("IdempotencyKey: %v", err)
	}
	if keyA != keyB {
		t.Fatalf("identical tuples must produce identical keys: %s vs %s", keyA, keyB)
	}
}

func TestIdempotencyKeyChangesPerField(t *testing.T) {
	shopID := uuid.New()
	body := `{"id":"1001","financial_status":"paid","line_items":[{"variant_id":"v1","quantity":2,"price":"19.99"}]}`
	base := orderEvent(t, shopID, enums.TopicOrdersPaid, "1001", body)
	baseKey, err := base.IdempotencyKey()
	if err != nil {
		t.Fatalf("IdempotencyKey: %v", err)
	}

	variants := map[string]InboundEvent{
		"different shop":     orderEvent(t, uuid.New(), enums.TopicOrdersPaid, "1001", body),
		"different topic":    orderEvent(t, shopID, enums.TopicOrdersCreate, "1001", body),
		"different resource": orderEvent(t, shopID, enums.TopicOrdersPaid, "1002", body),
		"different payload":  orderEvent(t, shopID, enums.TopicOrdersPaid, "1001", `{"id":"1001","financial_status":"paid","line_items":[{"variant_id":"v1","quantity":3,"price":"19.99"}]}`),
	}
	for name, event := range variants {
		key, err := event.IdempotencyKey()
		if err != nil {
			t.Fatalf("%s: IdempotencyKey: %v", name, err)
		}
		if key == baseKey {
			t.Fatalf("%s: expected a different key", name)
		}
	}
}

func TestPayloadHashIgnoresVolatileFields(t *testing.T) {
	shopID := uuid.New()
	original := `{"id":"1001","financial_status":"paid","updated_at":"2024-01-01T00:00:00Z","line_items":[{"variant_id":"v1","quantity":2,"price":"19.99"}]}`
	redelivered := `{"id":"1001","financial_status":"paid","updated_at":"2024-06-30T10:11:12Z","line_items":[{"variant_id":"v1","quantity":2,"price":"19.99"}]}`

	hashA, err := orderEvent(t, shopID, enums.TopicOrdersPaid, "1001", original).PayloadHash()
	if err != nil {
		t.Fatalf("PayloadHash: %v", err)
	}
	hashB, err := orderEvent(t, shopID, enums.TopicOrdersPaid, "1001", redelivered).PayloadHash()
	if err != nil {
		t.Fatalf("PayloadHash: %v", err)
	}
	if hashA != hashB {
		t.Fatal("timestamp-only changes must not change the hash")
	}
}

func TestPayloadHashTracksBusinessFields(t *testing.T) {
	shopID := uuid.New()
	base := `{"id":"1001","financial_status":"paid","line_items":[{"variant_id":"v1","quantity":2,"fulfillable_quantity":2,"price":"19.99"}]}`
	baseHash, err := orderEvent(t, shopID, enums.TopicOrdersPaid, "1001", base).PayloadHash()
	if err != nil {
		t.Fatalf("PayloadHash: %v", err)
	}

	mutations := map[string]string{
		"price":                `{"id":"1001","financial_status":"paid","line_items":[{"variant_id":"v1","quantity":2,"fulfillable_quantity":2,"price":"24.99"}]}`,
		"quantity":             `{"id":"1001","financial_status":"paid","line_items":[{"variant_id":"v1","quantity":5,"fulfillable_quantity":2,"price":"19.99"}]}`,
		"financial status":     `{"id":"1001","financial_status":"refunded","line_items":[{"variant_id":"v1","quantity":2,"fulfillable_quantity":2,"price":"19.99"}]}`,
		"fulfillable quantity": `{"id":"1001","financial_status":"paid","line_items":[{"variant_id":"v1","quantity":2,"fulfillable_quantity":0,"price":"19.99"}]}`,
	}
	for name, body := range mutations {
		hash, err := orderEvent(t, shopID, enums.TopicOrdersPaid, "1001", body).PayloadHash()
		if err != nil {
			t.Fatalf("%s: PayloadHash: %v", name, err)
		}
		if hash == baseHash {
			t.Fatalf("%s change must change the hash", name)
		}
	}
}

func TestResourceTypeAndPriority(t *testing.T) {
	cases := []struct {
		topic    enums.WebhookTopic
		resource enums.ResourceType
		priority enums.EventPriority
	}{
		{enums.TopicAppUninstalled, enums.ResourceApp, enums.PriorityCritical},
		{enums.TopicOrdersCreate, enums.ResourceOrder, enums.PriorityCritical},
		{enums.TopicInventoryLevelsUpdate, enums.ResourceInventory, enums.PriorityHigh},
		{enums.TopicOrdersPaid, enums.ResourceOrder, enums.PriorityHigh},
		{enums.TopicProductsUpdate, enums.ResourceProduct, enums.PriorityNormal},
		{enums.TopicProductsCreate, enums.ResourceProduct, enums.PriorityLow},
		{enums.TopicProductsDelete, enums.ResourceProduct, enums.PriorityLow},
	}
	for _, tc := range cases {
		event := InboundEvent{Topic: tc.topic}
		if got := event.ResourceType(); got != tc.resource {
			t.Fatalf("%s: resource %q, want %q", tc.topic, got, tc.resource)
		}
		if got := event.Priority(); got != tc.priority {
			t.Fatalf("%s: priority %v, want %v", tc.topic, got, tc.priority)
		}
	}
}

func TestDecodePayloadRejectsUnknownTopic(t *testing.T) {
	if _, err := DecodePayload(enums.WebhookTopic("bogus/topic"), json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected error for unknown topic")
	}
}
