package gate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockbridge-backend/internal/events"
	"github.com/angelmondragon/stockbridge-backend/pkg/enums"
)

type fakeDedupStore struct {
	data      map[string]string
	lastTTL   time.Duration
	existsErr error
	setErr    error
}

func newFakeDedupStore() *fakeDedupStore {
	return &fakeDedupStore{data: make(map[string]string)}
}

func (f *fakeDedupStore) Exists(_ context.Context, key string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.data[key]
	return ok, nil
}

func (f *fakeDedupStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.setErr != nil {
		return false, f.setErr
	}
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = value.(string)
	f.lastTTL = ttl
	return true, nil
}

func (f *fakeDedupStore) DedupKey(scope, id string) string {
	return "sb:dedup:" + scope + ":" + id
}

func (f *fakeDedupStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func testEvent() events.InboundEvent {
	return events.InboundEvent{
		ShopID:     uuid.MustParse("6f9619ff-8b86-4d01-b42d-00cf4fc964ff"),
		Topic:      enums.TopicOrdersCreate,
		ResourceID: "1001",
		Payload:    json.RawMessage(`{"id":"1001","financial_status":"pending","line_items":[{"variant_id":"v1","quantity":3}]}`),
		ReceivedAt: time.Now(),
	}
}

func TestProcessInvokesHandlerOncePerEvent(t *testing.T) {
	store := newFakeDedupStore()
	g, err := New(store, 24*time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	calls := 0
	handler := func(context.Context) (string, error) {
		calls++
		return "applied", nil
	}

	skipped, err := g.Process(context.Background(), testEvent(), handler)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if skipped {
		t.Fatal("first delivery must not be skipped")
	}

	skipped, err = g.Process(context.Background(), testEvent(), handler)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !skipped {
		t.Fatal("second delivery must be skipped")
	}
	if calls != 1 {
		t.Fatalf("handler called %d times, want 1", calls)
	}
	if store.lastTTL != 24*time.Hour {
		t.Fatalf("unexpected ttl %v", store.lastTTL)
	}
}

func TestProcessHandlerFailureLeavesNoRecord(t *testing.T) {
	store := newFakeDedupStore()
	g, err := New(store, time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	calls := 0
	boom := errors.New("downstream write failed")
	failing := func(context.Context) (string, error) {
		calls++
		return "", boom
	}

	if _, err := g.Process(context.Background(), testEvent(), failing); !errors.Is(err, boom) {
		t.Fatalf("expected handler error to propagate, got %v", err)
	}
	if len(store.data) != 0 {
		t.Fatal("failed handler must leave no dedup record")
	}

	// A retry with the same event reprocesses it.
	succeeding := func(context.Context) (string, error) {
		calls++
		return "applied", nil
	}
	skipped, err := g.Process(context.Background(), testEvent(), succeeding)
	if err != nil {
		t.Fatalf("Process retry: %v", err)
	}
	if skipped {
		t.Fatal("retry after failure must not be skipped")
	}
	if calls != 2 {
		t.Fatalf("handler called %d times, want 2", calls)
	}
}

func TestProcessStoresOutcomeSnapshot(t *testing.T) {
	store := newFakeDedupStore()
	g, err := New(store, time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := g.Process(context.Background(), testEvent(), func(context.Context) (string, error) {
		return "delta -3 applied", nil
	}); err != nil {
		t.Fatalf("Process: %v", err)
	}

	key, err := g.Key(testEvent())
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	var record Record
	if err := json.Unmarshal([]byte(store.data[key]), &record); err != nil {
		t.Fatalf("stored record is not valid JSON: %v", err)
	}
	if record.Outcome != "delta -3 applied" {
		t.Fatalf("unexpected outcome %q", record.Outcome)
	}
	if record.ProcessedAt.IsZero() {
		t.Fatal("processed_at must be set")
	}
}

func TestProcessDedupStoreReadFailure(t *testing.T) {
	store := newFakeDedupStore()
	store.existsErr = errors.New("redis down")
	g, err := New(store, time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := g.Process(context.Background(), testEvent(), func(context.Context) (string, error) {
		t.Fatal("handler must not run when the dedup read fails")
		return "", nil
	}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, time.Hour); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := New(newFakeDedupStore(), 0); err == nil {
		t.Fatal("expected error for zero ttl")
	}
}
