package engine

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockbridge-backend/internal/propagation"
	"github.com/angelmondragon/stockbridge-backend/internal/ratelimit"
	"github.com/angelmondragon/stockbridge-backend/pkg/db/models"
	"github.com/angelmondragon/stockbridge-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockbridge-backend/pkg/errors"
	"github.com/angelmondragon/stockbridge-backend/pkg/logger"
	"github.com/angelmondragon/stockbridge-backend/pkg/remote"
)

type stubRemoteAPI struct {
	got    []remote.InventoryQuantity
	result *remote.WriteResult
	err    error
}

func (s *stubRemoteAPI) SetInventoryQuantities(_ context.Context, _ remote.Credentials, quantities []remote.InventoryQuantity) (*remote.WriteResult, error) {
	s.got = quantities
	return s.result, s.err
}

type stubItemResolver struct {
	items map[string]string
	errs  map[string]error
}

func (s *stubItemResolver) Resolve(_ context.Context, _ string, _ remote.Credentials, variantID string) (string, error) {
	if err, ok := s.errs[variantID]; ok {
		return "", err
	}
	return s.items[variantID], nil
}

func writerTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestRemoteWriterTranslatesAndObserves(t *testing.T) {
	shopID := uuid.New()
	shops := &fakeShops{shop: &models.Shop{ID: shopID, Domain: "dest.example.com", AccessToken: "tok"}}
	limits := ratelimit.NewController(ratelimit.Options{})
	api := &stubRemoteAPI{result: &remote.WriteResult{RateLimit: remote.RateLimitInfo{
		CallLimit: "39/40",
		Budget:    &remote.CostBudget{CurrentlyAvailable: 80, RestoreRate: 50, MaximumAvailable: 1000},
	}}}

	writer, err := NewRemoteWriter(api, &stubItemResolver{items: map[string]string{"dst-v1": "item-1"}}, shops, limits, writerTestLogger(), nil)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	err = writer.SetInventoryQuantities(context.Background(), shopID.String(), []propagation.PendingInventoryUpdate{
		{DestinationShopID: shopID.String(), DestinationVariantID: "dst-v1", Quantity: 92, LocationID: "42"},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	if len(api.got) != 1 || api.got[0].InventoryItemID != "item-1" || api.got[0].Available != 92 {
		t.Fatalf("unexpected quantities: %+v", api.got)
	}
	// Telemetry fed back: 39/40 with a low cost budget means approaching.
	if got := limits.Status(shopID.String()); got != enums.RateLimitApproaching {
		t.Fatalf("status %s, want approaching", got)
	}
}

func TestRemoteWriterRejectsMissingCredentials(t *testing.T) {
	shopID := uuid.New()
	shops := &fakeShops{shop: &models.Shop{ID: shopID, Domain: "dest.example.com"}}
	writer, err := NewRemoteWriter(&stubRemoteAPI{}, &stubItemResolver{}, shops, ratelimit.NewController(ratelimit.Options{}), writerTestLogger(), nil)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	err = writer.SetInventoryQuantities(context.Background(), shopID.String(), []propagation.PendingInventoryUpdate{
		{DestinationVariantID: "dst-v1", Quantity: 1},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict code, got %v", err)
	}
}

func TestRemoteWriterSkipsUnresolvableVariant(t *testing.T) {
	shopID := uuid.New()
	shops := &fakeShops{shop: &models.Shop{ID: shopID, Domain: "dest.example.com", AccessToken: "tok"}}
	api := &stubRemoteAPI{result: &remote.WriteResult{}}
	items := &stubItemResolver{
		items: map[string]string{"dst-v2": "item-2"},
		errs:  map[string]error{"dst-v1": pkgerrors.New(pkgerrors.CodeNotFound, "variant not found on destination shop")},
	}

	writer, err := NewRemoteWriter(api, items, shops, ratelimit.NewController(ratelimit.Options{}), writerTestLogger(), nil)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	err = writer.SetInventoryQuantities(context.Background(), shopID.String(), []propagation.PendingInventoryUpdate{
		{DestinationVariantID: "dst-v1", Quantity: 3},
		{DestinationVariantID: "dst-v2", Quantity: 8},
	})
	if err != nil {
		t.Fatalf("sibling updates must proceed past a dropped one: %v", err)
	}
	if len(api.got) != 1 || api.got[0].InventoryItemID != "item-2" || api.got[0].Available != 8 {
		t.Fatalf("expected only the resolvable sibling written, got %+v", api.got)
	}
}

func TestRemoteWriterFailsWhenEveryUpdateDropped(t *testing.T) {
	shopID := uuid.New()
	shops := &fakeShops{shop: &models.Shop{ID: shopID, Domain: "dest.example.com", AccessToken: "tok"}}
	api := &stubRemoteAPI{}
	items := &stubItemResolver{errs: map[string]error{
		"dst-v1": pkgerrors.New(pkgerrors.CodeNotFound, "variant not found on destination shop"),
	}}

	writer, err := NewRemoteWriter(api, items, shops, ratelimit.NewController(ratelimit.Options{}), writerTestLogger(), nil)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	err = writer.SetInventoryQuantities(context.Background(), shopID.String(), []propagation.PendingInventoryUpdate{
		{DestinationVariantID: "dst-v1", Quantity: 3},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error when nothing survives, got %v", err)
	}
	if len(api.got) != 0 {
		t.Fatalf("no write should be issued for an empty batch, got %+v", api.got)
	}
}

func TestRemoteWriterAbortsOnRetryableResolveFailure(t *testing.T) {
	shopID := uuid.New()
	shops := &fakeShops{shop: &models.Shop{ID: shopID, Domain: "dest.example.com", AccessToken: "tok"}}
	api := &stubRemoteAPI{}
	items := &stubItemResolver{
		items: map[string]string{"dst-v2": "item-2"},
		errs:  map[string]error{"dst-v1": pkgerrors.New(pkgerrors.CodeDependency, "item lookup unavailable")},
	}

	writer, err := NewRemoteWriter(api, items, shops, ratelimit.NewController(ratelimit.Options{}), writerTestLogger(), nil)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	err = writer.SetInventoryQuantities(context.Background(), shopID.String(), []propagation.PendingInventoryUpdate{
		{DestinationVariantID: "dst-v1", Quantity: 3},
		{DestinationVariantID: "dst-v2", Quantity: 8},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("a transient lookup failure must abort for retry, got %v", err)
	}
	if len(api.got) != 0 {
		t.Fatalf("nothing should be written when the batch aborts, got %+v", api.got)
	}
}

func TestRemoteWriterPropagatesThrottleError(t *testing.T) {
	shopID := uuid.New()
	shops := &fakeShops{shop: &models.Shop{ID: shopID, Domain: "dest.example.com", AccessToken: "tok"}}
	limits := ratelimit.NewController(ratelimit.Options{})
	api := &stubRemoteAPI{
		result: &remote.WriteResult{RateLimit: remote.RateLimitInfo{CallLimit: "40/40"}},
		err:    pkgerrors.New(pkgerrors.CodeRateLimit, "throttled"),
	}

	writer, err := NewRemoteWriter(api, &stubItemResolver{items: map[string]string{"dst-v1": "item-1"}}, shops, limits, writerTestLogger(), nil)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	err = writer.SetInventoryQuantities(context.Background(), shopID.String(), []propagation.PendingInventoryUpdate{
		{DestinationVariantID: "dst-v1", Quantity: 1},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeRateLimit {
		t.Fatalf("expected rate limit code, got %v", err)
	}
	// Header telemetry still recorded despite the error.
	if got := limits.Status(shopID.String()); got != enums.RateLimitThrottled {
		t.Fatalf("status %s, want throttled", got)
	}
}
