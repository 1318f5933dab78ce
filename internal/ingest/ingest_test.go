package ingest

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockbridge-backend/pkg/db/models"
	"github.com/angelmondragon/stockbridge-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockbridge-backend/pkg/errors"
	"github.com/angelmondragon/stockbridge-backend/pkg/logger"
)

type fakeShops struct {
	byDomain map[string]*models.Shop
}

func (f *fakeShops) FindByDomain(_ context.Context, domain string) (*models.Shop, error) {
	if shop, ok := f.byDomain[domain]; ok {
		return shop, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakePublisher struct {
	data  [][]byte
	attrs []map[string]string
	err   error
}

func (f *fakePublisher) PublishEvent(_ context.Context, data []byte, attrs map[string]string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.data = append(f.data, data)
	f.attrs = append(f.attrs, attrs)
	return "msg-1", nil
}

func testService(t *testing.T, shops *fakeShops, pub *fakePublisher) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Shops:     shops,
		Publisher: pub,
		Log:       logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func registeredShop() (*fakeShops, *models.Shop) {
	shop := &models.Shop{ID: uuid.New(), Domain: "reseller.example.com", Role: enums.ShopRoleDestination}
	return &fakeShops{byDomain: map[string]*models.Shop{shop.Domain: shop}}, shop
}

func TestAcceptPublishesOrderEvent(t *testing.T) {
	shops, shop := registeredShop()
	pub := &fakePublisher{}
	svc := testService(t, shops, pub)

	body := `{"id": 4521, "financial_status": "paid", "line_items": [{"variant_id": "v1", "quantity": 2, "fulfillable_quantity": 2, "price": "19.99"}]}`
	event, err := svc.Accept(context.Background(), shop.Domain, "orders/create", "delivery-9", []byte(body))
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}

	if event.ShopID != shop.ID {
		t.Fatalf("expected shop %s, got %s", shop.ID, event.ShopID)
	}
	if event.Topic != enums.TopicOrdersCreate {
		t.Fatalf("unexpected topic %q", event.Topic)
	}
	if event.ResourceID != "4521" {
		t.Fatalf("expected resource id from body, got %q", event.ResourceID)
	}
	if len(pub.data) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(pub.data))
	}
	if pub.attrs[0]["topic"] != "orders/create" {
		t.Fatalf("unexpected topic attribute %q", pub.attrs[0]["topic"])
	}
	if pub.attrs[0]["shop_id"] != shop.ID.String() {
		t.Fatalf("unexpected shop attribute %q", pub.attrs[0]["shop_id"])
	}
}

func TestAcceptFallsBackToDeliveryID(t *testing.T) {
	shops, shop := registeredShop()
	pub := &fakePublisher{}
	svc := testService(t, shops, pub)

	event, err := svc.Accept(context.Background(), shop.Domain, "app/uninstalled", "delivery-7", []byte(`{"shop_domain": "reseller.example.com"}`))
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if event.ResourceID != "delivery-7" {
		t.Fatalf("expected delivery id fallback, got %q", event.ResourceID)
	}
}

func TestAcceptRejectsUnknownTopic(t *testing.T) {
	shops, shop := registeredShop()
	svc := testService(t, shops, &fakePublisher{})

	_, err := svc.Accept(context.Background(), shop.Domain, "carts/update", "d1", []byte(`{}`))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAcceptRejectsUnknownDomain(t *testing.T) {
	shops, _ := registeredShop()
	svc := testService(t, shops, &fakePublisher{})

	_, err := svc.Accept(context.Background(), "stranger.example.com", "orders/create", "d1", []byte(`{"id": 1, "line_items": []}`))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestAcceptRejectsMalformedPayload(t *testing.T) {
	shops, shop := registeredShop()
	pub := &fakePublisher{}
	svc := testService(t, shops, pub)

	_, err := svc.Accept(context.Background(), shop.Domain, "orders/create", "d1", []byte(`{"line_items": "nope"}`))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(pub.data) != 0 {
		t.Fatal("malformed payload must not be published")
	}
}

func TestAcceptWrapsPublishFailure(t *testing.T) {
	shops, shop := registeredShop()
	pub := &fakePublisher{err: context.DeadlineExceeded}
	svc := testService(t, shops, pub)

	_, err := svc.Accept(context.Background(), shop.Domain, "orders/create", "d1", []byte(`{"id": 1, "line_items": []}`))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
