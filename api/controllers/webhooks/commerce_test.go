package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/stockbridge-backend/internal/events"
	"github.com/angelmondragon/stockbridge-backend/pkg/config"
	"github.com/angelmondragon/stockbridge-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockbridge-backend/pkg/errors"
)

type fakeIngestService struct {
	calls int
	err   error

	domain     string
	topic      string
	deliveryID string
}

func (f *fakeIngestService) Accept(_ context.Context, domain, topic, deliveryID string, payload []byte) (events.InboundEvent, error) {
	f.calls++
	f.domain = domain
	f.topic = topic
	f.deliveryID = deliveryID
	if f.err != nil {
		return events.InboundEvent{}, f.err
	}
	return events.InboundEvent{Topic: enums.WebhookTopic(topic), ResourceID: "1001"}, nil
}

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func postWebhook(handler http.HandlerFunc, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/commerce", bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCommerceWebhookAcceptsSignedDelivery(t *testing.T) {
	svc := &fakeIngestService{}
	handler := CommerceWebhook(svc, config.WebhookConfig{SharedSecret: "secret"}, nil)

	body := []byte(`{"id": 1001, "line_items": []}`)
	rec := postWebhook(handler, body, map[string]string{
		headerHMAC:       signBody(body, "secret"),
		headerTopic:      "orders/create",
		headerShopDomain: "reseller.example.com",
		headerDeliveryID: "delivery-1",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.calls != 1 {
		t.Fatalf("expected service called once, got %d", svc.calls)
	}
	if svc.domain != "reseller.example.com" || svc.topic != "orders/create" || svc.deliveryID != "delivery-1" {
		t.Fatalf("headers not forwarded: %+v", svc)
	}
}

func TestCommerceWebhookRejectsBadSignature(t *testing.T) {
	svc := &fakeIngestService{}
	handler := CommerceWebhook(svc, config.WebhookConfig{SharedSecret: "secret"}, nil)

	body := []byte(`{"id": 1001}`)
	rec := postWebhook(handler, body, map[string]string{
		headerHMAC:  signBody(body, "wrong-secret"),
		headerTopic: "orders/create",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad signature, got %d", rec.Code)
	}
	if svc.calls != 0 {
		t.Fatal("service must not run on bad signature")
	}
}

func TestCommerceWebhookRejectsMissingSignature(t *testing.T) {
	svc := &fakeIngestService{}
	handler := CommerceWebhook(svc, config.WebhookConfig{SharedSecret: "secret"}, nil)

	rec := postWebhook(handler, []byte(`{}`), map[string]string{headerTopic: "orders/create"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing signature, got %d", rec.Code)
	}
	if svc.calls != 0 {
		t.Fatal("service must not run without signature")
	}
}

func TestCommerceWebhookPropagatesServiceErrors(t *testing.T) {
	svc := &fakeIngestService{err: pkgerrors.New(pkgerrors.CodeNotFound, "unknown shop domain")}
	handler := CommerceWebhook(svc, config.WebhookConfig{SharedSecret: "secret"}, nil)

	body := []byte(`{"id": 1}`)
	rec := postWebhook(handler, body, map[string]string{
		headerHMAC:  signBody(body, "secret"),
		headerTopic: "orders/create",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
