package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"

	"github.com/angelmondragon/stockbridge-backend/api/responses"
	"github.com/angelmondragon/stockbridge-backend/internal/events"
	"github.com/angelmondragon/stockbridge-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/stockbridge-backend/pkg/errors"
	"github.com/angelmondragon/stockbridge-backend/pkg/logger"
)

const (
	headerTopic      = "X-Api-Topic"
	headerShopDomain = "X-Api-Shop-Domain"
	headerDeliveryID = "X-Api-Webhook-Id"
	headerHMAC       = "X-Api-Hmac-Sha256"
)

// IngestService accepts a verified delivery for asynchronous processing.
type IngestService interface {
	Accept(ctx context.Context, domain, topic, deliveryID string, payload []byte) (events.InboundEvent, error)
}

// CommerceWebhook receives platform webhook deliveries. The body signature is
// verified before anything else is read; a bad signature is indistinguishable
// from a missing one.
func CommerceWebhook(svc IngestService, cfg config.WebhookConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ingest service unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if !validateSignature(payload, cfg.SharedSecret, r.Header.Get(headerHMAC)) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid webhook signature"))
			return
		}

		event, err := svc.Accept(
			ctx,
			r.Header.Get(headerShopDomain),
			r.Header.Get(headerTopic),
			r.Header.Get(headerDeliveryID),
			payload,
		)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{
			"topic":       string(event.Topic),
			"resource_id": event.ResourceID,
		})
	}
}

func validateSignature(payload []byte, secret, header string) bool {
	if header == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}
