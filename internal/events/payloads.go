package events

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stockbridge-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockbridge-backend/pkg/errors"
)

// The upstream webhook bodies are decoded into a tagged union keyed by topic.
// Each variant carries only the fields the engine actually inspects, so
// volatile fields (updated_at and friends) never reach business logic or the
// payload hash.

// LineItem is one ordered line in an order snapshot.
type LineItem struct {
	VariantID           string          `json:"variant_id"`
	Quantity            int             `json:"quantity"`
	FulfillableQuantity int             `json:"fulfillable_quantity"`
	Price               decimal.Decimal `json:"price"`
}

// RefundLine is one refunded line with its restock instruction.
type RefundLine struct {
	VariantID   string            `json:"variant_id"`
	Quantity    int               `json:"quantity"`
	RestockType enums.RestockType `json:"restock_type"`
}

// OrderPayload covers orders/create, orders/paid, orders/cancelled,
// orders/edited and refunds/create. For edits, PreviousLineItems holds the
// pre-edit snapshot and LineItems the post-edit one.
type OrderPayload struct {
	OrderID           string                `json:"id"`
	FinancialStatus   enums.FinancialStatus `json:"financial_status"`
	LineItems         []LineItem            `json:"line_items"`
	PreviousLineItems []LineItem            `json:"previous_line_items,omitempty"`
	RefundLines       []RefundLine          `json:"refund_line_items,omitempty"`
}

// InventoryPayload covers inventory_levels/update: an absolute quantity set
// at one location.
type InventoryPayload struct {
	InventoryItemID string `json:"inventory_item_id"`
	Available       int    `json:"available"`
	LocationID      string `json:"location_id,omitempty"`
}

// ProductVariant is the slice of a product body the engine cares about.
type ProductVariant struct {
	VariantID         string          `json:"id"`
	SKU               string          `json:"sku"`
	Price             decimal.Decimal `json:"price"`
	InventoryQuantity int             `json:"inventory_quantity"`
}

// ProductPayload covers products/create, products/update and products/delete.
type ProductPayload struct {
	ProductID string           `json:"id"`
	Variants  []ProductVariant `json:"variants,omitempty"`
}

// AppPayload covers app/uninstalled.
type AppPayload struct {
	ShopDomain string `json:"shop_domain"`
}

// DecodePayload parses the raw webhook body into the typed variant for the
// topic. Unknown fields are dropped by encoding/json, which is exactly the
// normalization the dedup hash relies on.
func DecodePayload(topic enums.WebhookTopic, raw json.RawMessage) (any, error) {
	decode := func(dst any) (any, error) {
		if len(raw) == 0 {
			return dst, nil
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("decode %s payload", topic))
		}
		return dst, nil
	}

	switch topic {
	case enums.TopicOrdersCreate, enums.TopicOrdersPaid, enums.TopicOrdersCancelled,
		enums.TopicOrdersEdited, enums.TopicRefundsCreate:
		return decode(&OrderPayload{})
	case enums.TopicInventoryLevelsUpdate:
		return decode(&InventoryPayload{})
	case enums.TopicProductsCreate, enums.TopicProductsUpdate, enums.TopicProductsDelete:
		return decode(&ProductPayload{})
	case enums.TopicAppUninstalled:
		return decode(&AppPayload{})
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported topic %q", topic))
}
