package enums

import "fmt"

// OrderEventKind is the order lifecycle transition carried by a webhook.
type OrderEventKind string

const (
	OrderCreated   OrderEventKind = "created"
	OrderPaid      OrderEventKind = "paid"
	OrderCancelled OrderEventKind = "cancelled"
	OrderRefunded  OrderEventKind = "refunded"
	OrderEdited    OrderEventKind = "edited"
)

var validOrderEventKinds = []OrderEventKind{
	OrderCreated,
	OrderPaid,
	OrderCancelled,
	OrderRefunded,
	OrderEdited,
}

// IsValid reports whether the kind is a known lifecycle transition.
func (k OrderEventKind) IsValid() bool {
	for _, candidate := range validOrderEventKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseOrderEventKind converts raw input into an OrderEventKind.
func ParseOrderEventKind(value string) (OrderEventKind, error) {
	for _, candidate := range validOrderEventKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order event kind %q", value)
}

// FinancialStatus mirrors the upstream order's payment state.
type FinancialStatus string

const (
	FinancialPending           FinancialStatus = "pending"
	FinancialPaid              FinancialStatus = "paid"
	FinancialRefunded          FinancialStatus = "refunded"
	FinancialPartiallyRefunded FinancialStatus = "partially_refunded"
	FinancialVoided            FinancialStatus = "voided"
)

// Settled reports whether money ever changed hands for the order.
func (s FinancialStatus) Settled() bool {
	return s == FinancialPaid || s == FinancialRefunded || s == FinancialPartiallyRefunded
}

// RestockType is the upstream platform's per-refund-line restock instruction.
type RestockType string

const (
	RestockReturn RestockType = "return"
	RestockCancel RestockType = "cancel"
	RestockNone   RestockType = "no_restock"
)
