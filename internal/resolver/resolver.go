package resolver

import (
	"sort"

	"github.com/angelmondragon/stockbridge-backend/internal/events"
	"github.com/angelmondragon/stockbridge-backend/pkg/enums"
)

// Delta is a signed per-variant inventory adjustment. Negative values consume
// stock, positive values restock.
type Delta struct {
	VariantID string
	Quantity  int
}

// Policy is the slice of a connection's configuration the resolver needs.
type Policy struct {
	Trigger  enums.OrderTriggerPolicy
	SyncMode enums.SyncMode
}

// ResolveOrder maps an order lifecycle event onto inventory deltas under the
// connection's trigger policy. Catalog-only connections never move inventory
// from order activity, so they are rejected before policy evaluation.
func ResolveOrder(policy Policy, kind enums.OrderEventKind, payload events.OrderPayload) []Delta {
	if policy.SyncMode == enums.SyncModeCatalogOnly {
		return nil
	}

	switch policy.Trigger {
	case enums.TriggerOnPaid:
		return resolveOnPaid(kind, payload)
	default:
		return resolveOnCreate(kind, payload)
	}
}

func resolveOnCreate(kind enums.OrderEventKind, payload events.OrderPayload) []Delta {
	switch kind {
	case enums.OrderCreated, enums.OrderPaid:
		return lineDeltas(payload.LineItems, -1)
	case enums.OrderCancelled:
		return lineDeltas(payload.LineItems, +1)
	case enums.OrderRefunded:
		return refundDeltas(payload.RefundLines)
	case enums.OrderEdited:
		return editDeltas(payload.PreviousLineItems, payload.LineItems)
	}
	return nil
}

func resolveOnPaid(kind enums.OrderEventKind, payload events.OrderPayload) []Delta {
	switch kind {
	case enums.OrderCreated:
		// No decrement until payment lands.
		return nil
	case enums.OrderPaid:
		return lineDeltas(payload.LineItems, -1)
	case enums.OrderCancelled:
		// An order cancelled before payment never decremented anything,
		// so restocking it would inflate stock.
		if !payload.FinancialStatus.Settled() {
			return nil
		}
		return lineDeltas(payload.LineItems, +1)
	case enums.OrderRefunded:
		return refundDeltas(payload.RefundLines)
	case enums.OrderEdited:
		// Pre-payment edits adjust a decrement that does not exist yet.
		if payload.FinancialStatus != enums.FinancialPaid {
			return nil
		}
		return editDeltas(payload.PreviousLineItems, payload.LineItems)
	}
	return nil
}

func lineDeltas(items []events.LineItem, sign int) []Delta {
	deltas := make([]Delta, 0, len(items))
	for _, item := range items {
		if item.VariantID == "" || item.Quantity == 0 {
			continue
		}
		deltas = append(deltas, Delta{VariantID: item.VariantID, Quantity: sign * item.Quantity})
	}
	return deltas
}

func refundDeltas(lines []events.RefundLine) []Delta {
	deltas := make([]Delta, 0, len(lines))
	for _, line := range lines {
		if line.VariantID == "" || line.Quantity == 0 {
			continue
		}
		if line.RestockType == enums.RestockNone {
			continue
		}
		deltas = append(deltas, Delta{VariantID: line.VariantID, Quantity: line.Quantity})
	}
	return deltas
}

// editDeltas diffs two full line-item snapshots. Quantities are summed per
// variant in each snapshot and the delta is -(current - previous): ordering
// more units decrements further, removing items restocks.
func editDeltas(previous, current []events.LineItem) []Delta {
	perVariant := map[string]int{}
	for _, item := range previous {
		if item.VariantID == "" {
			continue
		}
		perVariant[item.VariantID] -= item.Quantity
	}
	for _, item := range current {
		if item.VariantID == "" {
			continue
		}
		perVariant[item.VariantID] += item.Quantity
	}

	variantIDs := make([]string, 0, len(perVariant))
	for variantID, changed := range perVariant {
		if changed == 0 {
			continue
		}
		variantIDs = append(variantIDs, variantID)
	}
	sort.Strings(variantIDs)

	deltas := make([]Delta, 0, len(variantIDs))
	for _, variantID := range variantIDs {
		deltas = append(deltas, Delta{VariantID: variantID, Quantity: -perVariant[variantID]})
	}
	return deltas
}

// Apply computes the new authoritative quantity. The zero floor is oversold
// protection, not an error.
func Apply(current, delta int) int {
	next := current + delta
	if next < 0 {
		return 0
	}
	return next
}
