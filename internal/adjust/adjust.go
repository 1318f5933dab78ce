// Package adjust computes the quantity actually written to a downstream
// store from an authoritative upstream quantity: location filtering,
// safety-stock subtraction, and stock-buffer subtraction, plus the
// variant-mapping eligibility filter applied before any of that.
package adjust

import (
	"strings"

	"github.com/angelmondragon/stockbridge-backend/pkg/db/models"
	"github.com/angelmondragon/stockbridge-backend/pkg/enums"
)

// Pipeline evaluates one sync connection's adjustment rules.
type Pipeline struct {
	conn models.SyncConnection
}

func New(conn models.SyncConnection) Pipeline {
	return Pipeline{conn: conn}
}

// NormalizeLocationID strips any namespace prefix from a location
// identifier so "gid://commerce/Location/42" and "42" compare equal.
func NormalizeLocationID(id string) string {
	id = strings.TrimSpace(id)
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	return id
}

// LocationAllowed reports whether an event carrying eventLocationID may
// propagate through this connection. A connection without a pinned
// location accepts every event, as does an event with no location.
func (p Pipeline) LocationAllowed(eventLocationID string) bool {
	if p.conn.LocationID == nil || *p.conn.LocationID == "" {
		return true
	}
	if eventLocationID == "" {
		return true
	}
	return NormalizeLocationID(*p.conn.LocationID) == NormalizeLocationID(eventLocationID)
}

// Available applies the connection's reserved-quantity rules to an
// authoritative quantity. Safety stock always applies; the stock buffer
// additionally applies on order-triggered paths. Each subtraction is
// floor-clamped at zero on its own, so two large reserves can never
// combine into a negative availability.
func (p Pipeline) Available(quantity int, orderTriggered bool) int {
	available := clampSubtract(quantity, p.conn.SafetyStock)
	if orderTriggered {
		available = clampSubtract(available, p.conn.StockBuffer)
	}
	return available
}

// Eligible reports whether a variant mapping participates in sync.
func (p Pipeline) Eligible(m models.VariantMapping) bool {
	return m.SyncEnabled && m.Status == enums.MappingActive
}

// FilterMappings drops mappings that are disabled or not active.
func (p Pipeline) FilterMappings(mappings []models.VariantMapping) []models.VariantMapping {
	eligible := make([]models.VariantMapping, 0, len(mappings))
	for _, m := range mappings {
		if p.Eligible(m) {
			eligible = append(eligible, m)
		}
	}
	return eligible
}

func clampSubtract(quantity, reserve int) int {
	if reserve <= 0 {
		return quantity
	}
	if quantity <= reserve {
		return 0
	}
	return quantity - reserve
}
