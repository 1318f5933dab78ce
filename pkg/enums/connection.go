package enums

import "fmt"

// OrderTriggerPolicy governs which order lifecycle events move inventory.
type OrderTriggerPolicy string

const (
	TriggerOnCreate OrderTriggerPolicy = "on_create"
	TriggerOnPaid   OrderTriggerPolicy = "on_paid"
)

// IsValid reports whether the policy is recognized.
func (p OrderTriggerPolicy) IsValid() bool {
	return p == TriggerOnCreate || p == TriggerOnPaid
}

// ParseOrderTriggerPolicy converts raw input into an OrderTriggerPolicy.
func ParseOrderTriggerPolicy(value string) (OrderTriggerPolicy, error) {
	switch OrderTriggerPolicy(value) {
	case TriggerOnCreate:
		return TriggerOnCreate, nil
	case TriggerOnPaid:
		return TriggerOnPaid, nil
	}
	return "", fmt.Errorf("invalid order trigger policy %q", value)
}

// SyncMode selects what a connection propagates.
type SyncMode string

const (
	SyncModeFull        SyncMode = "full"
	SyncModeCatalogOnly SyncMode = "catalog_only"
)

// IsValid reports whether the mode is recognized.
func (m SyncMode) IsValid() bool {
	return m == SyncModeFull || m == SyncModeCatalogOnly
}

// ConnectionStatus is the lifecycle state of a sync connection.
type ConnectionStatus string

const (
	ConnectionActive ConnectionStatus = "active"
	ConnectionPaused ConnectionStatus = "paused"
)
