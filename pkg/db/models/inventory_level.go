package models

import "time"

// InventoryLevel is the authoritative quantity for a source variant; every
// downstream quantity is derived from it. Only the delta resolver and raw
// inventory-set events mutate this row.
type InventoryLevel struct {
	SourceVariantID string     `gorm:"column:source_variant_id;primaryKey"`
	Quantity        int        `gorm:"column:quantity;not null;default:0"`
	LastSyncedAt    *time.Time `gorm:"column:last_synced_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
