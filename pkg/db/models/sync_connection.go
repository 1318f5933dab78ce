package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockbridge-backend/pkg/enums"
)

// SyncConnection links a source shop to one destination shop and carries the
// business policy applied when propagating inventory between them.
type SyncConnection struct {
	ID                uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SourceShopID      uuid.UUID                `gorm:"column:source_shop_id;type:uuid;not null;index"`
	DestinationShopID uuid.UUID                `gorm:"column:destination_shop_id;type:uuid;not null;index"`
	TriggerPolicy     enums.OrderTriggerPolicy `gorm:"column:trigger_policy;not null;default:on_create"`
	SyncMode          enums.SyncMode           `gorm:"column:sync_mode;not null;default:full"`
	SafetyStock       int                      `gorm:"column:safety_stock;not null;default:0"`
	StockBuffer       int                      `gorm:"column:stock_buffer;not null;default:0"`
	LocationID        *string                  `gorm:"column:location_id"`
	Status            enums.ConnectionStatus   `gorm:"column:status;not null;default:active"`
	CreatedAt         time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
