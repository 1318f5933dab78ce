package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockbridge-backend/pkg/enums"
)

// SyncOutcome is an append-only audit row describing one propagation attempt.
type SyncOutcome struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConnectionID      *uuid.UUID        `gorm:"column:connection_id;type:uuid;index"`
	DestinationShopID uuid.UUID         `gorm:"column:destination_shop_id;type:uuid;not null;index"`
	Kind              enums.OutcomeKind `gorm:"column:kind;not null"`
	VariantCount      int               `gorm:"column:variant_count;not null;default:0"`
	Detail            *string           `gorm:"column:detail"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
}
