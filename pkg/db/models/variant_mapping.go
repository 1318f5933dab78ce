package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockbridge-backend/pkg/enums"
)

// VariantMapping pairs a source variant with its counterpart on a destination
// shop. Mapping rows are created by the catalog subsystem; the sync engine
// only ever reads them.
type VariantMapping struct {
	ID                   uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConnectionID         uuid.UUID           `gorm:"column:connection_id;type:uuid;not null;index"`
	SourceVariantID      string              `gorm:"column:source_variant_id;not null;uniqueIndex:ux_variant_mappings_pair"`
	DestinationVariantID string              `gorm:"column:destination_variant_id;not null;uniqueIndex:ux_variant_mappings_pair"`
	SyncEnabled          bool                `gorm:"column:sync_enabled;not null;default:true"`
	Status               enums.MappingStatus `gorm:"column:status;not null;default:active"`
	CreatedAt            time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
