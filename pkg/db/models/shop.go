package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockbridge-backend/pkg/enums"
)

// Shop is a connected commerce account, either the inventory owner or a reseller.
type Shop struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Domain      string         `gorm:"column:domain;not null;uniqueIndex:ux_shops_domain"`
	AccessToken string         `gorm:"column:access_token;not null"`
	Role        enums.ShopRole `gorm:"column:role;not null"`
	PlusTier    bool           `gorm:"column:plus_tier;not null;default:false"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
