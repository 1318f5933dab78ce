// Package shops resolves connected commerce accounts and their API
// credentials.
package shops

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockbridge-backend/pkg/db/models"
)

// Repository handles shop persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to shop lookups.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a shop by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

// FindByDomain resolves a shop from its webhook domain header.
func (r *Repository) FindByDomain(ctx context.Context, domain string) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).Where("domain = ?", domain).First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

// ClearAccessToken drops a shop's credentials after app uninstall.
func (r *Repository) ClearAccessToken(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Shop{}).
		Where("id = ?", id).
		Update("access_token", "").Error
}
