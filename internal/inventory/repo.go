// Package inventory owns the authoritative quantity records from which
// every downstream quantity is derived.
package inventory

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/stockbridge-backend/pkg/db/models"
)

var upsertLevel = clause.OnConflict{
	Columns:   []clause.Column{{Name: "source_variant_id"}},
	DoUpdates: clause.AssignmentColumns([]string{"quantity", "last_synced_at", "updated_at"}),
}

// Repository handles authoritative inventory persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to inventory operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Level loads the authoritative record for a source variant. A variant
// with no record yet reads as quantity zero.
func (r *Repository) Level(ctx context.Context, sourceVariantID string) (*models.InventoryLevel, error) {
	var level models.InventoryLevel
	err := r.db.WithContext(ctx).
		Where("source_variant_id = ?", sourceVariantID).
		First(&level).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.InventoryLevel{SourceVariantID: sourceVariantID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &level, nil
}

// SetAbsolute overwrites the authoritative quantity. Used for raw
// inventory-set events from the source shop.
func (r *Repository) SetAbsolute(ctx context.Context, sourceVariantID string, quantity int) (*models.InventoryLevel, error) {
	if quantity < 0 {
		quantity = 0
	}
	now := time.Now().UTC()
	level := models.InventoryLevel{
		SourceVariantID: sourceVariantID,
		Quantity:        quantity,
		LastSyncedAt:    &now,
	}
	if err := r.db.WithContext(ctx).Clauses(upsertLevel).Create(&level).Error; err != nil {
		return nil, err
	}
	return &level, nil
}

// ApplyDelta adjusts the authoritative quantity inside a transaction,
// clamping at zero. The clamp is oversold protection, not an error.
func (r *Repository) ApplyDelta(ctx context.Context, sourceVariantID string, delta int) (*models.InventoryLevel, error) {
	var result models.InventoryLevel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var level models.InventoryLevel
		err := tx.Where("source_variant_id = ?", sourceVariantID).First(&level).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			level = models.InventoryLevel{SourceVariantID: sourceVariantID}
		} else if err != nil {
			return err
		}

		next := level.Quantity + delta
		if next < 0 {
			next = 0
		}
		now := time.Now().UTC()
		level.Quantity = next
		level.LastSyncedAt = &now

		if err := tx.Clauses(upsertLevel).Create(&level).Error; err != nil {
			return err
		}
		result = level
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// MarkSynced stamps the record after a successful propagation round.
func (r *Repository) MarkSynced(ctx context.Context, sourceVariantID string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.InventoryLevel{}).
		Where("source_variant_id = ?", sourceVariantID).
		Update("last_synced_at", now).Error
}
