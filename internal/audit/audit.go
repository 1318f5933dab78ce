// Package audit records the outcome of every sync attempt as
// append-only rows, including drift detected between the authoritative
// quantity and a destination's reported quantity.
package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockbridge-backend/pkg/db/models"
	"github.com/angelmondragon/stockbridge-backend/pkg/enums"
	"github.com/angelmondragon/stockbridge-backend/pkg/logger"
	"github.com/angelmondragon/stockbridge-backend/pkg/metrics"
)

// Recorder persists sync outcomes. Recording must never fail the sync
// path itself: errors are logged and counted, not returned upstream.
type Recorder struct {
	db      *gorm.DB
	log     *logger.Logger
	metrics *metrics.SyncMetrics
}

// NewRecorder builds an outcome recorder.
func NewRecorder(db *gorm.DB, log *logger.Logger, m *metrics.SyncMetrics) (*Recorder, error) {
	if db == nil {
		return nil, fmt.Errorf("audit: db required")
	}
	if log == nil {
		return nil, fmt.Errorf("audit: logger required")
	}
	return &Recorder{db: db, log: log, metrics: m}, nil
}

// Entry describes one sync attempt.
type Entry struct {
	ConnectionID      *uuid.UUID
	DestinationShopID uuid.UUID
	Kind              enums.OutcomeKind
	VariantCount      int
	Detail            string
}

// Record appends one outcome row.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	row := models.SyncOutcome{
		ID:                uuid.New(),
		ConnectionID:      entry.ConnectionID,
		DestinationShopID: entry.DestinationShopID,
		Kind:              entry.Kind,
		VariantCount:      entry.VariantCount,
	}
	if entry.Detail != "" {
		detail := entry.Detail
		row.Detail = &detail
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		r.log.Error(ctx, "record sync outcome", err)
		return
	}
	r.metrics.IncOutcome(string(entry.Kind))
}

// RecordDrift appends a drift row when a destination's reported
// quantity disagrees with the value we just derived for it.
func (r *Recorder) RecordDrift(ctx context.Context, connectionID uuid.UUID, destinationShopID uuid.UUID, variantID string, expected, reported int) {
	detail := fmt.Sprintf("variant %s: expected %d, destination reported %d", variantID, expected, reported)
	r.Record(ctx, Entry{
		ConnectionID:      &connectionID,
		DestinationShopID: destinationShopID,
		Kind:              enums.OutcomeDrift,
		VariantCount:      1,
		Detail:            detail,
	})
}

// Recent returns the latest outcomes for a destination shop.
func (r *Recorder) Recent(ctx context.Context, destinationShopID uuid.UUID, limit int) ([]models.SyncOutcome, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []models.SyncOutcome
	err := r.db.WithContext(ctx).
		Where("destination_shop_id = ?", destinationShopID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
