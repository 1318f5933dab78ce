package mappings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockbridge-backend/pkg/db/models"
	"github.com/angelmondragon/stockbridge-backend/pkg/enums"
)

// Repository reads sync connections and variant mappings. The engine
// never creates or mutates mappings; pausing a connection is the one
// write, reserved for app-uninstall handling.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to mapping lookups.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ConnectionByID loads a sync connection.
func (r *Repository) ConnectionByID(ctx context.Context, id uuid.UUID) (*models.SyncConnection, error) {
	var conn models.SyncConnection
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&conn).Error; err != nil {
		return nil, err
	}
	return &conn, nil
}

// ActiveConnectionsForSource returns every active connection fanning
// out from the given source shop.
func (r *Repository) ActiveConnectionsForSource(ctx context.Context, sourceShopID uuid.UUID) ([]models.SyncConnection, error) {
	var conns []models.SyncConnection
	if err := r.db.WithContext(ctx).
		Where("source_shop_id = ? AND status = ?", sourceShopID, enums.ConnectionActive).
		Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

// ActiveMappings returns the connection's variant mappings that have
// not been archived. Sync-enabled and conflict filtering happens in
// the adjustment pipeline, which needs to see why a variant was
// skipped.
func (r *Repository) ActiveMappings(ctx context.Context, connectionID uuid.UUID) ([]models.VariantMapping, error) {
	var rows []models.VariantMapping
	if err := r.db.WithContext(ctx).
		Where("connection_id = ? AND status <> ?", connectionID, enums.MappingArchived).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MappingForSourceVariant resolves one variant's mapping on a
// connection.
func (r *Repository) MappingForSourceVariant(ctx context.Context, connectionID uuid.UUID, sourceVariantID string) (*models.VariantMapping, error) {
	var row models.VariantMapping
	if err := r.db.WithContext(ctx).
		Where("connection_id = ? AND source_variant_id = ?", connectionID, sourceVariantID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ActiveConnectionsForDestination returns active connections whose
// destination is the given shop. Order events from a reseller resolve
// against these.
func (r *Repository) ActiveConnectionsForDestination(ctx context.Context, destinationShopID uuid.UUID) ([]models.SyncConnection, error) {
	var conns []models.SyncConnection
	if err := r.db.WithContext(ctx).
		Where("destination_shop_id = ? AND status = ?", destinationShopID, enums.ConnectionActive).
		Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

// MappingForDestinationVariant resolves a destination variant back to
// its source counterpart on a connection.
func (r *Repository) MappingForDestinationVariant(ctx context.Context, connectionID uuid.UUID, destinationVariantID string) (*models.VariantMapping, error) {
	var row models.VariantMapping
	if err := r.db.WithContext(ctx).
		Where("connection_id = ? AND destination_variant_id = ?", connectionID, destinationVariantID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ConnectionMapping pairs an active connection with its mapping row
// for one source variant.
type ConnectionMapping struct {
	Connection models.SyncConnection
	Mapping    models.VariantMapping
}

// ConnectionsForVariant returns every active connection that maps the
// given source variant, with the mapping row alongside.
func (r *Repository) ConnectionsForVariant(ctx context.Context, sourceVariantID string) ([]ConnectionMapping, error) {
	var rows []models.VariantMapping
	if err := r.db.WithContext(ctx).
		Where("source_variant_id = ? AND status <> ?", sourceVariantID, enums.MappingArchived).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]ConnectionMapping, 0, len(rows))
	for _, row := range rows {
		var conn models.SyncConnection
		err := r.db.WithContext(ctx).
			Where("id = ? AND status = ?", row.ConnectionID, enums.ConnectionActive).
			First(&conn).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, ConnectionMapping{Connection: conn, Mapping: row})
	}
	return out, nil
}

// PauseConnectionsForShop pauses every connection touching the shop,
// in either role. Used when the app is uninstalled from a shop.
func (r *Repository) PauseConnectionsForShop(ctx context.Context, shopID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SyncConnection{}).
		Where("(source_shop_id = ? OR destination_shop_id = ?) AND status = ?", shopID, shopID, enums.ConnectionActive).
		Update("status", enums.ConnectionPaused)
	return result.RowsAffected, result.Error
}
