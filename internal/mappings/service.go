package mappings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockbridge-backend/pkg/db/models"
	"github.com/angelmondragon/stockbridge-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockbridge-backend/pkg/errors"
)

type mappingRepository interface {
	ConnectionByID(ctx context.Context, id uuid.UUID) (*models.SyncConnection, error)
	ActiveConnectionsForSource(ctx context.Context, sourceShopID uuid.UUID) ([]models.SyncConnection, error)
	ActiveConnectionsForDestination(ctx context.Context, destinationShopID uuid.UUID) ([]models.SyncConnection, error)
	ActiveMappings(ctx context.Context, connectionID uuid.UUID) ([]models.VariantMapping, error)
	ConnectionsForVariant(ctx context.Context, sourceVariantID string) ([]ConnectionMapping, error)
	PauseConnectionsForShop(ctx context.Context, shopID uuid.UUID) (int64, error)
}

// ConnectionPolicy is the read-only slice of a connection the sync
// paths consume.
type ConnectionPolicy struct {
	ConnectionID      uuid.UUID
	DestinationShopID uuid.UUID
	Trigger           enums.OrderTriggerPolicy
	SyncMode          enums.SyncMode
	SafetyStock       int
	StockBuffer       int
	LocationID        *string
}

// Service exposes mapping lookups to the sync engine.
type Service interface {
	GetConnectionPolicy(ctx context.Context, connectionID uuid.UUID) (*ConnectionPolicy, error)
	GetActiveMappings(ctx context.Context, connectionID uuid.UUID) ([]models.VariantMapping, error)
	ConnectionsForSource(ctx context.Context, sourceShopID uuid.UUID) ([]models.SyncConnection, error)
	ConnectionsForDestination(ctx context.Context, destinationShopID uuid.UUID) ([]models.SyncConnection, error)
	ConnectionsForVariant(ctx context.Context, sourceVariantID string) ([]ConnectionMapping, error)
	PauseShop(ctx context.Context, shopID uuid.UUID) (int64, error)
}

type service struct {
	repo mappingRepository
}

// NewService builds a mapping service over the repository.
func NewService(repo mappingRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("mapping repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetConnectionPolicy(ctx context.Context, connectionID uuid.UUID) (*ConnectionPolicy, error) {
	conn, err := s.repo.ConnectionByID(ctx, connectionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sync connection not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sync connection")
	}
	return policyFromConnection(conn), nil
}

func (s *service) GetActiveMappings(ctx context.Context, connectionID uuid.UUID) ([]models.VariantMapping, error) {
	rows, err := s.repo.ActiveMappings(ctx, connectionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant mappings")
	}
	return rows, nil
}

func (s *service) ConnectionsForSource(ctx context.Context, sourceShopID uuid.UUID) ([]models.SyncConnection, error) {
	conns, err := s.repo.ActiveConnectionsForSource(ctx, sourceShopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load connections for source shop")
	}
	return conns, nil
}

func (s *service) ConnectionsForDestination(ctx context.Context, destinationShopID uuid.UUID) ([]models.SyncConnection, error) {
	conns, err := s.repo.ActiveConnectionsForDestination(ctx, destinationShopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load connections for destination shop")
	}
	return conns, nil
}

func (s *service) ConnectionsForVariant(ctx context.Context, sourceVariantID string) ([]ConnectionMapping, error) {
	pairs, err := s.repo.ConnectionsForVariant(ctx, sourceVariantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load connections for variant")
	}
	return pairs, nil
}

func (s *service) PauseShop(ctx context.Context, shopID uuid.UUID) (int64, error) {
	paused, err := s.repo.PauseConnectionsForShop(ctx, shopID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "pause connections")
	}
	return paused, nil
}

func policyFromConnection(conn *models.SyncConnection) *ConnectionPolicy {
	return &ConnectionPolicy{
		ConnectionID:      conn.ID,
		DestinationShopID: conn.DestinationShopID,
		Trigger:           conn.TriggerPolicy,
		SyncMode:          conn.SyncMode,
		SafetyStock:       conn.SafetyStock,
		StockBuffer:       conn.StockBuffer,
		LocationID:        conn.LocationID,
	}
}
