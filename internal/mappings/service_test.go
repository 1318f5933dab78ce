package mappings

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockbridge-backend/pkg/db/models"
	"github.com/angelmondragon/stockbridge-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockbridge-backend/pkg/errors"
)

type stubMappingRepo struct {
	conn     *models.SyncConnection
	conns    []models.SyncConnection
	mappings []models.VariantMapping
	pairs    []ConnectionMapping
	paused   int64
	err      error
}

func (s *stubMappingRepo) ConnectionByID(context.Context, uuid.UUID) (*models.SyncConnection, error) {
	return s.conn, s.err
}

func (s *stubMappingRepo) ActiveConnectionsForSource(context.Context, uuid.UUID) ([]models.SyncConnection, error) {
	return s.conns, s.err
}

func (s *stubMappingRepo) ActiveConnectionsForDestination(context.Context, uuid.UUID) ([]models.SyncConnection, error) {
	return s.conns, s.err
}

func (s *stubMappingRepo) ActiveMappings(context.Context, uuid.UUID) ([]models.VariantMapping, error) {
	return s.mappings, s.err
}

func (s *stubMappingRepo) ConnectionsForVariant(context.Context, string) ([]ConnectionMapping, error) {
	return s.pairs, s.err
}

func (s *stubMappingRepo) PauseConnectionsForShop(context.Context, uuid.UUID) (int64, error) {
	return s.paused, s.err
}

func TestNewServiceRequiresRepo(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatal("expected error creating service without repo")
	}
}

func TestGetConnectionPolicy(t *testing.T) {
	location := "42"
	conn := &models.SyncConnection{
		ID:                uuid.New(),
		DestinationShopID: uuid.New(),
		TriggerPolicy:     enums.TriggerOnPaid,
		SyncMode:          enums.SyncModeFull,
		SafetyStock:       5,
		StockBuffer:       2,
		LocationID:        &location,
	}
	svc, err := NewService(&stubMappingRepo{conn: conn})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	policy, err := svc.GetConnectionPolicy(context.Background(), conn.ID)
	if err != nil {
		t.Fatalf("get policy: %v", err)
	}
	if policy.Trigger != enums.TriggerOnPaid || policy.SafetyStock != 5 || policy.StockBuffer != 2 {
		t.Fatalf("policy mismatch: %+v", policy)
	}
	if policy.DestinationShopID != conn.DestinationShopID {
		t.Fatalf("destination shop mismatch: %+v", policy)
	}
}

func TestGetConnectionPolicyNotFound(t *testing.T) {
	svc, err := NewService(&stubMappingRepo{err: gorm.ErrRecordNotFound})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, gotErr := svc.GetConnectionPolicy(context.Background(), uuid.New())
	if typed := pkgerrors.As(gotErr); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %v", gotErr)
	}
}

func TestGetActiveMappingsDependencyError(t *testing.T) {
	svc, err := NewService(&stubMappingRepo{err: errors.New("boom")})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, gotErr := svc.GetActiveMappings(context.Background(), uuid.New())
	if typed := pkgerrors.As(gotErr); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency code, got %v", gotErr)
	}
}

func TestPauseShop(t *testing.T) {
	svc, err := NewService(&stubMappingRepo{paused: 3})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	paused, err := svc.PauseShop(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("pause shop: %v", err)
	}
	if paused != 3 {
		t.Fatalf("paused %d connections, want 3", paused)
	}
}
