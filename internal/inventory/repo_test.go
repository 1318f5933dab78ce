package inventory

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.Exec(`CREATE TABLE inventory_levels (
		source_variant_id TEXT PRIMARY KEY,
		quantity INTEGER NOT NULL DEFAULT 0,
		last_synced_at DATETIME,
		updated_at DATETIME
	)`).Error; err != nil {
		t.Fatalf("create table: %v", err)
	}
	return NewRepository(conn)
}

func TestLevelDefaultsToZero(t *testing.T) {
	repo := newTestRepo(t)

	level, err := repo.Level(context.Background(), "v-unknown")
	if err != nil {
		t.Fatalf("level: %v", err)
	}
	if level.Quantity != 0 {
		t.Fatalf("quantity %d, want 0", level.Quantity)
	}
}

func TestSetAbsoluteUpserts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	level, err := repo.SetAbsolute(ctx, "v1", 100)
	if err != nil {
		t.Fatalf("set absolute: %v", err)
	}
	if level.Quantity != 100 {
		t.Fatalf("quantity %d, want 100", level.Quantity)
	}

	if _, err := repo.SetAbsolute(ctx, "v1", 80); err != nil {
		t.Fatalf("second set: %v", err)
	}
	level, err = repo.Level(ctx, "v1")
	if err != nil {
		t.Fatalf("level: %v", err)
	}
	if level.Quantity != 80 {
		t.Fatalf("quantity %d, want 80", level.Quantity)
	}
	if level.LastSyncedAt == nil {
		t.Fatal("last synced timestamp missing")
	}
}

func TestSetAbsoluteClampsNegative(t *testing.T) {
	repo := newTestRepo(t)

	level, err := repo.SetAbsolute(context.Background(), "v1", -5)
	if err != nil {
		t.Fatalf("set absolute: %v", err)
	}
	if level.Quantity != 0 {
		t.Fatalf("quantity %d, want 0", level.Quantity)
	}
}

func TestApplyDelta(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.SetAbsolute(ctx, "v1", 10); err != nil {
		t.Fatalf("seed: %v", err)
	}

	level, err := repo.ApplyDelta(ctx, "v1", -3)
	if err != nil {
		t.Fatalf("apply delta: %v", err)
	}
	if level.Quantity != 7 {
		t.Fatalf("quantity %d, want 7", level.Quantity)
	}

	// Deltas clamp at zero rather than going negative.
	level, err = repo.ApplyDelta(ctx, "v1", -20)
	if err != nil {
		t.Fatalf("apply delta: %v", err)
	}
	if level.Quantity != 0 {
		t.Fatalf("quantity %d, want 0", level.Quantity)
	}
}

func TestApplyDeltaCreatesMissingRecord(t *testing.T) {
	repo := newTestRepo(t)

	level, err := repo.ApplyDelta(context.Background(), "v-new", 4)
	if err != nil {
		t.Fatalf("apply delta: %v", err)
	}
	if level.Quantity != 4 {
		t.Fatalf("quantity %d, want 4", level.Quantity)
	}
}
