package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/stockbridge-backend/pkg/migrate"
)

func TestSyncSchemaMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_sync_schema.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no sync schema migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS shops",
		"CREATE TABLE IF NOT EXISTS sync_connections",
		"CREATE TABLE IF NOT EXISTS variant_mappings",
		"CREATE TABLE IF NOT EXISTS inventory_levels",
		"CREATE TABLE IF NOT EXISTS sync_outcomes",
		"FOREIGN KEY (source_shop_id) REFERENCES shops(id) ON DELETE CASCADE",
		"FOREIGN KEY (connection_id) REFERENCES sync_connections(id) ON DELETE CASCADE",
		"CHECK (quantity >= 0)",
		"CHECK (safety_stock >= 0)",
		"CONSTRAINT ux_variant_mappings_pair UNIQUE (source_variant_id, destination_variant_id)",
		"DROP TABLE IF EXISTS sync_outcomes",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}
