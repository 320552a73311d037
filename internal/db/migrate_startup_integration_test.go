package db_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	dbfs "github.com/garnizeh/realty/db"
	"github.com/garnizeh/realty/internal/config"
	"github.com/garnizeh/realty/internal/db"
)

// TestMigrateOnStart loads a YAML config, opens the file database it names and
// migrates it the way cmd/server does when migrate_on_start is set.
func TestMigrateOnStart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "realty.db")
	cfgPath := filepath.Join(dir, "realty.yaml")

	yml := "database_path: '" + dbPath + "'\nmigrate_on_start: true\nengine:\n  model: llama3\n"
	if err := os.WriteFile(cfgPath, []byte(yml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("REALTY_ENV", "development")

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !cfg.MigrateOnStart || cfg.DatabasePath != dbPath {
		t.Fatalf("unexpected config %+v", cfg)
	}

	d, err := db.New(ctx, cfg.DatabasePath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	d.Close()

	// reopening finds the schema already applied
	d, err = db.New(ctx, cfg.DatabasePath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d.Close()
	if v, err := db.SchemaVersion(ctx, d); err != nil || v == "" {
		t.Fatalf("expected a schema version after restart, got %q %v", v, err)
	}
}

func TestMigrate_FailedMigrationIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	d, err := db.New(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	broken := fstest.MapFS{
		"migrations/0001_ok.sql":     {Data: []byte(`CREATE TABLE cities (name TEXT PRIMARY KEY);`)},
		"migrations/0002_broken.sql": {Data: []byte(`CREATE TABLE localities (name TEXT); INSERT INTO nowhere VALUES (1);`)},
	}
	if err := db.Migrate(ctx, d, broken, nil); err == nil {
		t.Fatalf("expected the broken migration to fail")
	}

	applied, err := db.AppliedMigrations(ctx, d)
	if err != nil {
		t.Fatalf("applied: %v", err)
	}
	if len(applied) != 1 || applied[0] != "0001_ok" {
		t.Fatalf("expected only 0001_ok recorded, got %v", applied)
	}
	var n int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM sqlite_master WHERE name = 'localities'`).Scan(&n); err != nil || n != 0 {
		t.Fatalf("expected partial migration rolled back, found %d tables (%v)", n, err)
	}
}
