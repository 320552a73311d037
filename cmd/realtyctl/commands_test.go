package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/realty/internal/config"
	"github.com/garnizeh/realty/internal/db"
	"github.com/garnizeh/realty/internal/repository/sqlite"
	"github.com/garnizeh/realty/pkg/models"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DatabasePath: filepath.Join(t.TempDir(), "realty.db"),
		EngineConfig: config.EngineConfig{Model: "llama3"},
	}
}

func mustRun(t *testing.T, cfg *config.Config, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	if err := run(context.Background(), cfg, args, &out); err != nil {
		t.Fatalf("realtyctl %s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

func openDB(t *testing.T, path string) *db.DB {
	t.Helper()
	d, err := db.New(context.Background(), path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestMigrateAndVersion(t *testing.T) {
	cfg := testConfig(t)

	if out := mustRun(t, cfg, "version"); !strings.Contains(out, "no migrations applied") {
		t.Fatalf("unexpected version output before migrate: %q", out)
	}

	out := mustRun(t, cfg, "migrate")
	if !strings.Contains(out, "0003_wizard_and_jobs") {
		t.Fatalf("unexpected migrate output: %q", out)
	}
	// rerunning is a no-op
	mustRun(t, cfg, "migrate")

	out = mustRun(t, cfg, "version")
	for _, v := range []string{"0001_init", "0002_ai_and_validation", "0003_wizard_and_jobs"} {
		if !strings.Contains(out, v) {
			t.Fatalf("version output missing %s: %q", v, out)
		}
	}
}

func TestSchemaListsColumns(t *testing.T) {
	cfg := testConfig(t)
	mustRun(t, cfg, "migrate")

	out := mustRun(t, cfg, "schema")
	for _, want := range []string{"projects", "price_amount", "leads", "dead_letter_jobs", "wizard_drafts"} {
		if !strings.Contains(out, want) {
			t.Fatalf("schema output missing %q", want)
		}
	}
}

func TestSeedDemoIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	mustRun(t, cfg, "migrate")

	if out := mustRun(t, cfg, "seed-demo"); !strings.Contains(out, "6 new rows") {
		t.Fatalf("unexpected first seed output: %q", out)
	}
	if out := mustRun(t, cfg, "seed-demo"); !strings.Contains(out, "0 new rows") {
		t.Fatalf("unexpected second seed output: %q", out)
	}

	repo := sqlite.New(openDB(t, cfg.DatabasePath), nil)
	ctx := context.Background()
	p, err := repo.GetProjectBySlug(ctx, "skyline-heights")
	if err != nil || p == nil {
		t.Fatalf("seeded project missing: %v", err)
	}
	if p.PriceAmount != 12_000_000 || p.Bedrooms != 3 || p.BuilderID == nil || p.ApprovalStatus != models.ApprovalApproved {
		t.Fatalf("unexpected seeded project %+v", p)
	}
}

func TestAdminCreateAndReset(t *testing.T) {
	cfg := testConfig(t)
	mustRun(t, cfg, "migrate")

	mustRun(t, cfg, "admin", "create", "-email", "Ops@Example.com", "-name", "Ops", "-password", "first")

	var out bytes.Buffer
	if err := run(context.Background(), cfg, []string{"admin", "create", "-email", "ops@example.com", "-password", "again"}, &out); err == nil {
		t.Fatalf("expected duplicate admin to fail")
	}
	if err := run(context.Background(), cfg, []string{"admin", "create", "-email", "x@example.com"}, &out); err == nil {
		t.Fatalf("expected missing password to fail")
	}
	if err := run(context.Background(), cfg, []string{"admin", "reset-password", "-email", "nobody@example.com", "-password", "x"}, &out); err == nil {
		t.Fatalf("expected reset for unknown admin to fail")
	}

	mustRun(t, cfg, "admin", "reset-password", "-email", "ops@example.com", "-password", "second")

	repo := sqlite.New(openDB(t, cfg.DatabasePath), nil)
	a, err := repo.GetAdminByEmail(context.Background(), "ops@example.com")
	if err != nil || a == nil {
		t.Fatalf("admin missing: %v", err)
	}
	if a.Name != "Ops" {
		t.Fatalf("unexpected admin name %q", a.Name)
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte("second")) != nil {
		t.Fatalf("password was not reset")
	}
}

func TestBackupAndRestore(t *testing.T) {
	cfg := testConfig(t)
	mustRun(t, cfg, "migrate")
	mustRun(t, cfg, "seed-demo")

	backup := filepath.Join(t.TempDir(), "snapshot.db")
	if out := mustRun(t, cfg, "backup", "-to", backup); !strings.Contains(out, backup) {
		t.Fatalf("unexpected backup output %q", out)
	}
	var out bytes.Buffer
	if err := run(context.Background(), cfg, []string{"backup", "-to", backup}, &out); err == nil {
		t.Fatalf("expected backup over an existing file to fail")
	}

	if err := os.Remove(cfg.DatabasePath); err != nil {
		t.Fatalf("remove database: %v", err)
	}
	mustRun(t, cfg, "restore", "-from", backup)

	repo := sqlite.New(openDB(t, cfg.DatabasePath), nil)
	b, err := repo.GetBuilderBySlug(context.Background(), "greenfield-homes")
	if err != nil || b == nil {
		t.Fatalf("restored database is missing demo builder: %v", err)
	}

	if err := run(context.Background(), cfg, []string{"restore"}, &out); err == nil {
		t.Fatalf("expected restore without -from to fail")
	}
}

func TestDeadLettersEmpty(t *testing.T) {
	cfg := testConfig(t)
	mustRun(t, cfg, "migrate")

	out := mustRun(t, cfg, "dead-letters")
	if !strings.HasPrefix(out, "ID") || strings.Count(out, "\n") != 1 {
		t.Fatalf("expected header only, got %q", out)
	}
}

func TestAIPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3:latest","model":"llama3:latest","size":42}]}`))
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.Ollama.BaseURL = srv.URL
	if out := mustRun(t, cfg, "ai-ping"); !strings.Contains(out, "* llama3:latest") {
		t.Fatalf("unexpected ai-ping output %q", out)
	}

	cfg.EngineConfig.Model = "mistral"
	var out bytes.Buffer
	if err := run(context.Background(), cfg, []string{"ai-ping"}, &out); err == nil {
		t.Fatalf("expected missing model to fail")
	}
}

func TestUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), testConfig(t), []string{"frobnicate"}, &out); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}
