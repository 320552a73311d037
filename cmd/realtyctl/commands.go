package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/crypto/bcrypt"

	dbfs "github.com/garnizeh/realty/db"
	"github.com/garnizeh/realty/internal/config"
	"github.com/garnizeh/realty/internal/db"
	"github.com/garnizeh/realty/internal/jobs"
	"github.com/garnizeh/realty/internal/pricing"
	"github.com/garnizeh/realty/internal/repository/sqlite"
	"github.com/garnizeh/realty/pkg/models"
	"github.com/garnizeh/realty/pkg/ollama"
)

func migrateCmd(ctx context.Context, d *db.DB, out io.Writer) error {
	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		return err
	}
	v, err := db.SchemaVersion(ctx, d)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "database migrated to %s\n", v)
	return nil
}

func versionCmd(ctx context.Context, d *db.DB, out io.Writer) error {
	applied, err := db.AppliedMigrations(ctx, d)
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			fmt.Fprintf(out, "realtyctl %s\nno migrations applied\n", version)
			return nil
		}
		return err
	}
	fmt.Fprintf(out, "realtyctl %s\n", version)
	for _, v := range applied {
		fmt.Fprintln(out, v)
	}
	return nil
}

type column struct {
	Name    string
	Type    string
	NotNull bool
	PK      bool
}

// tableColumns lists every user table with its columns, sorted by name.
func tableColumns(ctx context.Context, d *db.DB) ([]string, map[string][]column, error) {
	rows, err := d.QueryRows(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, nil, fmt.Errorf("list tables: %w", err)
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, nil, err
		}
		tables = append(tables, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	cols := make(map[string][]column, len(tables))
	for _, t := range tables {
		rows, err := d.QueryRows(ctx, `SELECT name, type, "notnull", pk FROM pragma_table_info(?)`, t)
		if err != nil {
			return nil, nil, fmt.Errorf("describe %s: %w", t, err)
		}
		for rows.Next() {
			var c column
			var notNull, pk int
			if err := rows.Scan(&c.Name, &c.Type, &notNull, &pk); err != nil {
				rows.Close()
				return nil, nil, err
			}
			c.NotNull, c.PK = notNull == 1, pk > 0
			cols[t] = append(cols[t], c)
		}
		rows.Close()
	}
	return tables, cols, nil
}

func schemaCmd(ctx context.Context, d *db.DB, out io.Writer) error {
	tables, cols, err := tableColumns(ctx, d)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, t := range tables {
		fmt.Fprintf(tw, "%s\n", t)
		for _, c := range cols[t] {
			flags := ""
			if c.PK {
				flags = "pk"
			} else if c.NotNull {
				flags = "not null"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", c.Name, c.Type, flags)
		}
	}
	return tw.Flush()
}

var demoBuilders = []models.Builder{
	{Name: "Skyline Developers", Slug: "skyline-developers", Description: "Residential towers across Pune.", Website: "https://skyline.example.com", EstablishedYear: 2004},
	{Name: "Greenfield Homes", Slug: "greenfield-homes", Description: "Low-rise gated communities.", EstablishedYear: 2011},
}

type demoProject struct {
	builder string
	project models.Project
}

var demoProjects = []demoProject{
	{"skyline-developers", models.Project{Title: "Skyline Heights", Slug: "skyline-heights", Location: "Baner", City: "Pune", PriceText: "1.2 Cr", Configuration: "3 BHK", ListingType: models.ListingBuilder, Category: "residential", Status: "under-construction", Amenities: []string{"Pool", "Gym"}, Featured: true}},
	{"skyline-developers", models.Project{Title: "Skyline Residency", Slug: "skyline-residency", Location: "Wakad", City: "Pune", PriceText: "85 Lakhs", Configuration: "2 BHK", ListingType: models.ListingBuilder, Category: "residential", Status: "ready-to-move"}},
	{"greenfield-homes", models.Project{Title: "Greenfield Villas", Slug: "greenfield-villas", Location: "Hinjewadi", City: "Pune", PriceText: "2.5 Cr", Configuration: "4 BHK", ListingType: models.ListingBuilder, Category: "villa", Status: "new-launch"}},
	{"", models.Project{Title: "Furnished Flat in Aundh", Slug: "furnished-flat-aundh", Location: "Aundh", City: "Pune", PriceText: "25000", Configuration: "2 BHK", ListingType: models.ListingRental, Category: "residential"}},
}

// seedDemoCmd inserts rows whose slug is not present yet, so it can be rerun.
func seedDemoCmd(ctx context.Context, d *db.DB, out io.Writer) error {
	repo := sqlite.New(d, nil)
	builderIDs := map[string]int64{}
	var added int

	for _, b := range demoBuilders {
		existing, err := repo.GetBuilderBySlug(ctx, b.Slug)
		if err != nil {
			return err
		}
		if existing != nil {
			builderIDs[b.Slug] = existing.ID
			continue
		}
		id, err := repo.CreateBuilder(ctx, &b)
		if err != nil {
			return fmt.Errorf("seed builder %s: %w", b.Slug, err)
		}
		builderIDs[b.Slug] = id
		added++
	}

	for _, dp := range demoProjects {
		p := dp.project
		existing, err := repo.GetProjectBySlug(ctx, p.Slug)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		price := pricing.PriceFromText(p.PriceText)
		p.PriceAmount, p.PriceUnit = price.Rupees(), string(price.Unit)
		p.Bedrooms = pricing.BedroomsFromText(p.Configuration)
		p.ApprovalStatus = models.ApprovalApproved
		if id, ok := builderIDs[dp.builder]; ok {
			p.BuilderID = &id
		}
		if _, err := repo.CreateProject(ctx, &p); err != nil {
			return fmt.Errorf("seed project %s: %w", p.Slug, err)
		}
		added++
	}
	fmt.Fprintf(out, "demo data seeded (%d new rows)\n", added)
	return nil
}

func adminCmd(ctx context.Context, d *db.DB, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("admin: expected create or reset-password")
	}
	fs := flag.NewFlagSet("admin "+args[0], flag.ContinueOnError)
	fs.SetOutput(out)
	email := fs.String("email", "", "admin email")
	name := fs.String("name", "", "admin display name")
	password := fs.String("password", os.Getenv("REALTY_ADMIN_PASSWORD"), "password (defaults to REALTY_ADMIN_PASSWORD)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	addr := strings.ToLower(strings.TrimSpace(*email))
	if addr == "" || *password == "" {
		return errors.New("admin: -email and -password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	repo := sqlite.New(d, nil)
	switch args[0] {
	case "create":
		existing, err := repo.GetAdminByEmail(ctx, addr)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("admin %s already exists", addr)
		}
		displayName := strings.TrimSpace(*name)
		if displayName == "" {
			displayName = addr
		}
		id, err := repo.CreateAdmin(ctx, &models.Admin{Email: addr, Name: displayName, PasswordHash: string(hash)})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "admin %s created (id %d)\n", addr, id)
	case "reset-password":
		if err := repo.UpdateAdminPassword(ctx, addr, string(hash)); err != nil {
			return fmt.Errorf("reset password for %s: %w", addr, err)
		}
		fmt.Fprintf(out, "password updated for %s\n", addr)
	default:
		return fmt.Errorf("admin: unknown subcommand %q", args[0])
	}
	return nil
}

// backupCmd uses VACUUM INTO so the copy is consistent while the server runs.
func backupCmd(ctx context.Context, d *db.DB, dbPath string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	fs.SetOutput(out)
	to := fs.String("to", "", "destination file (default <database>.<timestamp>.bak)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	dst := *to
	if dst == "" {
		dst = dbPath + "." + time.Now().UTC().Format("20060102T150405") + ".bak"
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("backup target %s already exists", dst)
	}
	if _, err := d.Exec(ctx, `VACUUM INTO ?`, dst); err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	fmt.Fprintf(out, "database backed up to %s\n", dst)
	return nil
}

// restoreCmd copies a backup over the database file. The server must be
// stopped first.
func restoreCmd(cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	fs.SetOutput(out)
	from := fs.String("from", "", "backup file to restore")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *from == "" {
		return errors.New("restore: -from is required")
	}
	src, err := os.Open(*from)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	defer src.Close()

	// write next to the target and rename so a failed copy leaves it intact
	tmp, err := os.CreateTemp(filepath.Dir(cfg.DatabasePath), ".restore-*")
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("restore: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("restore: %w", err)
	}
	if err := os.Rename(tmp.Name(), cfg.DatabasePath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("restore: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(cfg.DatabasePath + suffix)
	}
	fmt.Fprintf(out, "database restored from %s\n", *from)
	return nil
}

func deadLettersCmd(ctx context.Context, d *db.DB, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("dead-letters", flag.ContinueOnError)
	fs.SetOutput(out)
	limit := fs.Int("limit", 50, "maximum rows to print")
	asJSON := fs.Bool("json", false, "print JSON lines")
	if err := fs.Parse(args); err != nil {
		return err
	}
	items, err := jobs.NewRepository(d).DeadLetters(ctx, *limit)
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(out)
		for _, dl := range items {
			if err := enc.Encode(dl); err != nil {
				return err
			}
		}
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tJOB\tTYPE\tATTEMPTS\tFAILED\tERROR")
	for _, dl := range items {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%s\t%s\n", dl.ID, dl.JobID, dl.Type, dl.Attempts, dl.FailedAt.UTC().Format(time.RFC3339), dl.LastError)
	}
	return tw.Flush()
}

func aiPingCmd(ctx context.Context, cfg *config.Config, out io.Writer) error {
	oc := cfg.Ollama
	if oc.BaseURL == "" {
		oc.BaseURL = "http://localhost:11434"
	}
	if oc.Timeout <= 0 {
		oc.Timeout = 30 * time.Second
	}
	c, err := ollama.NewDefaultClient(oc)
	if err != nil {
		return err
	}
	defer c.Close()

	installed, err := c.ListModels(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "ollama at %s: %d models\n", oc.BaseURL, len(installed))
	want := cfg.EngineConfig.Model
	found := false
	for _, m := range installed {
		marker := " "
		if m.Name == want || strings.TrimSuffix(m.Name, ":latest") == want {
			marker, found = "*", true
		}
		fmt.Fprintf(out, "%s %s\n", marker, m.Name)
	}
	if !found {
		return fmt.Errorf("configured model %q is not installed", want)
	}
	return nil
}
