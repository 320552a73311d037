package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Migrate applies migrations and seed files. It creates a `schema_migrations`
// table to track applied migrations and applies any SQL files under
// `migrations/` that have not yet been recorded. Seed files under `seed/` are
// inserted without overwriting rows that already exist, so running Migrate
// repeatedly is safe.
func Migrate(ctx context.Context, d *DB, migrationFS fs.FS, seedFS fs.FS) error {
	if _, err := d.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	migDir := "migrations"

	files, err := listFiles(migrationFS, migDir, ".sql")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	for _, fname := range files {
		// filename without extension is the version key
		version := strings.TrimSuffix(fname, path.Ext(fname))

		var count int
		row := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations WHERE version = ?`, version)
		if err := row.Scan(&count); err != nil {
			return fmt.Errorf("scan migration applied count: %w", err)
		}
		if count > 0 {
			continue
		}

		b, err := fs.ReadFile(migrationFS, path.Join(migDir, fname))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", fname, err)
		}
		// a failed migration leaves neither its tables nor its version row
		err = d.InTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, string(b)); err != nil {
				return fmt.Errorf("exec migration %s: %w", fname, err)
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, applied) VALUES (?, strftime('%s','now'))`, version); err != nil {
				return fmt.Errorf("record migration %s: %w", fname, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if seedFS == nil {
		return nil
	}
	if err := seedSchemas(ctx, d, seedFS); err != nil {
		return err
	}
	return seedTemplates(ctx, d, seedFS)
}

// SchemaVersion returns the most recently applied migration version, or an
// empty string when nothing has been applied.
func SchemaVersion(ctx context.Context, d *DB) (string, error) {
	var v sql.NullString
	row := d.QueryRow(ctx, `SELECT MAX(version) FROM schema_migrations`)
	if err := row.Scan(&v); err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return "", nil
		}
		return "", fmt.Errorf("read schema version: %w", err)
	}
	return v.String, nil
}

// AppliedMigrations lists applied versions in order.
func AppliedMigrations(ctx context.Context, d *DB) ([]string, error) {
	rows, err := d.QueryRows(ctx, `SELECT version FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func seedSchemas(ctx context.Context, d *DB, seedFS fs.FS) error {
	dir := path.Join("seed", "schemas")
	files, err := listFiles(seedFS, dir, ".json")
	if err != nil {
		// seed directory is optional
		return nil
	}
	for _, fname := range files {
		b, err := fs.ReadFile(seedFS, path.Join(dir, fname))
		if err != nil {
			return fmt.Errorf("read seed schema %s: %w", fname, err)
		}
		listingType := strings.TrimSuffix(fname, path.Ext(fname))
		if _, err := d.Exec(ctx, `INSERT INTO listing_schemas (listing_type, schema_json, created, updated) VALUES (?, ?, strftime('%s','now'), strftime('%s','now')) ON CONFLICT(listing_type) DO NOTHING`, listingType, string(b)); err != nil {
			return fmt.Errorf("seed schema %s: %w", listingType, err)
		}
	}
	return nil
}

func seedTemplates(ctx context.Context, d *DB, seedFS fs.FS) error {
	dir := path.Join("seed", "templates")
	files, err := listFiles(seedFS, dir, ".txt")
	if err != nil {
		return nil
	}
	for _, fname := range files {
		b, err := fs.ReadFile(seedFS, path.Join(dir, fname))
		if err != nil {
			return fmt.Errorf("read seed template %s: %w", fname, err)
		}
		// description_v1.txt -> name "description", version "v1"
		base := strings.TrimSuffix(fname, path.Ext(fname))
		idx := strings.LastIndex(base, "_")
		if idx <= 0 {
			return fmt.Errorf("seed template %s: expected <name>_<version>.txt", fname)
		}
		name, version := base[:idx], base[idx+1:]
		if _, err := d.Exec(ctx, `INSERT INTO ai_templates (name, version, template_text, metadata, created, updated) VALUES (?, ?, ?, ?, strftime('%s','now'), strftime('%s','now')) ON CONFLICT(name, version) DO NOTHING`, name, version, string(b), `{"owner":"system"}`); err != nil {
			return fmt.Errorf("seed template %s: %w", fname, err)
		}
	}
	return nil
}

func listFiles(fsys fs.FS, dir, ext string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
