package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/garnizeh/realty/pkg/models"
)

func (r *SQLiteRepo) GetSchema(ctx context.Context, listingType string) (*models.ListingSchema, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, listing_type, schema_json, created, updated FROM listing_schemas WHERE listing_type = ?`, listingType)
	var s models.ListingSchema
	if err := row.Scan(&s.ID, &s.ListingType, &s.SchemaJSON, &s.Created, &s.Updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *SQLiteRepo) ListSchemas(ctx context.Context) ([]models.ListingSchema, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT id, listing_type, schema_json, created, updated FROM listing_schemas ORDER BY listing_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ListingSchema
	for rows.Next() {
		var s models.ListingSchema
		if err := rows.Scan(&s.ID, &s.ListingType, &s.SchemaJSON, &s.Created, &s.Updated); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpsertSchema inserts or replaces the schema for a listing type.
func (r *SQLiteRepo) UpsertSchema(ctx context.Context, listingType, schemaJSON string) error {
	_, err := r.conn.Exec(ctx, `INSERT INTO listing_schemas (listing_type, schema_json, created, updated) VALUES (?, ?, strftime('%s','now'), strftime('%s','now')) ON CONFLICT(listing_type) DO UPDATE SET schema_json = excluded.schema_json, updated = strftime('%s','now')`, listingType, schemaJSON)
	return err
}
