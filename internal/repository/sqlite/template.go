package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/garnizeh/realty/pkg/models"
)

func (r *SQLiteRepo) UpsertTemplate(ctx context.Context, name, version, templateText string, metadata *string) error {
	var meta any
	if metadata != nil {
		meta = *metadata
	}

	_, err := r.conn.Exec(ctx, `INSERT INTO ai_templates (name, version, template_text, metadata, created, updated) VALUES (?, ?, ?, ?, strftime('%s','now'), strftime('%s','now')) ON CONFLICT(name, version) DO UPDATE SET template_text=excluded.template_text, metadata=excluded.metadata, updated=strftime('%s','now')`, name, version, templateText, meta)
	return err
}

func (r *SQLiteRepo) GetTemplate(ctx context.Context, name, version string) (*models.Template, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, name, version, template_text, metadata, created, updated FROM ai_templates WHERE name = ? AND version = ?`, name, version)
	var t models.Template
	var meta sql.NullString
	if err := row.Scan(&t.ID, &t.Name, &t.Version, &t.TemplateTxt, &meta, &t.Created, &t.Updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if meta.Valid {
		t.Metadata = &meta.String
	}
	return &t, nil
}

func (r *SQLiteRepo) ListTemplates(ctx context.Context) ([]models.Template, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT id, name, version, template_text, metadata, created, updated FROM ai_templates ORDER BY name, version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Template
	for rows.Next() {
		var t models.Template
		var meta sql.NullString
		if err := rows.Scan(&t.ID, &t.Name, &t.Version, &t.TemplateTxt, &meta, &t.Created, &t.Updated); err != nil {
			return nil, err
		}
		if meta.Valid {
			m := meta.String
			t.Metadata = &m
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
