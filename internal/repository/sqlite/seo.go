package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garnizeh/realty/pkg/models"
)

func (r *SQLiteRepo) GetSEOPage(ctx context.Context, path string) (*models.SEOPage, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, path, title, description, keywords, updated FROM seo_pages WHERE path = ?`, path)
	var p models.SEOPage
	if err := row.Scan(&p.ID, &p.Path, &p.Title, &p.Description, &p.Keywords, &p.Updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *SQLiteRepo) UpsertSEOPage(ctx context.Context, p *models.SEOPage) error {
	if p == nil {
		return fmt.Errorf("seo page is nil")
	}
	_, err := r.conn.Exec(ctx, `INSERT INTO seo_pages (path, title, description, keywords, updated) VALUES (?, ?, ?, ?, ?) ON CONFLICT(path) DO UPDATE SET title = excluded.title, description = excluded.description, keywords = excluded.keywords, updated = excluded.updated`, p.Path, p.Title, p.Description, p.Keywords, now())
	return err
}
