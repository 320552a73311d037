package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garnizeh/realty/pkg/models"
	"github.com/garnizeh/realty/pkg/repository"
)

const builderColumns = `id, name, slug, logo_url, description, email, phone, website, established_year, total_projects, created, updated`

func (r *SQLiteRepo) CreateBuilder(ctx context.Context, b *models.Builder) (int64, error) {
	if b == nil {
		return 0, fmt.Errorf("builder is nil")
	}
	ts := now()

	res, err := r.conn.Exec(ctx, `INSERT INTO builders (name, slug, logo_url, description, email, phone, website, established_year, total_projects, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Name, b.Slug, b.LogoURL, b.Description, b.Email, b.Phone, b.Website, b.EstablishedYear, b.TotalProjects, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("insert builder: %w", err)
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetBuilderByID(ctx context.Context, id int64) (*models.Builder, error) {
	return scanBuilder(r.conn.QueryRow(ctx, `SELECT `+builderColumns+` FROM builders WHERE id = ?`, id))
}

func (r *SQLiteRepo) GetBuilderBySlug(ctx context.Context, slug string) (*models.Builder, error) {
	return scanBuilder(r.conn.QueryRow(ctx, `SELECT `+builderColumns+` FROM builders WHERE slug = ?`, slug))
}

func (r *SQLiteRepo) ListBuilders(ctx context.Context, limit, offset int) ([]models.Builder, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.conn.QueryRows(ctx, `SELECT `+builderColumns+` FROM builders ORDER BY name LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Builder{}
	for rows.Next() {
		b, err := scanBuilder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) UpdateBuilder(ctx context.Context, b *models.Builder) error {
	if b == nil {
		return fmt.Errorf("builder is nil")
	}

	res, err := r.conn.Exec(ctx, `UPDATE builders SET name = ?, slug = ?, logo_url = ?, description = ?, email = ?, phone = ?, website = ?, established_year = ?, total_projects = ?, updated = ? WHERE id = ?`,
		b.Name, b.Slug, b.LogoURL, b.Description, b.Email, b.Phone, b.Website, b.EstablishedYear, b.TotalProjects, now(), b.ID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (r *SQLiteRepo) DeleteBuilder(ctx context.Context, id int64) error {
	res, err := r.conn.Exec(ctx, `DELETE FROM builders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBuilder(s scanner) (*models.Builder, error) {
	var b models.Builder
	if err := s.Scan(&b.ID, &b.Name, &b.Slug, &b.LogoURL, &b.Description, &b.Email, &b.Phone, &b.Website, &b.EstablishedYear, &b.TotalProjects, &b.Created, &b.Updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func affectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
