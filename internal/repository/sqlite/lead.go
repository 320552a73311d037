package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garnizeh/realty/pkg/models"
)

func (r *SQLiteRepo) CreateLead(ctx context.Context, l *models.Lead) (int64, error) {
	if l == nil {
		return 0, fmt.Errorf("lead is nil")
	}
	source := l.Source
	if source == "" {
		source = "website"
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO leads (name, phone, email, project_id, message, source, created) VALUES (?, ?, ?, ?, ?, ?, ?)`, l.Name, l.Phone, l.Email, l.ProjectID, l.Message, source, now())
	if err != nil {
		return 0, fmt.Errorf("insert lead: %w", err)
	}

	return res.LastInsertId()
}

// ListLeads returns leads newest first with the project title joined in.
// projectID 0 lists all leads; limit 0 means no limit.
func (r *SQLiteRepo) ListLeads(ctx context.Context, projectID int64, limit, offset int) ([]models.Lead, error) {
	if limit <= 0 {
		limit = -1
	}
	q := `SELECT l.id, l.name, l.phone, l.email, l.project_id, l.message, l.source, l.created, COALESCE(p.title, '') FROM leads l LEFT JOIN projects p ON p.id = l.project_id`
	args := []any{}
	if projectID > 0 {
		q += ` WHERE l.project_id = ?`
		args = append(args, projectID)
	}
	q += ` ORDER BY l.created DESC, l.id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	out := []models.Lead{}
	for rows.Next() {
		var l models.Lead
		var pid sql.NullInt64
		if err := rows.Scan(&l.ID, &l.Name, &l.Phone, &l.Email, &pid, &l.Message, &l.Source, &l.Created, &l.ProjectTitle); err != nil {
			return nil, err
		}
		if pid.Valid {
			v := pid.Int64
			l.ProjectID = &v
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) DeleteLead(ctx context.Context, id int64) error {
	res, err := r.conn.Exec(ctx, `DELETE FROM leads WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}
