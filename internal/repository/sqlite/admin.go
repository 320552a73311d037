package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garnizeh/realty/pkg/models"
)

func (r *SQLiteRepo) CreateAdmin(ctx context.Context, a *models.Admin) (int64, error) {
	if a == nil {
		return 0, fmt.Errorf("admin is nil")
	}
	role := a.Role
	if role == "" {
		role = "admin"
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO admins (email, name, role, password_hash, updated) VALUES (?, ?, ?, ?, ?)`, a.Email, a.Name, role, a.PasswordHash, now())
	if err != nil {
		return 0, fmt.Errorf("insert admin: %w", err)
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, email, name, role, password_hash, updated FROM admins WHERE email = ?`, email)
	var a models.Admin
	if err := row.Scan(&a.ID, &a.Email, &a.Name, &a.Role, &a.PasswordHash, &a.Updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &a, nil
}

func (r *SQLiteRepo) UpdateAdminPassword(ctx context.Context, email, passwordHash string) error {
	res, err := r.conn.Exec(ctx, `UPDATE admins SET password_hash = ?, updated = ? WHERE email = ?`, passwordHash, now(), email)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}
