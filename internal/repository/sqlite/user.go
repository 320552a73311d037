package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garnizeh/realty/pkg/models"
)

func (r *SQLiteRepo) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	if u == nil {
		return 0, fmt.Errorf("user is nil")
	}
	role := u.Role
	if role == "" {
		role = "user"
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO users (name, email, phone, password_hash, role, updated) VALUES (?, ?, ?, ?, ?, ?)`, u.Name, u.Email, u.Phone, u.PasswordHash, role, now())
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, name, email, phone, password_hash, role, updated FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *SQLiteRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, name, email, phone, password_hash, role, updated FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *SQLiteRepo) UpdateUser(ctx context.Context, u *models.User) error {
	if u == nil {
		return fmt.Errorf("user is nil")
	}

	_, err := r.conn.Exec(ctx, `UPDATE users SET name = ?, email = ?, phone = ?, password_hash = ?, updated = ? WHERE id = ?`, u.Name, u.Email, u.Phone, u.PasswordHash, now(), u.ID)
	return err
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.Role, &u.Updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return &u, nil
}
