package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/garnizeh/realty/pkg/models"
)

func (r *SQLiteRepo) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, user_id, preferences, updated FROM profiles WHERE user_id = ?`, userID)
	var p models.Profile
	var prefs string
	if err := row.Scan(&p.ID, &p.UserID, &prefs, &p.Updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.Preferences = json.RawMessage(prefs)

	return &p, nil
}

// UpsertProfile creates the user's profile or replaces its preferences.
func (r *SQLiteRepo) UpsertProfile(ctx context.Context, p *models.Profile) error {
	if p == nil {
		return fmt.Errorf("profile is nil")
	}
	prefs := string(p.Preferences)
	if prefs == "" {
		prefs = "{}"
	}

	_, err := r.conn.Exec(ctx, `INSERT INTO profiles (user_id, preferences, updated) VALUES (?, ?, ?) ON CONFLICT(user_id) DO UPDATE SET preferences = excluded.preferences, updated = excluded.updated`, p.UserID, prefs, now())
	return err
}
