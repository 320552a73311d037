package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SaveDraft upserts serialized wizard state.
func (r *SQLiteRepo) SaveDraft(ctx context.Context, key string, state []byte) error {
	_, err := r.conn.Exec(ctx, `INSERT INTO wizard_drafts (draft_key, state_json, updated) VALUES (?, ?, ?) ON CONFLICT(draft_key) DO UPDATE SET state_json = excluded.state_json, updated = excluded.updated`, key, string(state), now())
	if err != nil {
		return fmt.Errorf("save draft %s: %w", key, err)
	}
	return nil
}

// LoadDraft returns nil when no draft is stored under key.
func (r *SQLiteRepo) LoadDraft(ctx context.Context, key string) ([]byte, error) {
	var s string
	if err := r.conn.QueryRow(ctx, `SELECT state_json FROM wizard_drafts WHERE draft_key = ?`, key).Scan(&s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load draft %s: %w", key, err)
	}
	return []byte(s), nil
}

func (r *SQLiteRepo) DeleteDraft(ctx context.Context, key string) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM wizard_drafts WHERE draft_key = ?`, key)
	return err
}
