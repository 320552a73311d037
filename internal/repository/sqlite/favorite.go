package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/garnizeh/realty/pkg/models"
)

// AddFavorite is idempotent.
func (r *SQLiteRepo) AddFavorite(ctx context.Context, userID, projectID int64) error {
	_, err := r.conn.Exec(ctx, `INSERT INTO favorites (user_id, project_id, created) VALUES (?, ?, ?) ON CONFLICT(user_id, project_id) DO NOTHING`, userID, projectID, now())
	if err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

func (r *SQLiteRepo) RemoveFavorite(ctx context.Context, userID, projectID int64) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM favorites WHERE user_id = ? AND project_id = ?`, userID, projectID)
	return err
}

// ListFavorites returns the user's saved projects, most recently saved first.
func (r *SQLiteRepo) ListFavorites(ctx context.Context, userID int64) ([]models.Project, error) {
	cols := "p." + strings.ReplaceAll(projectColumns, ", ", ", p.")
	return r.queryProjects(ctx, `SELECT `+cols+` FROM favorites f JOIN projects p ON p.id = f.project_id WHERE f.user_id = ? ORDER BY f.created DESC, p.id DESC`, userID)
}
