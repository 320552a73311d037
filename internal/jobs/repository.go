package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/garnizeh/realty/internal/db"
)

// Repository persists the queue in the jobs and dead_letter_jobs tables.
// Timestamps are unix milliseconds.
type Repository struct {
	db *db.DB
}

func NewRepository(d *db.DB) *Repository { return &Repository{db: d} }

const jobColumns = `id, type, payload, status, attempts, max_attempts, priority, scheduled_at, next_try_at, last_error, created, updated`

func nowMilli() int64 { return time.Now().UTC().UnixMilli() }

// Enqueue stores a queued job and returns its id.
func (r *Repository) Enqueue(ctx context.Context, j *Job) (int64, error) {
	if j.MaxAttempts <= 0 {
		j.MaxAttempts = 5
	}
	if j.ScheduledAt.IsZero() {
		j.ScheduledAt = time.Now()
	}
	now := nowMilli()
	res, err := r.db.Exec(ctx,
		`INSERT INTO jobs(type, payload, status, attempts, max_attempts, priority, scheduled_at, created, updated) VALUES(?,?,?,?,?,?,?,?,?)`,
		j.Type, string(j.Payload), StatusQueued, j.Attempts, j.MaxAttempts, j.Priority, j.ScheduledAt.UTC().UnixMilli(), now, now)
	if err != nil {
		return 0, fmt.Errorf("enqueue %s: %w", j.Type, err)
	}
	return res.LastInsertId()
}

// Claim marks the next runnable job as running and returns it, lowest
// priority value first. It returns (nil, nil) when nothing is due.
func (r *Repository) Claim(ctx context.Context) (*Job, error) {
	now := nowMilli()
	row := r.db.QueryRow(ctx, `UPDATE jobs SET status = ?, updated = ?
		WHERE id = (
			SELECT id FROM jobs
			WHERE status IN (?, ?) AND scheduled_at <= ? AND (next_try_at IS NULL OR next_try_at <= ?)
			ORDER BY priority ASC, scheduled_at ASC, id ASC LIMIT 1
		)
		RETURNING `+jobColumns,
		StatusRunning, now, StatusQueued, StatusRetry, now, now)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return j, nil
}

func scanJob(row *sql.Row) (*Job, error) {
	var (
		j                             Job
		payload, lastError            sql.NullString
		nextTry                       sql.NullInt64
		scheduledAt, created, updated int64
	)
	if err := row.Scan(&j.ID, &j.Type, &payload, &j.Status, &j.Attempts, &j.MaxAttempts, &j.Priority, &scheduledAt, &nextTry, &lastError, &created, &updated); err != nil {
		return nil, err
	}
	j.ScheduledAt = time.UnixMilli(scheduledAt)
	j.Created = time.UnixMilli(created)
	j.Updated = time.UnixMilli(updated)
	if payload.Valid {
		j.Payload = json.RawMessage(payload.String)
	}
	if nextTry.Valid {
		t := time.UnixMilli(nextTry.Int64)
		j.NextTryAt = &t
	}
	j.LastError = lastError.String
	return &j, nil
}

// Get returns one job, or (nil, nil) when it no longer exists.
func (r *Repository) Get(ctx context.Context, id int64) (*Job, error) {
	j, err := scanJob(r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %d: %w", id, err)
	}
	return j, nil
}

// UpdateJob saves the status, attempts, next_try_at and last_error of j.
func (r *Repository) UpdateJob(ctx context.Context, j *Job) error {
	var nextTry any
	if j.NextTryAt != nil {
		nextTry = j.NextTryAt.UTC().UnixMilli()
	}
	_, err := r.db.Exec(ctx, `UPDATE jobs SET status = ?, attempts = ?, next_try_at = ?, last_error = ?, updated = ? WHERE id = ?`,
		j.Status, j.Attempts, nextTry, j.LastError, nowMilli(), j.ID)
	if err != nil {
		return fmt.Errorf("update job %d: %w", j.ID, err)
	}
	return nil
}

// MoveToDeadLetter copies j into dead_letter_jobs and removes it from the
// queue in one transaction.
func (r *Repository) MoveToDeadLetter(ctx context.Context, j *Job) error {
	return r.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO dead_letter_jobs(job_id, type, payload, attempts, last_error, failed_at) VALUES(?,?,?,?,?,?)`,
			j.ID, j.Type, string(j.Payload), j.Attempts, j.LastError, nowMilli()); err != nil {
			return fmt.Errorf("insert dead letter: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, j.ID); err != nil {
			return fmt.Errorf("delete job %d: %w", j.ID, err)
		}
		return nil
	})
}

// RequeueRunning puts jobs left running by a previous process back in the
// queue. It returns how many were requeued.
func (r *Repository) RequeueRunning(ctx context.Context) (int64, error) {
	res, err := r.db.Exec(ctx, `UPDATE jobs SET status = ?, updated = ? WHERE status = ?`, StatusRetry, nowMilli(), StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("requeue running jobs: %w", err)
	}
	return res.RowsAffected()
}

// DeadLetters lists the most recent failed jobs.
func (r *Repository) DeadLetters(ctx context.Context, limit int) ([]DeadLetter, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryRows(ctx, `SELECT id, job_id, type, payload, attempts, last_error, failed_at FROM dead_letter_jobs ORDER BY failed_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer rows.Close()

	var out []DeadLetter
	for rows.Next() {
		var (
			d                  DeadLetter
			payload, lastError sql.NullString
			failedAt           int64
		)
		if err := rows.Scan(&d.ID, &d.JobID, &d.Type, &payload, &d.Attempts, &lastError, &failedAt); err != nil {
			return nil, fmt.Errorf("scan dead letter: %w", err)
		}
		d.Payload = json.RawMessage(payload.String)
		d.LastError = lastError.String
		d.FailedAt = time.UnixMilli(failedAt)
		out = append(out, d)
	}
	return out, rows.Err()
}

// Pending counts jobs waiting to run.
func (r *Repository) Pending(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(1) FROM jobs WHERE status IN (?, ?)`, StatusQueued, StatusRetry).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending jobs: %w", err)
	}
	return n, nil
}
