package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Aghostraa/abcr-deployment-v2/internal/db"
)

const jobColumns = `id, type, payload, status, attempts, max_attempts, priority, scheduled_at, next_try_at, last_error, created, updated`

// Repository persists jobs. Timestamps are unix milliseconds.
type Repository struct {
	db  *db.DB
	now func() time.Time
}

func NewRepository(d *db.DB) *Repository {
	return &Repository{db: d, now: time.Now}
}

func (r *Repository) nowMillis() int64 {
	return r.now().UTC().UnixMilli()
}

// Enqueue inserts a job into the jobs table and returns the new ID
func (r *Repository) Enqueue(ctx context.Context, j *Job) (int64, error) {
	if j.MaxAttempts <= 0 {
		j.MaxAttempts = 5
	}
	if j.ScheduledAt.IsZero() {
		j.ScheduledAt = r.now()
	}
	payload := sql.NullString{String: string(j.Payload), Valid: len(j.Payload) > 0}

	ts := r.nowMillis()
	// RETURNING works on both SQLite and Postgres; pgx has no LastInsertId.
	q := `INSERT INTO jobs (type, payload, status, attempts, max_attempts, priority, scheduled_at, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`
	var id int64
	if err := r.db.QueryRow(ctx, q, j.Type, payload, StatusQueued, j.Attempts, j.MaxAttempts, j.Priority, j.ScheduledAt.UTC().UnixMilli(), ts, ts).Scan(&id); err != nil {
		return 0, fmt.Errorf("enqueue failed: %w", err)
	}
	j.ID = id
	j.Status = StatusQueued
	return id, nil
}

func scanJob(s interface{ Scan(...any) error }) (*Job, error) {
	var (
		j           Job
		payload     sql.NullString
		scheduledAt int64
		nextTry     sql.NullInt64
		lastError   sql.NullString
		created     int64
		updated     int64
	)
	if err := s.Scan(&j.ID, &j.Type, &payload, &j.Status, &j.Attempts, &j.MaxAttempts, &j.Priority, &scheduledAt, &nextTry, &lastError, &created, &updated); err != nil {
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
	if lastError.Valid {
		j.LastError = lastError.String
	}
	return &j, nil
}

// FetchNext claims the next due job respecting priority and schedule. It
// returns nil when nothing is due. A job claimed by another worker between
// the select and the claim is skipped.
func (r *Repository) FetchNext(ctx context.Context) (*Job, error) {
	now := r.nowMillis()
	q := `SELECT ` + jobColumns + ` FROM jobs WHERE status IN ('queued', 'retry') AND (next_try_at IS NULL OR next_try_at <= ?) AND scheduled_at <= ? ORDER BY priority ASC, scheduled_at ASC, id ASC LIMIT 1`
	j, err := scanJob(r.db.QueryRow(ctx, q, now, now))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch next job: %w", err)
	}

	res, err := r.db.Exec(ctx, `UPDATE jobs SET status = ?, updated = ? WHERE id = ? AND status = ?`, StatusRunning, now, j.ID, j.Status)
	if err != nil {
		return nil, fmt.Errorf("claim job %d: %w", j.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("claim job %d: %w", j.ID, err)
	}
	if n == 0 {
		return nil, nil
	}
	j.Status = StatusRunning
	return j, nil
}

// GetJob returns the job or nil when it does not exist (or was dead-lettered).
func (r *Repository) GetJob(ctx context.Context, id int64) (*Job, error) {
	j, err := scanJob(r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return j, nil
}

// UpdateJob updates attempts, status, next_try_at, last_error
func (r *Repository) UpdateJob(ctx context.Context, j *Job) error {
	var nextTry sql.NullInt64
	if j.NextTryAt != nil {
		nextTry = sql.NullInt64{Int64: j.NextTryAt.UTC().UnixMilli(), Valid: true}
	}
	lastError := sql.NullString{String: j.LastError, Valid: j.LastError != ""}
	q := `UPDATE jobs SET status = ?, attempts = ?, next_try_at = ?, last_error = ?, updated = ? WHERE id = ?`
	_, err := r.db.Exec(ctx, q, j.Status, j.Attempts, nextTry, lastError, r.nowMillis(), j.ID)
	return err
}

// MoveToDeadLetter moves a job to dead_letter_jobs and deletes the original
func (r *Repository) MoveToDeadLetter(ctx context.Context, j *Job) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	payload := sql.NullString{String: string(j.Payload), Valid: len(j.Payload) > 0}
	insert := `INSERT INTO dead_letter_jobs (job_id, type, payload, attempts, last_error, failed_at) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := tx.Exec(ctx, insert, j.ID, j.Type, payload, j.Attempts, j.LastError, r.nowMillis()); err != nil {
		return fmt.Errorf("insert dead letter: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM jobs WHERE id = ?`, j.ID); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return tx.Commit()
}

// Pending reports whether a job of typ is queued, running or waiting for a retry.
func (r *Repository) Pending(ctx context.Context, typ string) (bool, error) {
	var n int64
	q := `SELECT COUNT(*) FROM jobs WHERE type = ? AND status IN ('queued', 'running', 'retry')`
	if err := r.db.QueryRow(ctx, q, typ).Scan(&n); err != nil {
		return false, fmt.Errorf("count pending %s: %w", typ, err)
	}
	return n > 0, nil
}

// Counts returns the number of jobs per status plus the dead letter count
// under the key "dead".
func (r *Repository) Counts(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryRows(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var dead int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM dead_letter_jobs`).Scan(&dead); err != nil {
		return nil, fmt.Errorf("count dead letters: %w", err)
	}
	out["dead"] = dead
	return out, nil
}

// PurgeDone deletes finished jobs last updated before cutoff.
func (r *Repository) PurgeDone(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(ctx, `DELETE FROM jobs WHERE status = ? AND updated < ?`, StatusDone, cutoff.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge done jobs: %w", err)
	}
	return res.RowsAffected()
}
