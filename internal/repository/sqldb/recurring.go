package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/Aghostraa/abcr-deployment-v2/internal/db"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/models"
)

const recurringColumns = `id, name, description, points, created_by, created`

func scanRecurring(s scanner) (*models.RecurringTask, error) {
	var t models.RecurringTask
	var createdBy sql.NullString
	if err := s.Scan(&t.ID, &t.Name, &t.Description, &t.Points, &createdBy, &t.Created); err != nil {
		return nil, err
	}
	t.CreatedBy = stringPtr(createdBy)
	return &t, nil
}

func (r *SQLRepo) CreateRecurringTask(ctx context.Context, t *models.RecurringTask) error {
	if t == nil {
		return fmt.Errorf("recurring task is nil")
	}
	if t.Created == 0 {
		t.Created = now()
	}

	_, err := r.conn.Exec(ctx, `INSERT INTO recurring_tasks (`+recurringColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Description, t.Points, t.CreatedBy, t.Created)
	return err
}

func (r *SQLRepo) GetRecurringTask(ctx context.Context, id string) (*models.RecurringTask, error) {
	t, err := scanRecurring(r.conn.QueryRow(ctx, `SELECT `+recurringColumns+` FROM recurring_tasks WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

func (r *SQLRepo) ListRecurringTasks(ctx context.Context) ([]models.RecurringTask, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+recurringColumns+` FROM recurring_tasks ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RecurringTask
	for rows.Next() {
		t, err := scanRecurring(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}

	return out, rows.Err()
}

func (r *SQLRepo) HasCompletion(ctx context.Context, taskID, userID, day string) (bool, error) {
	var n int64
	err := r.conn.QueryRow(ctx, `SELECT COUNT(1) FROM recurring_task_completions WHERE recurring_task_id = ? AND user_id = ? AND completed_on = ?`,
		taskID, userID, day).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *SQLRepo) CompleteRecurringTask(ctx context.Context, c *models.RecurringCompletion, points int64) (bool, error) {
	if c == nil {
		return false, fmt.Errorf("completion is nil")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Created == 0 {
		c.Created = now()
	}

	var done bool
	err := r.withTx(ctx, func(tx *db.Tx) error {
		res, err := tx.Exec(ctx, `INSERT INTO recurring_task_completions (id, recurring_task_id, user_id, completed_on, created)
			VALUES (?, ?, ?, ?, ?) ON CONFLICT (recurring_task_id, user_id, completed_on) DO NOTHING`,
			c.ID, c.RecurringTaskID, c.UserID, c.CompletedOn, c.Created)
		if err != nil {
			return fmt.Errorf("insert completion: %w", err)
		}
		if done, err = rowsAffected(res); err != nil || !done {
			return err
		}

		_, err = r.award(ctx, tx, &models.PointTransaction{
			UserID:     c.UserID,
			Amount:     points,
			SourceType: models.SourceRecurring,
			SourceID:   c.RecurringTaskID + ":" + c.CompletedOn,
			Reason:     "recurring task completed",
		})
		return err
	})
	return done, err
}
