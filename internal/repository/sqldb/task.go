package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Aghostraa/abcr-deployment-v2/internal/db"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/models"
)

const taskColumns = `id, name, instructions, urgency, difficulty, priority, points, point_amplifier, project_id, category_id, status, assigned_user_id, created_by, created, deadline`

func scanTask(s scanner) (*models.Task, error) {
	var t models.Task
	var status string
	var category, assignee sql.NullString
	var deadline sql.NullInt64
	if err := s.Scan(&t.ID, &t.Name, &t.Instructions, &t.Urgency, &t.Difficulty, &t.Priority, &t.Points, &t.PointAmplifier,
		&t.ProjectID, &category, &status, &assignee, &t.CreatedBy, &t.Created, &deadline); err != nil {
		return nil, err
	}
	t.Status = models.TaskStatus(status)
	t.CategoryID = stringPtr(category)
	t.AssignedUserID = stringPtr(assignee)
	t.Deadline = int64Ptr(deadline)
	return &t, nil
}

func (r *SQLRepo) CreateTask(ctx context.Context, t *models.Task) error {
	if t == nil {
		return fmt.Errorf("task is nil")
	}
	if t.Created == 0 {
		t.Created = now()
	}
	if t.PointAmplifier == 0 {
		t.PointAmplifier = 1
	}

	_, err := r.conn.Exec(ctx, `INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Instructions, t.Urgency, t.Difficulty, t.Priority, t.Points, t.PointAmplifier,
		t.ProjectID, t.CategoryID, string(t.Status), t.AssignedUserID, t.CreatedBy, t.Created, t.Deadline)
	return err
}

func (r *SQLRepo) GetTask(ctx context.Context, id string) (*models.Task, error) {
	t, err := scanTask(r.conn.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

func (r *SQLRepo) ListTasks(ctx context.Context, f models.TaskFilter) ([]models.Task, error) {
	q := `SELECT ` + taskColumns + ` FROM tasks WHERE 1 = 1`
	var args []any
	if f.ProjectID != "" {
		q += ` AND project_id = ?`
		args = append(args, f.ProjectID)
	}
	if f.Status != "" {
		q += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.AssignedUserID != "" {
		q += ` AND assigned_user_id = ?`
		args = append(args, f.AssignedUserID)
	}
	q += ` ORDER BY created DESC`

	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}

	return out, rows.Err()
}

func (r *SQLRepo) ApplyTask(ctx context.Context, id, userID string) (bool, error) {
	res, err := r.conn.Exec(ctx, `UPDATE tasks SET status = ?, assigned_user_id = ? WHERE id = ? AND status = ? AND assigned_user_id IS NULL`,
		string(models.StatusAwaitingApplicantApproval), userID, id, string(models.StatusOpen))
	if err != nil {
		return false, fmt.Errorf("apply task: %w", err)
	}
	return rowsAffected(res)
}

func (r *SQLRepo) TransitionTask(ctx context.Context, id string, from, to models.TaskStatus, assignee string) (bool, error) {
	q := `UPDATE tasks SET status = ? WHERE id = ? AND status = ?`
	args := []any{string(to), id, string(from)}
	if assignee != "" {
		q += ` AND assigned_user_id = ?`
		args = append(args, assignee)
	}

	res, err := r.conn.Exec(ctx, q, args...)
	if err != nil {
		return false, fmt.Errorf("transition task: %w", err)
	}
	return rowsAffected(res)
}

func (r *SQLRepo) ReopenTask(ctx context.Context, id string) (bool, error) {
	res, err := r.conn.Exec(ctx, `UPDATE tasks SET status = ?, assigned_user_id = NULL WHERE id = ? AND status = ?`,
		string(models.StatusOpen), id, string(models.StatusAwaitingApplicantApproval))
	if err != nil {
		return false, fmt.Errorf("reopen task: %w", err)
	}
	return rowsAffected(res)
}

func (r *SQLRepo) SetAmplifier(ctx context.Context, id string, amplifier float64) (bool, error) {
	res, err := r.conn.Exec(ctx, `UPDATE tasks SET point_amplifier = ? WHERE id = ? AND status = ?`, amplifier, id, string(models.StatusOpen))
	if err != nil {
		return false, fmt.Errorf("set amplifier: %w", err)
	}
	return rowsAffected(res)
}

// CompleteTask returns nil when the task was not awaiting completion approval.
func (r *SQLRepo) CompleteTask(ctx context.Context, id string) (*models.PointTransaction, error) {
	var out *models.PointTransaction
	err := r.withTx(ctx, func(tx *db.Tx) error {
		res, err := tx.Exec(ctx, `UPDATE tasks SET status = ? WHERE id = ? AND status = ? AND assigned_user_id IS NOT NULL`,
			string(models.StatusComplete), id, string(models.StatusAwaitingCompletionApproval))
		if err != nil {
			return fmt.Errorf("complete task: %w", err)
		}
		if ok, err := rowsAffected(res); err != nil || !ok {
			return err
		}

		t, err := scanTask(tx.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
		if err != nil {
			return fmt.Errorf("reload task: %w", err)
		}

		pt := &models.PointTransaction{
			UserID:     *t.AssignedUserID,
			Amount:     t.AmplifiedPoints(),
			SourceType: models.SourceTask,
			SourceID:   t.ID,
			Reason:     "task completed: " + t.Name,
		}
		if _, err := r.award(ctx, tx, pt); err != nil {
			return err
		}
		out = pt
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}
