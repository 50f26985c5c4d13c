package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Aghostraa/abcr-deployment-v2/internal/db"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/models"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/repository"
)

const projectSelect = `SELECT p.id, p.name, p.description, p.status, p.start_date, p.end_date, p.created,
	(SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id AND t.status = 'Open')
	FROM projects p`

func scanProject(s scanner) (*models.Project, error) {
	var p models.Project
	var status string
	var start, end sql.NullInt64
	if err := s.Scan(&p.ID, &p.Name, &p.Description, &status, &start, &end, &p.Created, &p.OpenTasks); err != nil {
		return nil, err
	}
	p.Status = models.ProjectStatus(status)
	p.StartDate = int64Ptr(start)
	p.EndDate = int64Ptr(end)
	return &p, nil
}

func (r *SQLRepo) CreateProject(ctx context.Context, p *models.Project) error {
	if p == nil {
		return fmt.Errorf("project is nil")
	}
	if p.Created == 0 {
		p.Created = now()
	}

	_, err := r.conn.Exec(ctx, `INSERT INTO projects (id, name, description, status, start_date, end_date, created) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, string(p.Status), p.StartDate, p.EndDate, p.Created)
	return err
}

func (r *SQLRepo) GetProject(ctx context.Context, id string) (*models.Project, error) {
	p, err := scanProject(r.conn.QueryRow(ctx, projectSelect+` WHERE p.id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// ListProjects returns projects newest first; an empty status lists all.
func (r *SQLRepo) ListProjects(ctx context.Context, status models.ProjectStatus) ([]models.Project, error) {
	q := projectSelect
	var args []any
	if status != "" {
		q += ` WHERE p.status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY p.created DESC`

	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}

	return out, rows.Err()
}

func (r *SQLRepo) UpdateProject(ctx context.Context, p *models.Project) error {
	if p == nil {
		return fmt.Errorf("project is nil")
	}

	_, err := r.conn.Exec(ctx, `UPDATE projects SET name = ?, description = ?, status = ?, start_date = ?, end_date = ? WHERE id = ?`,
		p.Name, p.Description, string(p.Status), p.StartDate, p.EndDate, p.ID)
	return err
}

func (r *SQLRepo) DeleteProject(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := r.withTx(ctx, func(tx *db.Tx) error {
		var cnt int64
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE project_id = ?`, id).Scan(&cnt); err != nil {
			return err
		}
		if cnt > 0 {
			return fmt.Errorf("project %s has %d tasks: %w", id, cnt, repository.ErrHasDependents)
		}

		res, err := tx.Exec(ctx, `DELETE FROM projects WHERE id = ?`, id)
		if err != nil {
			return err
		}
		deleted, err = rowsAffected(res)
		return err
	})

	return deleted, err
}

func (r *SQLRepo) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	return out, rows.Err()
}
