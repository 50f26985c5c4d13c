package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/Aghostraa/abcr-deployment-v2/pkg/models"
)

const userColumns = `id, email, role, points, last_login, created`

func scanUser(s scanner) (*models.User, error) {
	var u models.User
	var role string
	var lastLogin sql.NullInt64
	if err := s.Scan(&u.ID, &u.Email, &role, &u.Points, &lastLogin, &u.Created); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	u.LastLogin = int64Ptr(lastLogin)
	return &u, nil
}

func (r *SQLRepo) EnsureProfile(ctx context.Context, u *models.User) (bool, error) {
	if u == nil {
		return false, fmt.Errorf("user is nil")
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO user_profiles (id, email, role, points, last_login, created) VALUES (?, ?, ?, 0, ?, ?) ON CONFLICT (email) DO NOTHING`, u.ID, u.Email, string(models.RoleVisitor), ts, ts)
	if err != nil {
		return false, fmt.Errorf("insert profile: %w", err)
	}
	created, err := rowsAffected(res)
	if err != nil {
		return false, err
	}

	if !created {
		if _, err := r.conn.Exec(ctx, `UPDATE user_profiles SET last_login = ? WHERE email = ?`, ts, u.Email); err != nil {
			return false, fmt.Errorf("touch last_login: %w", err)
		}
	}

	got, err := r.GetUserByEmail(ctx, u.Email)
	if err != nil {
		return false, err
	}
	if got == nil {
		return false, fmt.Errorf("profile for %s vanished", u.Email)
	}
	*u = *got

	return created, nil
}

func (r *SQLRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(r.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM user_profiles WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (r *SQLRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM user_profiles WHERE email = ?`, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// GetUserRole resolves the role by email; unknown identities are Visitors.
func (r *SQLRepo) GetUserRole(ctx context.Context, email string) (models.Role, error) {
	var role string
	if err := r.conn.QueryRow(ctx, `SELECT role FROM user_profiles WHERE email = ?`, email).Scan(&role); err != nil {
		if err == sql.ErrNoRows {
			return models.RoleVisitor, nil
		}
		return "", err
	}
	return models.Role(role), nil
}

func (r *SQLRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+userColumns+` FROM user_profiles ORDER BY created ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}

	return out, rows.Err()
}

func (r *SQLRepo) SetUserRole(ctx context.Context, id string, role models.Role) (bool, error) {
	res, err := r.conn.Exec(ctx, `UPDATE user_profiles SET role = ? WHERE id = ?`, string(role), id)
	if err != nil {
		return false, err
	}
	return rowsAffected(res)
}

func (r *SQLRepo) CountCompletedTasks(ctx context.Context, userID string) (int64, error) {
	var cnt int64
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE assigned_user_id = ? AND status = ?`, userID, string(models.StatusComplete)).Scan(&cnt); err != nil {
		return 0, err
	}
	return cnt, nil
}
