package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Aghostraa/abcr-deployment-v2/internal/db"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/models"
)

func (r *SQLRepo) CreateCredential(ctx context.Context, c *models.Credential) (bool, error) {
	if c == nil {
		return false, fmt.Errorf("credential is nil")
	}
	if c.Created == 0 {
		c.Created = now()
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO credentials (email, password_hash, created) VALUES (?, ?, ?) ON CONFLICT (email) DO NOTHING`, c.Email, c.PasswordHash, c.Created)
	if err != nil {
		return false, err
	}
	return rowsAffected(res)
}

func (r *SQLRepo) GetCredential(ctx context.Context, email string) (*models.Credential, error) {
	var c models.Credential
	if err := r.conn.QueryRow(ctx, `SELECT email, password_hash, created FROM credentials WHERE email = ?`, email).Scan(&c.Email, &c.PasswordHash, &c.Created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *SQLRepo) CreateLoginCode(ctx context.Context, c *models.LoginCode) error {
	if c == nil {
		return fmt.Errorf("login code is nil")
	}
	_, err := r.conn.Exec(ctx, `INSERT INTO login_codes (code, email, expires) VALUES (?, ?, ?)`, c.Code, c.Email, c.Expires)
	return err
}

func (r *SQLRepo) ConsumeLoginCode(ctx context.Context, code string, at int64) (*models.LoginCode, error) {
	var out *models.LoginCode
	err := r.withTx(ctx, func(tx *db.Tx) error {
		var c models.LoginCode
		if err := tx.QueryRow(ctx, `SELECT code, email, expires FROM login_codes WHERE code = ?`, code).Scan(&c.Code, &c.Email, &c.Expires); err != nil {
			if err == sql.ErrNoRows {
				return nil
			}
			return err
		}

		res, err := tx.Exec(ctx, `DELETE FROM login_codes WHERE code = ?`, code)
		if err != nil {
			return err
		}
		deleted, err := rowsAffected(res)
		if err != nil {
			return err
		}

		if deleted && c.Expires > at {
			out = &c
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *SQLRepo) PurgeExpiredLoginCodes(ctx context.Context, at int64) (int64, error) {
	res, err := r.conn.Exec(ctx, `DELETE FROM login_codes WHERE expires <= ?`, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
