package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Aghostraa/abcr-deployment-v2/internal/db"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/repository"
)

// SQLRepo implements repository interfaces using the internal DB wrapper. The
// same queries run on SQLite and Postgres.
type SQLRepo struct {
	conn   *db.DB
	logger *slog.Logger
}

// Ensure SQLRepo implements the public interfaces.
var _ repository.Store = (*SQLRepo)(nil)

func New(conn *db.DB, logger *slog.Logger) *SQLRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLRepo{conn: conn, logger: logger}
}

func now() int64 {
	return time.Now().UTC().UnixMilli()
}

// withTx runs fn in a transaction, committing when fn returns nil.
func (r *SQLRepo) withTx(ctx context.Context, fn func(tx *db.Tx) error) error {
	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

func rowsAffected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
