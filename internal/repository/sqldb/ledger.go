package sqldb

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Aghostraa/abcr-deployment-v2/internal/db"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/models"
)

// award appends t to the ledger and bumps the cached profile total. It reports
// false without touching the profile when the idempotency key already exists.
func (r *SQLRepo) award(ctx context.Context, tx *db.Tx, t *models.PointTransaction) (bool, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Created == 0 {
		t.Created = now()
	}

	res, err := tx.Exec(ctx, `INSERT INTO point_transactions (id, user_id, amount, source_type, source_id, reason, created)
		VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT (user_id, source_type, source_id) DO NOTHING`,
		t.ID, t.UserID, t.Amount, t.SourceType, t.SourceID, t.Reason, t.Created)
	if err != nil {
		return false, fmt.Errorf("insert point transaction: %w", err)
	}
	ok, err := rowsAffected(res)
	if err != nil || !ok {
		return false, err
	}

	if _, err := tx.Exec(ctx, `UPDATE user_profiles SET points = points + ? WHERE id = ?`, t.Amount, t.UserID); err != nil {
		return false, fmt.Errorf("credit profile: %w", err)
	}

	r.logger.Debug("ledger: points awarded",
		"user_id", t.UserID, "amount", t.Amount, "source", t.SourceType+":"+t.SourceID)
	return true, nil
}

func (r *SQLRepo) Award(ctx context.Context, t *models.PointTransaction) (bool, error) {
	if t == nil {
		return false, fmt.Errorf("transaction is nil")
	}

	var ok bool
	err := r.withTx(ctx, func(tx *db.Tx) error {
		var err error
		ok, err = r.award(ctx, tx, t)
		return err
	})
	return ok, err
}

func (r *SQLRepo) HasTransaction(ctx context.Context, userID, sourceType, sourceID string) (bool, error) {
	var n int64
	err := r.conn.QueryRow(ctx, `SELECT COUNT(1) FROM point_transactions WHERE user_id = ? AND source_type = ? AND source_id = ?`,
		userID, sourceType, sourceID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *SQLRepo) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]models.PointTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT id, user_id, amount, source_type, source_id, reason, created
		FROM point_transactions WHERE user_id = ? ORDER BY created DESC, id LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PointTransaction
	for rows.Next() {
		var t models.PointTransaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.SourceType, &t.SourceID, &t.Reason, &t.Created); err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	return out, rows.Err()
}

func (r *SQLRepo) CountTransactions(ctx context.Context, userID string) (int64, error) {
	var n int64
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(1) FROM point_transactions WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Leaderboard ranks members by total points. Ties share a rank and the next
// rank skips accordingly. Visitors are excluded.
func (r *SQLRepo) Leaderboard(ctx context.Context, monthStart int64, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT u.id, u.email, u.points,
			CAST(COALESCE((SELECT SUM(pt.amount) FROM point_transactions pt WHERE pt.user_id = u.id AND pt.created >= ?), 0) AS BIGINT)
		FROM user_profiles u
		WHERE u.role <> ?
		ORDER BY u.points DESC, u.email
		LIMIT ?`, monthStart, string(models.RoleVisitor), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Email, &e.TotalPoints, &e.MonthlyPoints); err != nil {
			return nil, err
		}
		e.Email = shortEmail(e.Email)
		switch {
		case len(out) == 0:
			e.Rank = 1
		case out[len(out)-1].TotalPoints == e.TotalPoints:
			e.Rank = out[len(out)-1].Rank
		default:
			e.Rank = len(out) + 1
		}
		out = append(out, e)
	}

	return out, rows.Err()
}

// shortEmail keeps the local part of an address for public display.
func shortEmail(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}

func (r *SQLRepo) ReconcilePoints(ctx context.Context) (int64, error) {
	res, err := r.conn.Exec(ctx, `UPDATE user_profiles
		SET points = COALESCE((SELECT SUM(pt.amount) FROM point_transactions pt WHERE pt.user_id = user_profiles.id), 0)
		WHERE points <> COALESCE((SELECT SUM(pt.amount) FROM point_transactions pt WHERE pt.user_id = user_profiles.id), 0)`)
	if err != nil {
		return 0, fmt.Errorf("reconcile points: %w", err)
	}
	return res.RowsAffected()
}
