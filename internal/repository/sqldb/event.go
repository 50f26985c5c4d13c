package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Aghostraa/abcr-deployment-v2/internal/db"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/models"
)

const eventColumns = `id, name, description, event_date, event_link, event_type, created_by, created`

func scanEvent(s scanner) (*models.Event, error) {
	var e models.Event
	var typ string
	if err := s.Scan(&e.ID, &e.Name, &e.Description, &e.EventDate, &e.EventLink, &typ, &e.CreatedBy, &e.Created); err != nil {
		return nil, err
	}
	e.EventType = models.EventType(typ)
	return &e, nil
}

func (r *SQLRepo) CreateEvent(ctx context.Context, e *models.Event) error {
	if e == nil {
		return fmt.Errorf("event is nil")
	}
	if e.Created == 0 {
		e.Created = now()
	}
	if e.EventType == "" {
		e.EventType = models.EventInternal
	}

	_, err := r.conn.Exec(ctx, `INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Description, e.EventDate, e.EventLink, string(e.EventType), e.CreatedBy, e.Created)
	return err
}

func (r *SQLRepo) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	e, err := scanEvent(r.conn.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

func (r *SQLRepo) ListEvents(ctx context.Context) ([]models.Event, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+eventColumns+` FROM events ORDER BY event_date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}

	return out, rows.Err()
}

// DeleteEvent removes the event; attendances cascade, ledger rows stay.
func (r *SQLRepo) DeleteEvent(ctx context.Context, id string) (bool, error) {
	res, err := r.conn.Exec(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete event: %w", err)
	}
	return rowsAffected(res)
}

func (r *SQLRepo) RegisterAttendance(ctx context.Context, a *models.Attendance) (bool, error) {
	if a == nil {
		return false, fmt.Errorf("attendance is nil")
	}
	ts := now()
	a.Status = models.AttendanceRegistered
	a.Created, a.Updated = ts, ts

	res, err := r.conn.Exec(ctx, `INSERT INTO event_attendances (event_id, user_id, status, created, updated)
		VALUES (?, ?, ?, ?, ?) ON CONFLICT (event_id, user_id) DO NOTHING`,
		a.EventID, a.UserID, string(a.Status), a.Created, a.Updated)
	if err != nil {
		return false, fmt.Errorf("register attendance: %w", err)
	}
	return rowsAffected(res)
}

const attendanceSelect = `SELECT a.event_id, a.user_id, COALESCE(u.email, ''), a.status, a.created, a.updated
	FROM event_attendances a LEFT JOIN user_profiles u ON u.id = a.user_id`

func scanAttendance(s scanner) (*models.Attendance, error) {
	var a models.Attendance
	var status string
	if err := s.Scan(&a.EventID, &a.UserID, &a.Email, &status, &a.Created, &a.Updated); err != nil {
		return nil, err
	}
	a.Status = models.AttendanceStatus(status)
	return &a, nil
}

func (r *SQLRepo) GetAttendance(ctx context.Context, eventID, userID string) (*models.Attendance, error) {
	a, err := scanAttendance(r.conn.QueryRow(ctx, attendanceSelect+` WHERE a.event_id = ? AND a.user_id = ?`, eventID, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (r *SQLRepo) ListAttendances(ctx context.Context, eventID string) ([]models.Attendance, error) {
	rows, err := r.conn.QueryRows(ctx, attendanceSelect+` WHERE a.event_id = ? ORDER BY a.created`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Attendance
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}

	return out, rows.Err()
}

func eventTransaction(eventID, userID string, points int64) *models.PointTransaction {
	return &models.PointTransaction{
		UserID:     userID,
		Amount:     points,
		SourceType: models.SourceEvent,
		SourceID:   eventID,
		Reason:     "event attendance",
	}
}

// CheckIn reports whether points were credited by this call.
func (r *SQLRepo) CheckIn(ctx context.Context, eventID, userID string, points int64) (bool, error) {
	var credited bool
	err := r.withTx(ctx, func(tx *db.Tx) error {
		ts := now()
		if _, err := tx.Exec(ctx, `INSERT INTO event_attendances (event_id, user_id, status, created, updated)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (event_id, user_id) DO UPDATE SET status = excluded.status, updated = excluded.updated`,
			eventID, userID, string(models.AttendanceApproved), ts, ts); err != nil {
			return fmt.Errorf("upsert attendance: %w", err)
		}

		var err error
		credited, err = r.award(ctx, tx, eventTransaction(eventID, userID, points))
		return err
	})
	return credited, err
}

func (r *SQLRepo) ApproveAttendances(ctx context.Context, eventID string, userIDs []string, points int64) ([]string, error) {
	var credited []string
	err := r.withTx(ctx, func(tx *db.Tx) error {
		ts := now()
		for _, uid := range userIDs {
			res, err := tx.Exec(ctx, `UPDATE event_attendances SET status = ?, updated = ? WHERE event_id = ? AND user_id = ? AND status = ?`,
				string(models.AttendanceApproved), ts, eventID, uid, string(models.AttendanceRegistered))
			if err != nil {
				return fmt.Errorf("approve attendance: %w", err)
			}
			approved, err := rowsAffected(res)
			if err != nil {
				return err
			}
			if !approved {
				continue
			}

			ok, err := r.award(ctx, tx, eventTransaction(eventID, uid, points))
			if err != nil {
				return err
			}
			if ok {
				credited = append(credited, uid)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("events: attendances approved", "event_id", eventID, "requested", len(userIDs), "credited", len(credited))
	return credited, nil
}
