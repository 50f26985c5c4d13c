package club

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Aghostraa/abcr-deployment-v2/internal/access"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/models"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
	defaultPageSize         = 20
	maxPageSize             = 100
)

type RecurringInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Points      int64  `json:"points"`
}

type WeeklyStatus struct {
	CheckedIn     bool      `json:"checkedIn"`
	Week          string    `json:"week"`
	NextAvailable time.Time `json:"nextAvailable"`
}

type TransactionPage struct {
	Items  []models.PointTransaction `json:"items"`
	Total  int64                     `json:"total"`
	Limit  int                       `json:"limit"`
	Offset int                       `json:"offset"`
}

func (s *Service) ListRecurring(ctx context.Context, id Identity) ([]models.RecurringTask, error) {
	if err := s.require(id, access.ViewTasks); err != nil {
		return nil, err
	}
	list, err := s.store.ListRecurringTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recurring tasks: %w", err)
	}

	day := s.today()
	for i := range list {
		done, err := s.store.HasCompletion(ctx, list[i].ID, id.UserID, day)
		if err != nil {
			return nil, fmt.Errorf("lookup completion: %w", err)
		}
		can := !done
		list[i].CanComplete = &can
	}
	return list, nil
}

// CanCompleteRecurring reports whether the caller may still complete the task
// today.
func (s *Service) CanCompleteRecurring(ctx context.Context, id Identity, taskID string) (bool, error) {
	if err := s.require(id, access.CompleteRecurring); err != nil {
		return false, err
	}
	if _, err := s.loadRecurring(ctx, taskID); err != nil {
		return false, err
	}
	done, err := s.store.HasCompletion(ctx, taskID, id.UserID, s.today())
	if err != nil {
		return false, fmt.Errorf("lookup completion: %w", err)
	}
	return !done, nil
}

func (s *Service) loadRecurring(ctx context.Context, taskID string) (*models.RecurringTask, error) {
	t, err := s.store.GetRecurringTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get recurring task: %w", err)
	}
	if t == nil {
		return nil, fmt.Errorf("%w: recurring task %s", ErrNotFound, taskID)
	}
	return t, nil
}

func (s *Service) CreateRecurring(ctx context.Context, id Identity, in RecurringInput) (*models.RecurringTask, error) {
	if err := s.require(id, access.ManageRecurring); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if in.Points <= 0 {
		return nil, fmt.Errorf("%w: points must be positive", ErrInvalid)
	}

	creator := id.UserID
	t := &models.RecurringTask{
		ID:          uuid.NewString(),
		Name:        name,
		Description: in.Description,
		Points:      in.Points,
		CreatedBy:   &creator,
	}
	if err := s.store.CreateRecurringTask(ctx, t); err != nil {
		return nil, fmt.Errorf("create recurring task: %w", err)
	}
	return t, nil
}

// CompleteRecurring credits the caller for a recurring task at most once per
// club-timezone day.
func (s *Service) CompleteRecurring(ctx context.Context, id Identity, taskID string) (*models.RecurringCompletion, error) {
	if err := s.require(id, access.CompleteRecurring); err != nil {
		return nil, err
	}
	t, err := s.loadRecurring(ctx, taskID)
	if err != nil {
		return nil, err
	}

	c := &models.RecurringCompletion{
		RecurringTaskID: t.ID,
		UserID:          id.UserID,
		CompletedOn:     s.today(),
	}
	ok, err := s.store.CompleteRecurringTask(ctx, c, t.Points)
	if err != nil {
		return nil, fmt.Errorf("complete recurring task: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyCompletedToday
	}

	s.logger.Info("club: recurring task completed", "task_id", t.ID, "user_id", id.UserID, "points", t.Points)
	return c, nil
}

// isoWeek returns the ISO week key of now in loc and the start of the next
// week.
func isoWeek(now time.Time, loc *time.Location) (string, time.Time) {
	local := now.In(loc)
	year, week := local.ISOWeek()

	// Monday = 0
	offset := (int(local.Weekday()) + 6) % 7
	monday := time.Date(local.Year(), local.Month(), local.Day()-offset, 0, 0, 0, 0, loc)
	return fmt.Sprintf("%04d-W%02d", year, week), monday.AddDate(0, 0, 7)
}

func (s *Service) WeeklyStatus(ctx context.Context, id Identity) (*WeeklyStatus, error) {
	if err := s.require(id, access.WeeklyCheckin); err != nil {
		return nil, err
	}
	week, next := isoWeek(s.now(), s.loc)
	done, err := s.store.HasTransaction(ctx, id.UserID, models.SourceWeeklyCheckin, week)
	if err != nil {
		return nil, fmt.Errorf("lookup weekly check-in: %w", err)
	}
	return &WeeklyStatus{CheckedIn: done, Week: week, NextAvailable: next}, nil
}

// WeeklyCheckin awards the weekly bonus once per ISO week.
func (s *Service) WeeklyCheckin(ctx context.Context, id Identity) (*models.PointTransaction, error) {
	if err := s.require(id, access.WeeklyCheckin); err != nil {
		return nil, err
	}
	week, _ := isoWeek(s.now(), s.loc)

	t := &models.PointTransaction{
		UserID:     id.UserID,
		Amount:     s.weeklyPoints,
		SourceType: models.SourceWeeklyCheckin,
		SourceID:   week,
		Reason:     "weekly check-in",
	}
	ok, err := s.store.Award(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("weekly check-in: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyCheckedIn
	}
	return t, nil
}

func (s *Service) Leaderboard(ctx context.Context, id Identity, limit int) ([]models.LeaderboardEntry, error) {
	if err := s.require(id, access.ViewClub); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	local := s.now().In(s.loc)
	monthStart := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, s.loc)

	board, err := s.store.Leaderboard(ctx, monthStart.UTC().UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	if board == nil {
		board = []models.LeaderboardEntry{}
	}
	return board, nil
}

func (s *Service) MyTransactions(ctx context.Context, id Identity, limit, offset int) (*TransactionPage, error) {
	if err := s.authenticated(id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	items, err := s.store.ListTransactions(ctx, id.UserID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	total, err := s.store.CountTransactions(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("count transactions: %w", err)
	}
	if items == nil {
		items = []models.PointTransaction{}
	}
	return &TransactionPage{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}
