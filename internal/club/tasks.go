package club

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Aghostraa/abcr-deployment-v2/internal/access"
	"github.com/Aghostraa/abcr-deployment-v2/internal/lifecycle"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/models"
)

type TaskInput struct {
	Name           string  `json:"name"`
	Instructions   string  `json:"instructions"`
	Urgency        int     `json:"urgency"`
	Difficulty     int     `json:"difficulty"`
	Priority       int     `json:"priority"`
	PointAmplifier float64 `json:"point_amplifier"`
	ProjectID      string  `json:"project_id"`
	CategoryID     string  `json:"category_id"`
	Deadline       *int64  `json:"deadline"`
}

// TaskResult is a task after a transition, with the award it produced.
type TaskResult struct {
	Task  *models.Task             `json:"task"`
	Award *models.PointTransaction `json:"award,omitempty"`
}

func (s *Service) ListTasks(ctx context.Context, id Identity, f models.TaskFilter) ([]models.Task, error) {
	if err := s.require(id, access.ViewTasks); err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasks(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *Service) GetTask(ctx context.Context, id Identity, taskID string) (*models.Task, error) {
	if err := s.require(id, access.ViewTasks); err != nil {
		return nil, err
	}
	return s.loadTask(ctx, taskID)
}

func (s *Service) loadTask(ctx context.Context, taskID string) (*models.Task, error) {
	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if t == nil {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}
	return t, nil
}

func (s *Service) CreateTask(ctx context.Context, id Identity, in TaskInput) (*models.Task, error) {
	if err := s.require(id, access.CreateTask); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	points, err := lifecycle.Points(in.Urgency, in.Difficulty, in.Priority)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	amp := in.PointAmplifier
	if amp == 0 {
		amp = lifecycle.MinAmplifier
	}
	if err := lifecycle.CheckAmplifier(models.StatusOpen, amp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	p, err := s.store.GetProject(ctx, in.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: unknown project %q", ErrInvalid, in.ProjectID)
	}
	if p.Status != models.ProjectActive {
		return nil, fmt.Errorf("%w: project %s is %s", ErrConflict, p.ID, p.Status)
	}

	var category *string
	if in.CategoryID != "" {
		ok, err := s.categoryExists(ctx, in.CategoryID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: unknown category %q", ErrInvalid, in.CategoryID)
		}
		category = &in.CategoryID
	}

	t := &models.Task{
		ID:             uuid.NewString(),
		Name:           name,
		Instructions:   in.Instructions,
		Urgency:        in.Urgency,
		Difficulty:     in.Difficulty,
		Priority:       in.Priority,
		Points:         points,
		PointAmplifier: amp,
		ProjectID:      p.ID,
		CategoryID:     category,
		Status:         models.StatusOpen,
		CreatedBy:      id.UserID,
		Deadline:       in.Deadline,
	}
	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.logger.Info("club: task created", "task_id", t.ID, "project_id", p.ID, "points", points, "by", id.UserID)
	return t, nil
}

func (s *Service) categoryExists(ctx context.Context, categoryID string) (bool, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return false, fmt.Errorf("list categories: %w", err)
	}
	for _, c := range cats {
		if c.ID == categoryID {
			return true, nil
		}
	}
	return false, nil
}

func transitionAction(tr lifecycle.Transition) (access.Action, bool) {
	switch tr {
	case lifecycle.Apply:
		return access.ApplyTask, true
	case lifecycle.ApproveApplication, lifecycle.RejectApplication, lifecycle.ApproveCompletion:
		return access.ApproveTask, true
	}
	// MarkDone is gated on the assignee, not on a role.
	return "", false
}

// Transition applies a lifecycle step to a task on behalf of id.
func (s *Service) Transition(ctx context.Context, id Identity, taskID string, tr lifecycle.Transition) (*TaskResult, error) {
	if err := s.authenticated(id); err != nil {
		return nil, err
	}
	if a, ok := transitionAction(tr); ok {
		if err := s.require(id, a); err != nil {
			return nil, err
		}
	}

	t, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if tr == lifecycle.MarkDone && t.Status == models.StatusInProgress && !access.CanMarkDone(id.UserID, t) {
		return nil, fmt.Errorf("%w: only the assignee can mark the task done", ErrForbidden)
	}
	if _, err := lifecycle.Next(t, tr, id.UserID); err != nil {
		return nil, lifecycleError(err)
	}

	var (
		ok    bool
		award *models.PointTransaction
	)
	switch tr {
	case lifecycle.Apply:
		ok, err = s.store.ApplyTask(ctx, t.ID, id.UserID)
	case lifecycle.ApproveApplication:
		ok, err = s.store.TransitionTask(ctx, t.ID, models.StatusAwaitingApplicantApproval, models.StatusInProgress, "")
	case lifecycle.RejectApplication:
		ok, err = s.store.ReopenTask(ctx, t.ID)
	case lifecycle.MarkDone:
		ok, err = s.store.TransitionTask(ctx, t.ID, models.StatusInProgress, models.StatusAwaitingCompletionApproval, id.UserID)
	case lifecycle.ApproveCompletion:
		award, err = s.store.CompleteTask(ctx, t.ID)
		ok = award != nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s task: %w", tr, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: task %s changed concurrently", ErrConflict, t.ID)
	}

	updated, err := s.loadTask(ctx, t.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("club: task transition", "task_id", t.ID, "transition", string(tr),
		"from", string(t.Status), "to", string(updated.Status), "by", id.UserID)
	if award != nil {
		s.logger.Info("club: task points awarded", "task_id", t.ID, "user_id", award.UserID, "amount", award.Amount)
	}

	return &TaskResult{Task: updated, Award: award}, nil
}

// UpdateStatus maps a requested target status onto the lifecycle transition
// that reaches it from the task's current status.
func (s *Service) UpdateStatus(ctx context.Context, id Identity, taskID string, target models.TaskStatus) (*TaskResult, error) {
	if err := s.authenticated(id); err != nil {
		return nil, err
	}
	t, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	tr, err := lifecycle.ForTarget(t.Status, target)
	if err != nil {
		return nil, lifecycleError(err)
	}
	return s.Transition(ctx, id, taskID, tr)
}

func (s *Service) SetAmplifier(ctx context.Context, id Identity, taskID string, amp float64) (*models.Task, error) {
	if err := s.require(id, access.AmplifyTask); err != nil {
		return nil, err
	}
	t, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.CheckAmplifier(t.Status, amp); err != nil {
		return nil, lifecycleError(err)
	}

	ok, err := s.store.SetAmplifier(ctx, t.ID, amp)
	if err != nil {
		return nil, fmt.Errorf("set amplifier: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: task %s is no longer open", ErrConflict, t.ID)
	}

	s.logger.Info("club: task amplified", "task_id", t.ID, "amplifier", amp, "by", id.UserID)
	return s.loadTask(ctx, t.ID)
}

func lifecycleError(err error) error {
	switch {
	case errors.Is(err, lifecycle.ErrNotAssignee):
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	case errors.Is(err, lifecycle.ErrInvalidAmplifier), errors.Is(err, lifecycle.ErrInvalidRating):
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
