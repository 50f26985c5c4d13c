package club

import (
	"context"
	"fmt"

	"github.com/Aghostraa/abcr-deployment-v2/internal/access"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/models"
)

// Profile is a user with derived statistics.
type Profile struct {
	models.User
	CompletedTasks int64 `json:"completed_tasks"`
}

func (s *Service) profile(ctx context.Context, userID string) (*Profile, error) {
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	n, err := s.store.CountCompletedTasks(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("count completed tasks: %w", err)
	}
	return &Profile{User: *u, CompletedTasks: n}, nil
}

func (s *Service) Me(ctx context.Context, id Identity) (*Profile, error) {
	if err := s.authenticated(id); err != nil {
		return nil, err
	}
	return s.profile(ctx, id.UserID)
}

// GetUser is open to admins and to the user themselves.
func (s *Service) GetUser(ctx context.Context, id Identity, userID string) (*Profile, error) {
	if err := s.authenticated(id); err != nil {
		return nil, err
	}
	if userID != id.UserID && !access.Allowed(id.Role, access.ManageUsers) {
		return nil, fmt.Errorf("%w: cannot view other users", ErrForbidden)
	}
	return s.profile(ctx, userID)
}

func (s *Service) ListUsers(ctx context.Context, id Identity) ([]models.User, error) {
	if err := s.require(id, access.ManageUsers); err != nil {
		return nil, err
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// SetRole changes a user's role. Admins cannot change their own role.
func (s *Service) SetRole(ctx context.Context, id Identity, userID, role string) (*models.User, error) {
	if err := s.require(id, access.ManageUsers); err != nil {
		return nil, err
	}
	r, ok := models.ParseRole(role)
	if !ok {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalid, role)
	}
	if userID == id.UserID {
		return nil, fmt.Errorf("%w: admins cannot change their own role", ErrConflict)
	}

	ok, err := s.store.SetUserRole(ctx, userID, r)
	if err != nil {
		return nil, fmt.Errorf("set role: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}

	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	s.logger.Info("club: role changed", "user_id", userID, "role", string(r), "by", id.UserID)
	return u, nil
}
