package club

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Aghostraa/abcr-deployment-v2/internal/access"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/models"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/repository"
)

type ProjectInput struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Status      models.ProjectStatus `json:"status"`
}

// ProjectPatch carries the fields to change; nil fields are kept.
type ProjectPatch struct {
	Name        *string               `json:"name"`
	Description *string               `json:"description"`
	Status      *models.ProjectStatus `json:"status"`
}

func validProjectStatus(st models.ProjectStatus) bool {
	return st == models.ProjectActive || st == models.ProjectConcluded
}

func (s *Service) ListProjects(ctx context.Context, id Identity, status models.ProjectStatus) ([]models.Project, error) {
	if err := s.require(id, access.ViewClub); err != nil {
		return nil, err
	}
	if status != "" && !validProjectStatus(status) {
		return nil, fmt.Errorf("%w: unknown project status %q", ErrInvalid, status)
	}
	ps, err := s.store.ListProjects(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return ps, nil
}

func (s *Service) CreateProject(ctx context.Context, id Identity, in ProjectInput) (*models.Project, error) {
	if err := s.require(id, access.ManageProjects); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if in.Status == "" {
		in.Status = models.ProjectActive
	}
	if !validProjectStatus(in.Status) {
		return nil, fmt.Errorf("%w: unknown project status %q", ErrInvalid, in.Status)
	}

	now := s.nowMillis()
	p := &models.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: in.Description,
		Status:      in.Status,
		StartDate:   &now,
	}
	if p.Status == models.ProjectConcluded {
		p.EndDate = &now
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	s.logger.Info("club: project created", "project_id", p.ID, "by", id.UserID)
	return p, nil
}

// UpdateProject applies patch. Moving to active stamps start_date and clears
// end_date; moving to concluded stamps end_date.
func (s *Service) UpdateProject(ctx context.Context, id Identity, projectID string, patch ProjectPatch) (*models.Project, error) {
	if err := s.require(id, access.ManageProjects); err != nil {
		return nil, err
	}

	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: project %s", ErrNotFound, projectID)
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrInvalid)
		}
		p.Name = name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Status != nil && *patch.Status != p.Status {
		if !validProjectStatus(*patch.Status) {
			return nil, fmt.Errorf("%w: unknown project status %q", ErrInvalid, *patch.Status)
		}
		now := s.nowMillis()
		p.Status = *patch.Status
		switch p.Status {
		case models.ProjectActive:
			p.StartDate = &now
			p.EndDate = nil
		case models.ProjectConcluded:
			p.EndDate = &now
		}
	}

	if err := s.store.UpdateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return p, nil
}

func (s *Service) DeleteProject(ctx context.Context, id Identity, projectID string) error {
	if err := s.require(id, access.ManageProjects); err != nil {
		return err
	}

	ok, err := s.store.DeleteProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrHasDependents) {
			return fmt.Errorf("%w: %v", ErrProjectHasTasks, err)
		}
		return fmt.Errorf("delete project: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: project %s", ErrNotFound, projectID)
	}

	s.logger.Info("club: project deleted", "project_id", projectID, "by", id.UserID)
	return nil
}

func (s *Service) ListCategories(ctx context.Context, id Identity) ([]models.Category, error) {
	if err := s.require(id, access.ViewTasks); err != nil {
		return nil, err
	}
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}
