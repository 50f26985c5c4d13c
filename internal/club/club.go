// Package club holds the application operations. Every operation takes the
// caller's Identity explicitly, checks the access rules, and delegates the
// state change to a single conditional statement or transaction in the store.
package club

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Aghostraa/abcr-deployment-v2/internal/access"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/models"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/repository"
)

var (
	ErrUnauthenticated       = errors.New("authentication required")
	ErrForbidden             = errors.New("forbidden")
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
	ErrInvalid               = errors.New("invalid input")
	ErrAlreadyCompletedToday = errors.New("already completed today")
	ErrAlreadyCheckedIn      = errors.New("already checked in this week")
	ErrAlreadyRegistered     = errors.New("already registered for this event")
	ErrProjectHasTasks       = errors.New("project still has tasks")
)

// Identity is the authenticated caller of an operation. Role is resolved from
// the store for every request.
type Identity struct {
	UserID string
	Email  string
	Role   models.Role
}

func (id Identity) Authenticated() bool {
	return id.UserID != "" && id.Email != ""
}

type Options struct {
	Location     *time.Location
	EventPoints  int64
	WeeklyPoints int64
	Logger       *slog.Logger
}

type Service struct {
	store        repository.Store
	loc          *time.Location
	eventPoints  int64
	weeklyPoints int64
	logger       *slog.Logger
	now          func() time.Time
}

func New(store repository.Store, opts Options) *Service {
	s := &Service{
		store:        store,
		loc:          opts.Location,
		eventPoints:  opts.EventPoints,
		weeklyPoints: opts.WeeklyPoints,
		logger:       opts.Logger,
		now:          time.Now,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.eventPoints <= 0 {
		s.eventPoints = 20
	}
	if s.weeklyPoints <= 0 {
		s.weeklyPoints = 10
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Location is the club timezone used for calendar-day rules.
func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) authenticated(id Identity) error {
	if !id.Authenticated() {
		return ErrUnauthenticated
	}
	return nil
}

func (s *Service) require(id Identity, a access.Action) error {
	if err := s.authenticated(id); err != nil {
		return err
	}
	if !access.Allowed(id.Role, a) {
		return fmt.Errorf("%w: %s may not %s", ErrForbidden, id.Role, a)
	}
	return nil
}

func (s *Service) today() string {
	return s.now().In(s.loc).Format(time.DateOnly)
}

func (s *Service) nowMillis() int64 {
	return s.now().UTC().UnixMilli()
}
