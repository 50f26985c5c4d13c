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

type EventInput struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	EventDate   string           `json:"event_date"`
	EventLink   string           `json:"event_link"`
	EventType   models.EventType `json:"event_type"`
}

// AttendanceSummary is what the QR attendance page shows.
type AttendanceSummary struct {
	Event    *models.Event `json:"event"`
	Credited bool          `json:"credited"`
	Points   int64         `json:"points"`
}

// parseEventDate accepts a calendar day or an RFC 3339 timestamp. Days are
// interpreted in loc.
func parseEventDate(s string, loc *time.Location) (int64, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().UnixMilli(), nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t.UTC().UnixMilli(), nil
	}
	return 0, fmt.Errorf("%w: event_date %q is neither YYYY-MM-DD nor RFC 3339", ErrInvalid, s)
}

func (s *Service) withStatus(e *models.Event) *models.Event {
	e.Status = e.StatusAt(s.now(), s.loc)
	return e
}

func (s *Service) loadEvent(ctx context.Context, eventID string) (*models.Event, error) {
	e, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if e == nil {
		return nil, fmt.Errorf("%w: event %s", ErrNotFound, eventID)
	}
	return s.withStatus(e), nil
}

func (s *Service) ListEvents(ctx context.Context, id Identity) ([]models.Event, error) {
	if err := s.require(id, access.ViewClub); err != nil {
		return nil, err
	}
	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	for i := range events {
		s.withStatus(&events[i])
	}
	return events, nil
}

// GetEvent is open to any signed-in identity so the QR page works for
// visitors.
func (s *Service) GetEvent(ctx context.Context, id Identity, eventID string) (*models.Event, error) {
	if err := s.authenticated(id); err != nil {
		return nil, err
	}
	return s.loadEvent(ctx, eventID)
}

func (s *Service) CreateEvent(ctx context.Context, id Identity, in EventInput) (*models.Event, error) {
	if err := s.require(id, access.ManageEvents); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	date, err := parseEventDate(in.EventDate, s.loc)
	if err != nil {
		return nil, err
	}
	if in.EventType == "" {
		in.EventType = models.EventInternal
	}
	if in.EventType != models.EventInternal && in.EventType != models.EventPublic {
		return nil, fmt.Errorf("%w: unknown event type %q", ErrInvalid, in.EventType)
	}

	e := &models.Event{
		ID:          uuid.NewString(),
		Name:        name,
		Description: in.Description,
		EventDate:   date,
		EventLink:   in.EventLink,
		EventType:   in.EventType,
		CreatedBy:   id.UserID,
	}
	if err := s.store.CreateEvent(ctx, e); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.logger.Info("club: event created", "event_id", e.ID, "by", id.UserID)
	return s.withStatus(e), nil
}

func (s *Service) DeleteEvent(ctx context.Context, id Identity, eventID string) error {
	if err := s.require(id, access.ManageEvents); err != nil {
		return err
	}
	ok, err := s.store.DeleteEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: event %s", ErrNotFound, eventID)
	}
	s.logger.Info("club: event deleted", "event_id", eventID, "by", id.UserID)
	return nil
}

func (s *Service) ListAttendances(ctx context.Context, id Identity, eventID string) ([]models.Attendance, error) {
	if err := s.require(id, access.ManageEvents); err != nil {
		return nil, err
	}
	if _, err := s.loadEvent(ctx, eventID); err != nil {
		return nil, err
	}
	list, err := s.store.ListAttendances(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list attendances: %w", err)
	}
	return list, nil
}

// RegisterAttendance signs the caller up for an event that is not over yet.
func (s *Service) RegisterAttendance(ctx context.Context, id Identity, eventID string) (*models.Attendance, error) {
	if err := s.require(id, access.RegisterEvent); err != nil {
		return nil, err
	}
	e, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e.Status == models.EventPast {
		return nil, fmt.Errorf("%w: event %s is over", ErrConflict, e.ID)
	}

	a := &models.Attendance{EventID: e.ID, UserID: id.UserID}
	ok, err := s.store.RegisterAttendance(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("register attendance: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyRegistered
	}
	return a, nil
}

// AttendanceStatus returns the caller's registration status for an event.
func (s *Service) AttendanceStatus(ctx context.Context, id Identity, eventID string) (models.AttendanceStatus, error) {
	if err := s.authenticated(id); err != nil {
		return "", err
	}
	a, err := s.store.GetAttendance(ctx, eventID, id.UserID)
	if err != nil {
		return "", fmt.Errorf("get attendance: %w", err)
	}
	if a == nil {
		return models.AttendanceNotRegistered, nil
	}
	return a.Status, nil
}

// ApproveAttendances approves the listed registrations and credits each user
// once. It returns the users credited by this call.
func (s *Service) ApproveAttendances(ctx context.Context, id Identity, eventID string, userIDs []string) ([]string, error) {
	if err := s.require(id, access.ApproveAttendance); err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return nil, fmt.Errorf("%w: no attendees given", ErrInvalid)
	}
	if _, err := s.loadEvent(ctx, eventID); err != nil {
		return nil, err
	}

	credited, err := s.store.ApproveAttendances(ctx, eventID, dedupe(userIDs), s.eventPoints)
	if err != nil {
		return nil, fmt.Errorf("approve attendances: %w", err)
	}
	if credited == nil {
		credited = []string{}
	}
	return credited, nil
}

type CheckInResult struct {
	Credited bool  `json:"credited"`
	Points   int64 `json:"points"`
}

// CheckIn records the caller's attendance from the QR flow. Credited is false
// when the caller had already been credited for the event; Points is the
// attendance award either way.
func (s *Service) CheckIn(ctx context.Context, id Identity, eventID string) (*CheckInResult, error) {
	if err := s.authenticated(id); err != nil {
		return nil, err
	}
	if _, err := s.loadEvent(ctx, eventID); err != nil {
		return nil, err
	}

	credited, err := s.store.CheckIn(ctx, eventID, id.UserID, s.eventPoints)
	if err != nil {
		return nil, fmt.Errorf("check in: %w", err)
	}
	if credited {
		s.logger.Info("club: event check-in credited", "event_id", eventID, "user_id", id.UserID, "points", s.eventPoints)
	}
	return &CheckInResult{Credited: credited, Points: s.eventPoints}, nil
}

func (s *Service) AttendanceSummary(ctx context.Context, id Identity, eventID string) (*AttendanceSummary, error) {
	e, err := s.GetEvent(ctx, id, eventID)
	if err != nil {
		return nil, err
	}
	credited, err := s.store.HasTransaction(ctx, id.UserID, models.SourceEvent, e.ID)
	if err != nil {
		return nil, fmt.Errorf("lookup credit: %w", err)
	}
	return &AttendanceSummary{Event: e, Credited: credited, Points: s.eventPoints}, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
