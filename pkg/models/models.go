package models

import (
	"math"
	"strings"
	"time"
)

// Domain models matching the database schema in db/migrations/*/0001_init.sql.
// Timestamps are unix milliseconds (UTC).

type Role string

const (
	RoleVisitor Role = "Visitor"
	RoleMember  Role = "Member"
	RoleManager Role = "Manager"
	RoleAdmin   Role = "Admin"
)

// Roles lists every role in display order, least privileged first.
var Roles = []Role{RoleVisitor, RoleMember, RoleManager, RoleAdmin}

// ParseRole accepts a role name case-insensitively.
func ParseRole(s string) (Role, bool) {
	for _, r := range Roles {
		if strings.EqualFold(s, string(r)) {
			return r, true
		}
	}
	return "", false
}

type User struct {
	ID        string `json:"id" db:"id"`
	Email     string `json:"email" db:"email"`
	Role      Role   `json:"role" db:"role"`
	Points    int64  `json:"points" db:"points"`
	LastLogin *int64 `json:"last_login,omitempty" db:"last_login"`
	Created   int64  `json:"created_at" db:"created"`
}

type TaskStatus string

const (
	StatusOpen                       TaskStatus = "Open"
	StatusAwaitingApplicantApproval  TaskStatus = "Awaiting Applicant Approval"
	StatusInProgress                 TaskStatus = "In Progress"
	StatusAwaitingCompletionApproval TaskStatus = "Awaiting Completion Approval"
	StatusComplete                   TaskStatus = "Complete"
)

type Task struct {
	ID             string     `json:"id" db:"id"`
	Name           string     `json:"name" db:"name"`
	Instructions   string     `json:"instructions" db:"instructions"`
	Urgency        int        `json:"urgency" db:"urgency"`
	Difficulty     int        `json:"difficulty" db:"difficulty"`
	Priority       int        `json:"priority" db:"priority"`
	Points         int64      `json:"points" db:"points"`
	PointAmplifier float64    `json:"point_amplifier" db:"point_amplifier"`
	ProjectID      string     `json:"project_id" db:"project_id"`
	CategoryID     *string    `json:"category_id,omitempty" db:"category_id"`
	Status         TaskStatus `json:"status" db:"status"`
	AssignedUserID *string    `json:"assigned_user_id" db:"assigned_user_id"`
	CreatedBy      string     `json:"created_by" db:"created_by"`
	Created        int64      `json:"created_at" db:"created"`
	Deadline       *int64     `json:"deadline,omitempty" db:"deadline"`
}

// AmplifiedPoints is the award for completing the task: round(points × amplifier).
func (t *Task) AmplifiedPoints() int64 {
	amp := t.PointAmplifier
	if amp < 1 {
		amp = 1
	}
	return int64(math.Round(float64(t.Points) * amp))
}

// AssignedTo reports whether userID is the task's assignee.
func (t *Task) AssignedTo(userID string) bool {
	return t.AssignedUserID != nil && *t.AssignedUserID == userID
}

type TaskFilter struct {
	ProjectID      string
	Status         TaskStatus
	AssignedUserID string
}

type Category struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectConcluded ProjectStatus = "concluded"
)

type Project struct {
	ID          string        `json:"id" db:"id"`
	Name        string        `json:"name" db:"name"`
	Description string        `json:"description" db:"description"`
	Status      ProjectStatus `json:"status" db:"status"`
	StartDate   *int64        `json:"start_date,omitempty" db:"start_date"`
	EndDate     *int64        `json:"end_date,omitempty" db:"end_date"`
	Created     int64         `json:"created_at" db:"created"`
	OpenTasks   int64         `json:"open_tasks" db:"-"`
}

type EventType string

const (
	EventInternal EventType = "Internal"
	EventPublic   EventType = "Public"
)

type EventStatus string

const (
	EventUpcoming EventStatus = "upcoming"
	EventOngoing  EventStatus = "ongoing"
	EventPast     EventStatus = "past"
)

type Event struct {
	ID          string      `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	Description string      `json:"description" db:"description"`
	EventDate   int64       `json:"event_date" db:"event_date"`
	EventLink   string      `json:"event_link" db:"event_link"`
	EventType   EventType   `json:"event_type" db:"event_type"`
	CreatedBy   string      `json:"created_by" db:"created_by"`
	Created     int64       `json:"created_at" db:"created"`
	Status      EventStatus `json:"status" db:"-"`
}

// StatusAt derives the event status from its date relative to the calendar day
// of now in loc.
func (e *Event) StatusAt(now time.Time, loc *time.Location) EventStatus {
	if loc == nil {
		loc = time.UTC
	}
	day := time.UnixMilli(e.EventDate).In(loc).Format(time.DateOnly)
	today := now.In(loc).Format(time.DateOnly)
	switch {
	case day > today:
		return EventUpcoming
	case day == today:
		return EventOngoing
	default:
		return EventPast
	}
}

type AttendanceStatus string

const (
	AttendanceRegistered    AttendanceStatus = "registered"
	AttendanceApproved      AttendanceStatus = "approved"
	AttendanceNotRegistered AttendanceStatus = "not_registered"
)

type Attendance struct {
	EventID string           `json:"event_id" db:"event_id"`
	UserID  string           `json:"user_id" db:"user_id"`
	Email   string           `json:"email,omitempty" db:"-"`
	Status  AttendanceStatus `json:"status" db:"status"`
	Created int64            `json:"created_at" db:"created"`
	Updated int64            `json:"updated_at" db:"updated"`
}

type RecurringTask struct {
	ID          string  `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Description string  `json:"description" db:"description"`
	Points      int64   `json:"points" db:"points"`
	CreatedBy   *string `json:"created_by,omitempty" db:"created_by"`
	Created     int64   `json:"created_at" db:"created"`
	CanComplete *bool   `json:"can_complete,omitempty" db:"-"`
}

type RecurringCompletion struct {
	ID              string `json:"id" db:"id"`
	RecurringTaskID string `json:"recurring_task_id" db:"recurring_task_id"`
	UserID          string `json:"user_id" db:"user_id"`
	CompletedOn     string `json:"completed_on" db:"completed_on"`
	Created         int64  `json:"created_at" db:"created"`
}

// Ledger source types. Together with SourceID and UserID they form the
// idempotency key of a point transaction.
const (
	SourceTask          = "task"
	SourceEvent         = "event"
	SourceRecurring     = "recurring"
	SourceWeeklyCheckin = "weekly_checkin"
)

type PointTransaction struct {
	ID         string `json:"id" db:"id"`
	UserID     string `json:"user_id" db:"user_id"`
	Amount     int64  `json:"amount" db:"amount"`
	SourceType string `json:"source_type" db:"source_type"`
	SourceID   string `json:"source_id" db:"source_id"`
	Reason     string `json:"reason" db:"reason"`
	Created    int64  `json:"created_at" db:"created"`
}

type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	TotalPoints   int64  `json:"total_points"`
	MonthlyPoints int64  `json:"monthly_points"`
}

type Credential struct {
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	Created      int64  `json:"created_at" db:"created"`
}

type LoginCode struct {
	Code    string `json:"code" db:"code"`
	Email   string `json:"email" db:"email"`
	Expires int64  `json:"expires" db:"expires"`
}
