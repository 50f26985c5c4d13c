package repository

import (
	"context"
	"errors"

	"github.com/Aghostraa/abcr-deployment-v2/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.
//
// Lookups return (nil, nil) when the row does not exist. Conditional writes
// return false when their precondition no longer holds.

// ErrHasDependents is returned when a delete would orphan referencing rows.
var ErrHasDependents = errors.New("row has dependents")

type UserRepo interface {
	// EnsureProfile provisions the profile once; an existing profile only has
	// last_login touched. created reports which of the two happened.
	EnsureProfile(ctx context.Context, u *models.User) (created bool, err error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserRole(ctx context.Context, email string) (models.Role, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SetUserRole(ctx context.Context, id string, role models.Role) (bool, error)
	CountCompletedTasks(ctx context.Context, userID string) (int64, error)
}

type CredentialRepo interface {
	CreateCredential(ctx context.Context, c *models.Credential) (bool, error)
	GetCredential(ctx context.Context, email string) (*models.Credential, error)
	CreateLoginCode(ctx context.Context, c *models.LoginCode) error
	// ConsumeLoginCode deletes the code and returns it when it was still valid at now.
	ConsumeLoginCode(ctx context.Context, code string, now int64) (*models.LoginCode, error)
	PurgeExpiredLoginCodes(ctx context.Context, now int64) (int64, error)
}

type CategoryRepo interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
}

type ProjectRepo interface {
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListProjects(ctx context.Context, status models.ProjectStatus) ([]models.Project, error)
	UpdateProject(ctx context.Context, p *models.Project) error
	// DeleteProject returns ErrHasDependents while tasks reference the project.
	DeleteProject(ctx context.Context, id string) (bool, error)
}

type TaskRepo interface {
	CreateTask(ctx context.Context, t *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListTasks(ctx context.Context, f models.TaskFilter) ([]models.Task, error)
	// ApplyTask assigns userID only while the task is Open and unassigned.
	ApplyTask(ctx context.Context, id, userID string) (bool, error)
	// TransitionTask moves from -> to. A non-empty assignee must match the
	// current assignee.
	TransitionTask(ctx context.Context, id string, from, to models.TaskStatus, assignee string) (bool, error)
	// ReopenTask returns a task awaiting applicant approval to Open and clears the assignee.
	ReopenTask(ctx context.Context, id string) (bool, error)
	SetAmplifier(ctx context.Context, id string, amplifier float64) (bool, error)
	// CompleteTask moves an awaiting-completion task to Complete and credits
	// the assignee in the same transaction.
	CompleteTask(ctx context.Context, id string) (*models.PointTransaction, error)
}

type EventRepo interface {
	CreateEvent(ctx context.Context, e *models.Event) error
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	DeleteEvent(ctx context.Context, id string) (bool, error)
	RegisterAttendance(ctx context.Context, a *models.Attendance) (bool, error)
	GetAttendance(ctx context.Context, eventID, userID string) (*models.Attendance, error)
	ListAttendances(ctx context.Context, eventID string) ([]models.Attendance, error)
	// CheckIn records an approved attendance and credits points once per (user, event).
	CheckIn(ctx context.Context, eventID, userID string, points int64) (bool, error)
	// ApproveAttendances approves registered attendees and returns the ids credited now.
	ApproveAttendances(ctx context.Context, eventID string, userIDs []string, points int64) ([]string, error)
}

type RecurringRepo interface {
	CreateRecurringTask(ctx context.Context, t *models.RecurringTask) error
	GetRecurringTask(ctx context.Context, id string) (*models.RecurringTask, error)
	ListRecurringTasks(ctx context.Context) ([]models.RecurringTask, error)
	HasCompletion(ctx context.Context, taskID, userID, day string) (bool, error)
	// CompleteRecurringTask returns false when the user already completed the task on that day.
	CompleteRecurringTask(ctx context.Context, c *models.RecurringCompletion, points int64) (bool, error)
}

type LedgerRepo interface {
	// Award appends a transaction and bumps the user's points; false when the
	// (user, source_type, source_id) key already exists.
	Award(ctx context.Context, t *models.PointTransaction) (bool, error)
	HasTransaction(ctx context.Context, userID, sourceType, sourceID string) (bool, error)
	ListTransactions(ctx context.Context, userID string, limit, offset int) ([]models.PointTransaction, error)
	CountTransactions(ctx context.Context, userID string) (int64, error)
	Leaderboard(ctx context.Context, monthStart int64, limit int) ([]models.LeaderboardEntry, error)
	// ReconcilePoints resets cached profile points to the ledger sum and
	// returns the number of profiles corrected.
	ReconcilePoints(ctx context.Context) (int64, error)
}

// Store groups every repository; the SQL implementation satisfies all of them.
type Store interface {
	UserRepo
	CredentialRepo
	CategoryRepo
	ProjectRepo
	TaskRepo
	EventRepo
	RecurringRepo
	LedgerRepo
}
