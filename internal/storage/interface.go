package storage

import (
	"context"
	"errors"
	"time"

	"github.com/julianstephens/habitpact/internal/constants"
	"github.com/julianstephens/habitpact/internal/models"
)

// ErrConflict is returned when a write violates a uniqueness constraint
var ErrConflict = errors.New("unique constraint violated")

// Store is the repository surface shared by connections and transactions.
// Lookups of a missing id return an apperrors NotFound error.
type Store interface {
	// Users
	AddUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// Habits
	AddHabit(ctx context.Context, habit models.Habit) error
	GetHabit(ctx context.Context, id string) (models.Habit, error)

	// Plans
	AddPlan(ctx context.Context, plan models.HabitPlan) error
	GetPlan(ctx context.Context, id string) (models.HabitPlan, error)
	DeletePlan(ctx context.Context, id string) error
	GetPlansForUser(ctx context.Context, userID string) ([]models.HabitPlan, error)
	// GetPlansForHabit returns every plan, across users, that tracks the habit
	GetPlansForHabit(ctx context.Context, habitID string) ([]models.HabitPlan, error)
	// GetPlansOverlapping returns plans with start_date <= to AND end_date >= from
	GetPlansOverlapping(ctx context.Context, from, to time.Time) ([]models.HabitPlan, error)

	// Logs
	// AddLogs inserts the logs in one batch and returns how many rows were
	// written. Rows colliding with an existing (plan, scheduled date) are
	// skipped, never duplicated.
	AddLogs(ctx context.Context, logs []models.Log) (int, error)
	GetLog(ctx context.Context, id string) (models.Log, error)
	UpdateLog(ctx context.Context, log models.Log) error
	GetLogsForPlan(ctx context.Context, planID string, from, to time.Time) ([]models.Log, error)
	// LastLogDate returns the latest scheduled date generated for the plan,
	// or nil when the plan has no logs yet.
	LastLogDate(ctx context.Context, planID string) (*time.Time, error)

	// Invitations
	AddInvitation(ctx context.Context, inv models.Invitation) error
	GetInvitation(ctx context.Context, id string) (models.Invitation, error)
	// TransitionInvitation moves an invitation from one status to another.
	// It reports false when the invitation was no longer in the from status.
	TransitionInvitation(ctx context.Context, id string, from, to constants.InvitationStatus, at time.Time) (bool, error)
	HasActiveInvitation(ctx context.Context, planID string) (bool, error)
	GetInvitationsForRecipient(ctx context.Context, email string, status constants.InvitationStatus) ([]models.Invitation, error)
	GetInvitationsBySender(ctx context.Context, senderID string) ([]models.Invitation, error)
}

// Transactor is a Store that can open a unit of work
type Transactor interface {
	Store

	// WithTx runs fn inside a single transaction. The transaction commits
	// when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// Provider is a storage backend
type Provider interface {
	Transactor

	// Lifecycle
	Init(ctx context.Context) error
	Load(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error

	// Migrate applies pending embedded migrations and returns how many ran
	Migrate(ctx context.Context, logFn func(string)) (int, error)

	// SchemaVersion reports the applied and the latest embedded migration
	SchemaVersion(ctx context.Context) (current, latest int, err error)

	// Utils
	GetConfigPath() string
}
