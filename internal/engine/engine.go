// Package engine is the entry point for the HTTP server and the CLI. It
// wires plan generation, rollover, invitations and log completion to one
// store. Callers pass today explicitly; nothing below reads the clock for
// scheduling decisions.
package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/julianstephens/habitpact/internal/errors"
	"github.com/julianstephens/habitpact/internal/generator"
	"github.com/julianstephens/habitpact/internal/invitation"
	"github.com/julianstephens/habitpact/internal/logger"
	"github.com/julianstephens/habitpact/internal/models"
	"github.com/julianstephens/habitpact/internal/notifier"
	"github.com/julianstephens/habitpact/internal/rollover"
	"github.com/julianstephens/habitpact/internal/storage"
	"github.com/julianstephens/habitpact/internal/utils"
	"github.com/julianstephens/habitpact/internal/validation"
)

// Options configures an Engine
type Options struct {
	Publisher       notifier.Publisher
	RolloverWorkers int
}

type Engine struct {
	store       storage.Transactor
	invitations *invitation.Service
	rollover    *rollover.Job
	validator   *validation.Validator
	now         func() time.Time
}

// New creates an Engine over store
func New(store storage.Transactor, opts Options) *Engine {
	return &Engine{
		store:       store,
		invitations: invitation.NewService(store, opts.Publisher),
		rollover:    rollover.New(store, opts.RolloverWorkers),
		validator:   validation.New(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// RolloverJob returns the job behind RunWeeklyRollover so job
// infrastructure can wrap it with retries.
func (e *Engine) RolloverJob() *rollover.Job {
	return e.rollover
}

// GenerateForPlan runs one generation pass for the plan
func (e *Engine) GenerateForPlan(ctx context.Context, planID string, today time.Time) (generator.Result, error) {
	plan, err := e.store.GetPlan(ctx, planID)
	if err != nil {
		return generator.Result{}, err
	}
	return generator.New(e.store).Generate(ctx, plan, today)
}

// GenerateForUserPlan is GenerateForPlan restricted to plans owned by
// userID. A plan owned by someone else is reported as not found.
func (e *Engine) GenerateForUserPlan(ctx context.Context, userID, planID string, today time.Time) (generator.Result, error) {
	plan, err := e.store.GetPlan(ctx, planID)
	if err != nil {
		return generator.Result{}, err
	}
	if plan.UserID != userID {
		return generator.Result{}, apperrors.NotFound("HabitPlan", planID)
	}
	return generator.New(e.store).Generate(ctx, plan, today)
}

// RunWeeklyRollover runs a single rollover pass. It does not retry.
func (e *Engine) RunWeeklyRollover(ctx context.Context, today time.Time) (rollover.Report, error) {
	return e.rollover.Run(ctx, today)
}

// AcceptInvitation accepts a pending invitation for the recipient
func (e *Engine) AcceptInvitation(ctx context.Context, invitationID, recipientID string, today time.Time) (models.Invitation, error) {
	res, err := e.invitations.Accept(ctx, invitationID, recipientID, today)
	if err != nil {
		return models.Invitation{}, err
	}
	return res.Invitation, nil
}

// DeclineInvitation declines a pending invitation for the recipient
func (e *Engine) DeclineInvitation(ctx context.Context, invitationID, recipientID string) (models.Invitation, error) {
	return e.invitations.Decline(ctx, invitationID, recipientID)
}

// CreateInvitation invites recipientEmail to the sender's plan
func (e *Engine) CreateInvitation(ctx context.Context, senderID, planID, recipientName, recipientEmail string) (models.Invitation, error) {
	return e.invitations.Create(ctx, senderID, planID, recipientName, recipientEmail)
}

// ReceivedInvitations lists the user's pending invitations
func (e *Engine) ReceivedInvitations(ctx context.Context, userID string) ([]models.InvitationDetails, error) {
	return e.invitations.Received(ctx, userID)
}

// SentInvitations lists every invitation the user has sent
func (e *Engine) SentInvitations(ctx context.Context, userID string) ([]models.InvitationDetails, error) {
	return e.invitations.Sent(ctx, userID)
}

// ToggleLogCompletion completes an open log on its scheduled day, or
// reopens a completed one.
func (e *Engine) ToggleLogCompletion(ctx context.Context, logID string) (models.Log, error) {
	l, err := e.store.GetLog(ctx, logID)
	if err != nil {
		return models.Log{}, err
	}

	if l.CompletedAt == nil {
		completed := l.ScheduledAt
		l.CompletedAt = &completed
	} else {
		l.CompletedAt = nil
	}

	if err := e.store.UpdateLog(ctx, l); err != nil {
		return models.Log{}, err
	}
	logger.Debug("Toggled log", "log", l.ID, "completed", l.Completed())
	return l, nil
}

// CreateUser registers a user
func (e *Engine) CreateUser(ctx context.Context, name, username, email string) (models.User, error) {
	u := models.User{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		Username:  strings.TrimSpace(username),
		Email:     strings.TrimSpace(email),
		CreatedAt: e.now(),
	}
	if err := e.validator.Struct(u); err != nil {
		return models.User{}, err
	}

	if err := e.store.AddUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return models.User{}, apperrors.Validation(apperrors.FieldError{
				Field:   "username",
				Message: "Username or email has already been taken",
			})
		}
		return models.User{}, err
	}
	logger.Debug("Created user", "user", u.ID, "username", u.Username)
	return u, nil
}

// CreateHabit adds a habit owned by userID
func (e *Engine) CreateHabit(ctx context.Context, userID, name, description string) (models.Habit, error) {
	if _, err := e.store.GetUser(ctx, userID); err != nil {
		return models.Habit{}, err
	}

	h := models.Habit{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		CreatedAt:   e.now(),
	}
	if err := e.validator.Struct(h); err != nil {
		return models.Habit{}, err
	}
	if err := e.store.AddHabit(ctx, h); err != nil {
		return models.Habit{}, err
	}
	logger.Debug("Created habit", "habit", h.ID, "user", userID)
	return h, nil
}

// CreatePlan validates and stores a plan and generates its first logs in
// the same transaction.
func (e *Engine) CreatePlan(ctx context.Context, userID, habitID string, start, end, today time.Time) (models.HabitPlan, generator.Result, error) {
	if _, err := e.store.GetUser(ctx, userID); err != nil {
		return models.HabitPlan{}, generator.Result{}, err
	}
	habit, err := e.store.GetHabit(ctx, habitID)
	if err != nil {
		return models.HabitPlan{}, generator.Result{}, err
	}
	if habit.UserID != userID {
		return models.HabitPlan{}, generator.Result{}, apperrors.NotFound("Habit", habitID)
	}

	plan := models.HabitPlan{
		ID:        uuid.New().String(),
		UserID:    userID,
		HabitID:   habitID,
		StartDate: dateOrZero(start),
		EndDate:   dateOrZero(end),
		CreatedAt: e.now(),
	}
	if err := e.validator.Struct(plan); err != nil {
		return models.HabitPlan{}, generator.Result{}, err
	}

	var res generator.Result
	err = e.store.WithTx(ctx, func(tx storage.Store) error {
		if err := tx.AddPlan(ctx, plan); err != nil {
			return err
		}
		var err error
		res, err = generator.New(tx).Generate(ctx, plan, today)
		return err
	})
	if err != nil {
		return models.HabitPlan{}, generator.Result{}, err
	}

	logger.Info("Created plan", "plan", plan.ID, "user", userID, "start", utils.FormatDate(plan.StartDate),
		"end", utils.FormatDate(plan.EndDate), "logs", res.Created, "deferred", res.Deferred)
	return plan, res, nil
}

func dateOrZero(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return utils.DateOf(t)
}
