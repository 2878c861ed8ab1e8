// Package invitation runs the plan invitation lifecycle: a sender invites a
// recipient by email, and acceptance copies the plan to the recipient.
package invitation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/habitpact/internal/constants"
	apperrors "github.com/julianstephens/habitpact/internal/errors"
	"github.com/julianstephens/habitpact/internal/generator"
	"github.com/julianstephens/habitpact/internal/logger"
	"github.com/julianstephens/habitpact/internal/models"
	"github.com/julianstephens/habitpact/internal/notifier"
	"github.com/julianstephens/habitpact/internal/storage"
	"github.com/julianstephens/habitpact/internal/utils"
	"github.com/julianstephens/habitpact/internal/validation"
)

// ActiveLimitField and ActiveLimitMessage describe the one-active-invitation rule
const (
	ActiveLimitField   = "habit_plan_limit"
	ActiveLimitMessage = "Habit plan limit can only have one pending or accepted invitation per habit plan"
)

// Acceptance is the outcome of accepting an invitation
type Acceptance struct {
	Invitation models.Invitation
	Plan       models.HabitPlan
	Generation generator.Result
}

type Service struct {
	store     storage.Transactor
	publisher notifier.Publisher
	validator *validation.Validator
	now       func() time.Time
}

// NewService creates a Service. A nil publisher logs events instead.
func NewService(store storage.Transactor, publisher notifier.Publisher) *Service {
	if publisher == nil {
		publisher = notifier.Log{}
	}
	return &Service{
		store:     store,
		publisher: publisher,
		validator: validation.New(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create records a pending invitation to the sender's plan and publishes
// one InvitationCreated event once it is stored.
func (s *Service) Create(ctx context.Context, senderID, planID, recipientName, recipientEmail string) (models.Invitation, error) {
	sender, err := s.store.GetUser(ctx, senderID)
	if err != nil {
		return models.Invitation{}, err
	}
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return models.Invitation{}, err
	}
	if plan.UserID != sender.ID {
		return models.Invitation{}, apperrors.NotFound("HabitPlan", planID)
	}

	now := s.now()
	inv := models.Invitation{
		ID:             uuid.New().String(),
		SenderID:       sender.ID,
		PlanID:         plan.ID,
		RecipientName:  strings.TrimSpace(recipientName),
		RecipientEmail: strings.TrimSpace(recipientEmail),
		Status:         constants.InvitationPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var fields []apperrors.FieldError
	if err := s.validator.Struct(inv); err != nil {
		var verr *apperrors.Error
		if !errors.As(err, &verr) {
			return models.Invitation{}, err
		}
		fields = append(fields, verr.Fields...)
	}

	active, err := s.store.HasActiveInvitation(ctx, plan.ID)
	if err != nil {
		return models.Invitation{}, err
	}
	if active {
		fields = append(fields, activeLimitError())
	}
	if len(fields) > 0 {
		return models.Invitation{}, apperrors.Validation(fields...)
	}

	if err := s.store.AddInvitation(ctx, inv); err != nil {
		// Lost a race with another invitation for the same plan
		if errors.Is(err, storage.ErrConflict) {
			return models.Invitation{}, apperrors.Validation(activeLimitError())
		}
		return models.Invitation{}, err
	}
	logger.Debug("Invitation created", "invitation", inv.ID, "plan", plan.ID, "sender", sender.ID)

	s.publish(ctx, inv, sender, plan)
	return inv, nil
}

func activeLimitError() apperrors.FieldError {
	return apperrors.FieldError{Field: ActiveLimitField, Message: ActiveLimitMessage}
}

func (s *Service) publish(ctx context.Context, inv models.Invitation, sender models.User, plan models.HabitPlan) {
	event := notifier.InvitationCreated{
		InvitationID:   inv.ID,
		SenderName:     sender.Name,
		StartDate:      utils.FormatDate(plan.StartDate),
		EndDate:        utils.FormatDate(plan.EndDate),
		RecipientName:  inv.RecipientName,
		RecipientEmail: inv.RecipientEmail,
		CreatedAt:      inv.CreatedAt,
	}

	if habit, err := s.store.GetHabit(ctx, plan.HabitID); err == nil {
		event.HabitName = habit.Name
	} else {
		logger.Warn("Failed to load habit for invitation event", "habit", plan.HabitID, "error", err)
	}
	if _, err := s.store.GetUserByEmail(ctx, inv.RecipientEmail); err == nil {
		event.RecipientKnown = true
	} else if !apperrors.IsNotFound(err) {
		logger.Warn("Failed to look up invitation recipient", "error", err)
	}

	// The invitation is already committed; delivery problems are not the caller's
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Error("Failed to publish invitation event", "invitation", inv.ID, "error", err)
	}
}

// pendingFor loads an invitation addressed to the recipient and checks it
// can still transition.
func (s *Service) pendingFor(ctx context.Context, invitationID, recipientID string) (models.Invitation, models.User, error) {
	recipient, err := s.store.GetUser(ctx, recipientID)
	if err != nil {
		return models.Invitation{}, models.User{}, err
	}
	inv, err := s.store.GetInvitation(ctx, invitationID)
	if err != nil {
		return models.Invitation{}, models.User{}, err
	}
	if !strings.EqualFold(inv.RecipientEmail, recipient.Email) {
		return models.Invitation{}, models.User{}, apperrors.NotFound("Invitation", invitationID)
	}
	if !inv.Pending() {
		return models.Invitation{}, models.User{}, alreadyError(inv.Status)
	}
	return inv, recipient, nil
}

func alreadyError(status constants.InvitationStatus) error {
	return apperrors.InvalidState("Invitation has already been %s", status)
}

// Accept marks the invitation accepted, copies the plan to the recipient
// and generates its logs for today, all in one transaction.
func (s *Service) Accept(ctx context.Context, invitationID, recipientID string, today time.Time) (Acceptance, error) {
	inv, recipient, err := s.pendingFor(ctx, invitationID, recipientID)
	if err != nil {
		return Acceptance{}, err
	}

	now := s.now()
	var out Acceptance
	err = s.store.WithTx(ctx, func(tx storage.Store) error {
		ok, err := tx.TransitionInvitation(ctx, inv.ID, constants.InvitationPending, constants.InvitationAccepted, now)
		if err != nil {
			return err
		}
		if !ok {
			current, err := tx.GetInvitation(ctx, inv.ID)
			if err != nil {
				return err
			}
			return alreadyError(current.Status)
		}

		// From here on a failure would leave the invitation accepted
		// without its plan, so it is reported as a consistency violation.
		source, err := tx.GetPlan(ctx, inv.PlanID)
		if err != nil {
			return apperrors.Consistency(fmt.Errorf("failed to load source plan: %w", err))
		}

		plan := models.HabitPlan{
			ID:        uuid.New().String(),
			UserID:    recipient.ID,
			HabitID:   source.HabitID,
			StartDate: source.StartDate,
			EndDate:   source.EndDate,
			CreatedAt: now,
		}
		if err := tx.AddPlan(ctx, plan); err != nil {
			return apperrors.Consistency(fmt.Errorf("failed to create plan: %w", err))
		}

		res, err := generator.New(tx).Generate(ctx, plan, today)
		if err != nil {
			return apperrors.Consistency(err)
		}

		inv.Status = constants.InvitationAccepted
		inv.UpdatedAt = now
		out = Acceptance{Invitation: inv, Plan: plan, Generation: res}
		return nil
	})
	if err != nil {
		return Acceptance{}, err
	}

	logger.Info("Invitation accepted", "invitation", inv.ID, "plan", out.Plan.ID,
		"recipient", recipient.ID, "logs", out.Generation.Created)
	return out, nil
}

// Decline moves a pending invitation to declined
func (s *Service) Decline(ctx context.Context, invitationID, recipientID string) (models.Invitation, error) {
	inv, _, err := s.pendingFor(ctx, invitationID, recipientID)
	if err != nil {
		return models.Invitation{}, err
	}

	now := s.now()
	ok, err := s.store.TransitionInvitation(ctx, inv.ID, constants.InvitationPending, constants.InvitationDeclined, now)
	if err != nil {
		return models.Invitation{}, err
	}
	if !ok {
		current, err := s.store.GetInvitation(ctx, inv.ID)
		if err != nil {
			return models.Invitation{}, err
		}
		return models.Invitation{}, alreadyError(current.Status)
	}

	inv.Status = constants.InvitationDeclined
	inv.UpdatedAt = now
	logger.Info("Invitation declined", "invitation", inv.ID)
	return inv, nil
}

// Received lists the pending invitations addressed to the user's email
func (s *Service) Received(ctx context.Context, recipientID string) ([]models.InvitationDetails, error) {
	recipient, err := s.store.GetUser(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	invs, err := s.store.GetInvitationsForRecipient(ctx, recipient.Email, constants.InvitationPending)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, invs)
}

// Sent lists every invitation the user has sent, in any status
func (s *Service) Sent(ctx context.Context, senderID string) ([]models.InvitationDetails, error) {
	if _, err := s.store.GetUser(ctx, senderID); err != nil {
		return nil, err
	}
	invs, err := s.store.GetInvitationsBySender(ctx, senderID)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, invs)
}

func (s *Service) details(ctx context.Context, invs []models.Invitation) ([]models.InvitationDetails, error) {
	out := make([]models.InvitationDetails, 0, len(invs))
	for _, inv := range invs {
		plan, err := s.store.GetPlan(ctx, inv.PlanID)
		if err != nil {
			return nil, err
		}
		habit, err := s.store.GetHabit(ctx, plan.HabitID)
		if err != nil {
			return nil, err
		}
		sender, err := s.store.GetUser(ctx, inv.SenderID)
		if err != nil {
			return nil, err
		}

		out = append(out, models.InvitationDetails{
			ID:             inv.ID,
			Status:         inv.Status,
			PlanID:         inv.PlanID,
			RecipientEmail: inv.RecipientEmail,
			Plan: models.PlanSummary{
				StartDate: plan.StartDate,
				EndDate:   plan.EndDate,
				Habit:     models.HabitSummary{Name: habit.Name, Description: habit.Description},
			},
			Sender: models.SenderSummary{Name: sender.Name, Username: sender.Username},
		})
	}
	return out, nil
}
