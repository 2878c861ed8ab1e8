package models

import (
	"time"

	"github.com/julianstephens/habitpact/internal/constants"
)

// Invitation asks a recipient to join a sender's habit plan
type Invitation struct {
	ID             string                     `json:"id"`
	SenderID       string                     `json:"sender_id"`
	PlanID         string                     `json:"habit_plan_id" validate:"required"`
	RecipientName  string                     `json:"recipient_name"`
	RecipientEmail string                     `json:"recipient_email" validate:"required,email"`
	Status         constants.InvitationStatus `json:"status"`
	CreatedAt      time.Time                  `json:"created_at"`
	UpdatedAt      time.Time                  `json:"updated_at"`
}

// Pending reports whether the invitation can still transition
func (i Invitation) Pending() bool {
	return i.Status == constants.InvitationPending
}

// Active reports whether the invitation counts against the one-per-plan limit
func (i Invitation) Active() bool {
	return i.Status == constants.InvitationPending || i.Status == constants.InvitationAccepted
}

// InvitationDetails is an invitation with the plan, habit and sender
// summaries a recipient needs to decide on it
type InvitationDetails struct {
	ID             string                     `json:"id"`
	Status         constants.InvitationStatus `json:"status"`
	PlanID         string                     `json:"habit_plan_id"`
	RecipientEmail string                     `json:"recipient_email"`
	Plan           PlanSummary                `json:"habit_plan"`
	Sender         SenderSummary              `json:"sender"`
}

// PlanSummary is the public view of a plan inside an invitation
type PlanSummary struct {
	StartDate time.Time    `json:"start_datetime"`
	EndDate   time.Time    `json:"end_datetime"`
	Habit     HabitSummary `json:"habit"`
}

// HabitSummary is the public view of a habit
type HabitSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SenderSummary is the public view of an invitation's sender
type SenderSummary struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}
