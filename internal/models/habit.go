package models

import "time"

// Habit represents a recurring practice to track
type Habit struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id" validate:"required"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// HabitPlan is a user's commitment to a habit over a fixed date range.
// StartDate and EndDate are calendar dates at midnight UTC.
type HabitPlan struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id" validate:"required"`
	HabitID   string    `json:"habit_id" validate:"required"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtefield=StartDate"`
	CreatedAt time.Time `json:"created_at"`
}

// Contains reports whether day falls inside the plan's [start, end] range
func (p HabitPlan) Contains(day time.Time) bool {
	return !day.Before(p.StartDate) && !day.After(p.EndDate)
}

// Log is one day's scheduled occurrence of a plan
type Log struct {
	ID          string     `json:"id"`
	PlanID      string     `json:"habit_plan_id"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// Completed reports whether the log has been marked done
func (l Log) Completed() bool {
	return l.CompletedAt != nil
}

// PlanWithLogs bundles a plan with its owner, habit and a filtered set of logs
type PlanWithLogs struct {
	Plan  HabitPlan `json:"habit_plan"`
	User  User      `json:"user"`
	Habit Habit     `json:"habit"`
	Logs  []Log     `json:"habit_logs"`
}
