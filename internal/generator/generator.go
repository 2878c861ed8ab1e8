// Package generator materializes daily logs for habit plans. It decides
// which week a plan should be filled for and how many days that covers.
package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/habitpact/internal/logger"
	"github.com/julianstephens/habitpact/internal/models"
	"github.com/julianstephens/habitpact/internal/scheduler"
	"github.com/julianstephens/habitpact/internal/utils"
)

// Mode selects which week a generation pass fills
type Mode int

const (
	ModeCurrentWeek Mode = iota
	ModeNextWeek
)

func (m Mode) String() string {
	switch m {
	case ModeCurrentWeek:
		return "current_week"
	case ModeNextWeek:
		return "next_week"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Store is the storage surface generation needs
type Store interface {
	LogWriter
	// LastLogDate returns the latest generated day for the plan, or nil
	LastLogDate(ctx context.Context, planID string) (*time.Time, error)
}

// Result describes one generation pass over a plan
type Result struct {
	PlanID string
	Mode   Mode
	// Deferred is set when the plan starts beyond the horizon and nothing
	// was attempted
	Deferred bool
	// Range is the span handed to the materializer; zero when nothing was due
	Range     scheduler.Window
	Requested int
	Created   int
}

// Generator runs generation passes against one store. Build a new one per
// transaction.
type Generator struct {
	store Store
}

// New creates a Generator writing to store
func New(store Store) *Generator {
	return &Generator{store: store}
}

// ModeFor picks the pass a plan needs on today. Plans starting on or
// before the horizon fill the current week, except on Saturday when the
// following week is filled instead. Plans starting later are deferred and
// ok is false.
func ModeFor(plan models.HabitPlan, today time.Time) (mode Mode, ok bool) {
	today = utils.DateOf(today)
	if plan.StartDate.After(scheduler.Horizon(today)) {
		return ModeCurrentWeek, false
	}
	if today.Weekday() == time.Saturday {
		return ModeNextWeek, true
	}
	return ModeCurrentWeek, true
}

// Generate fills whichever week ModeFor selects for the plan
func (g *Generator) Generate(ctx context.Context, plan models.HabitPlan, today time.Time) (Result, error) {
	mode, ok := ModeFor(plan, today)
	if !ok {
		logger.Debug("Deferring log generation", "plan", plan.ID,
			"start", utils.FormatDate(plan.StartDate), "horizon", utils.FormatDate(scheduler.Horizon(today)))
		return Result{PlanID: plan.ID, Mode: mode, Deferred: true}, nil
	}
	return g.GenerateMode(ctx, plan, today, mode)
}

// GenerateMode runs one explicit pass. Both modes resume after the plan's
// last generated day, so repeated passes cover disjoint ranges.
func (g *Generator) GenerateMode(ctx context.Context, plan models.HabitPlan, today time.Time, mode Mode) (Result, error) {
	today = utils.DateOf(today)
	res := Result{PlanID: plan.ID, Mode: mode}

	var window scheduler.Window
	switch mode {
	case ModeCurrentWeek:
		limit := scheduler.ResolveInitialRange(plan.StartDate, plan.EndDate, scheduler.Horizon(today))
		if limit == nil {
			res.Deferred = true
			return res, nil
		}
		window = scheduler.Window{Start: plan.StartDate, End: *limit}
	case ModeNextWeek:
		w, ok := scheduler.NextWeekRange(plan.StartDate, plan.EndDate, today)
		if !ok {
			return res, nil
		}
		window = w
	default:
		return res, fmt.Errorf("unknown generation mode %d", mode)
	}

	last, err := g.store.LastLogDate(ctx, plan.ID)
	if err != nil {
		return res, fmt.Errorf("failed to read last log date for plan %s: %w", plan.ID, err)
	}
	if last != nil {
		window.Start = utils.MaxDate(window.Start, utils.AddDays(*last, 1))
	}

	count := scheduler.NumLogs(window.Start, &window.End)
	if count == 0 {
		logger.Debug("Plan already generated through window", "plan", plan.ID, "mode", mode, "window", window)
		return res, nil
	}

	created, err := CreateLogs(ctx, g.store, count, window.Start, plan.ID)
	if err != nil {
		return res, fmt.Errorf("failed to create logs for plan %s: %w", plan.ID, err)
	}

	res.Range = window
	res.Requested = count
	res.Created = created
	logger.Debug("Generated logs", "plan", plan.ID, "mode", mode, "window", window, "created", created)
	return res, nil
}
