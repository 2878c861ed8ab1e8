package engine

import (
	"context"
	"time"

	"github.com/julianstephens/habitpact/internal/models"
	"github.com/julianstephens/habitpact/internal/scheduler"
	"github.com/julianstephens/habitpact/internal/utils"
)

// WeekPlans returns the user's plans with logs in the current week,
// followed by partners' plans on the same habits. Each plan carries only
// that week's logs.
func (e *Engine) WeekPlans(ctx context.Context, userID string, today time.Time) ([]models.PlanWithLogs, error) {
	return e.plansWithLogs(ctx, userID, scheduler.Week(scheduler.CurrentWeek, today))
}

// TodayPlans is WeekPlans narrowed to today's logs
func (e *Engine) TodayPlans(ctx context.Context, userID string, today time.Time) ([]models.PlanWithLogs, error) {
	today = utils.DateOf(today)
	return e.plansWithLogs(ctx, userID, scheduler.Window{Start: today, End: today})
}

func (e *Engine) plansWithLogs(ctx context.Context, userID string, w scheduler.Window) ([]models.PlanWithLogs, error) {
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	own, err := e.store.GetPlansForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	v := &viewBuilder{
		e:      e,
		window: w,
		seen:   map[string]bool{},
		users:  map[string]models.User{user.ID: user},
		habits: map[string]models.Habit{},
	}
	var habits []string
	for _, plan := range own {
		added, err := v.add(ctx, plan)
		if err != nil {
			return nil, err
		}
		if added {
			habits = append(habits, plan.HabitID)
		}
	}

	// Partners are other users with a plan on one of the same habits
	for _, habitID := range habits {
		plans, err := e.store.GetPlansForHabit(ctx, habitID)
		if err != nil {
			return nil, err
		}
		for _, plan := range plans {
			if plan.UserID == userID {
				continue
			}
			if _, err := v.add(ctx, plan); err != nil {
				return nil, err
			}
		}
	}
	return v.out, nil
}

type viewBuilder struct {
	e      *Engine
	window scheduler.Window
	seen   map[string]bool
	users  map[string]models.User
	habits map[string]models.Habit
	out    []models.PlanWithLogs
}

// add appends plan when it has logs inside the window
func (v *viewBuilder) add(ctx context.Context, plan models.HabitPlan) (bool, error) {
	if v.seen[plan.ID] {
		return false, nil
	}
	v.seen[plan.ID] = true
	if !scheduler.Overlaps(plan.StartDate, plan.EndDate, v.window) {
		return false, nil
	}

	logs, err := v.e.store.GetLogsForPlan(ctx, plan.ID, v.window.Start, v.window.End)
	if err != nil {
		return false, err
	}
	if len(logs) == 0 {
		return false, nil
	}

	user, ok := v.users[plan.UserID]
	if !ok {
		user, err = v.e.store.GetUser(ctx, plan.UserID)
		if err != nil {
			return false, err
		}
		v.users[plan.UserID] = user
	}
	habit, ok := v.habits[plan.HabitID]
	if !ok {
		habit, err = v.e.store.GetHabit(ctx, plan.HabitID)
		if err != nil {
			return false, err
		}
		v.habits[plan.HabitID] = habit
	}

	v.out = append(v.out, models.PlanWithLogs{Plan: plan, User: user, Habit: habit, Logs: logs})
	return true, nil
}
