package scheduler

import (
	"time"

	"github.com/julianstephens/habitpact/internal/utils"
)

// ResolveInitialRange returns the last date a first generation pass should
// cover for a plan, or nil when the plan starts after the horizon and is
// left for a later rollover pass.
func ResolveInitialRange(planStart, planEnd, nextSaturday time.Time) *time.Time {
	if planStart.After(nextSaturday) {
		return nil
	}
	limit := nextSaturday
	if planEnd.Before(nextSaturday) {
		limit = planEnd
	}
	return &limit
}

// NumLogs returns the inclusive number of days from start through limit.
// A nil limit, or one before start, yields zero.
func NumLogs(start time.Time, limit *time.Time) int {
	if limit == nil {
		return 0
	}
	n := utils.DaysBetween(start, *limit) + 1
	if n < 0 {
		return 0
	}
	return n
}

// NextWeekRange intersects a plan's date range with next week's window.
// It returns false when the plan has no days in next week.
func NextWeekRange(planStart, planEnd, today time.Time) (Window, bool) {
	week := Week(NextWeek, today)
	w := Window{
		Start: utils.MaxDate(planStart, week.Start),
		End:   utils.MinDate(planEnd, week.End),
	}
	if w.End.Before(w.Start) {
		return Window{}, false
	}
	return w, true
}

// Overlaps reports whether the plan range [planStart, planEnd] shares at
// least one day with w.
func Overlaps(planStart, planEnd time.Time, w Window) bool {
	return !planStart.After(w.End) && !planEnd.Before(w.Start)
}
