// Package scheduler computes the calendar windows that drive log generation.
// Every function takes the reference date explicitly; nothing here reads the
// wall clock.
package scheduler

import (
	"fmt"
	"time"

	"github.com/julianstephens/habitpact/internal/constants"
	"github.com/julianstephens/habitpact/internal/utils"
)

// WeekOffset selects the week relative to the reference date
type WeekOffset int

const (
	CurrentWeek WeekOffset = iota
	NextWeek
)

func (o WeekOffset) String() string {
	switch o {
	case CurrentWeek:
		return "current_week"
	case NextWeek:
		return "next_week"
	default:
		return fmt.Sprintf("WeekOffset(%d)", int(o))
	}
}

// Window is an inclusive range of calendar dates
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) String() string {
	return utils.FormatDate(w.Start) + ".." + utils.FormatDate(w.End)
}

// WeekStart returns the Sunday opening the selected week.
// For CurrentWeek that is the most recent Sunday on or before today; for
// NextWeek it is the next Sunday strictly after today.
func WeekStart(offset WeekOffset, today time.Time) time.Time {
	today = utils.DateOf(today)
	switch offset {
	case NextWeek:
		return nextOccurring(today, time.Sunday)
	default:
		return utils.AddDays(today, -int(today.Weekday()))
	}
}

// WeekEnd returns the Saturday closing the selected week
func WeekEnd(offset WeekOffset, today time.Time) time.Time {
	start := WeekStart(offset, today)
	if offset == NextWeek {
		return nextOccurring(start, time.Saturday)
	}
	return utils.AddDays(start, constants.DaysPerWeek-1)
}

// Week returns the Sunday..Saturday window for the selected week
func Week(offset WeekOffset, today time.Time) Window {
	return Window{Start: WeekStart(offset, today), End: WeekEnd(offset, today)}
}

// Horizon is the furthest date one generation pass may reach: the Saturday
// closing the week that contains today. On a Saturday it is today itself.
func Horizon(today time.Time) time.Time {
	return WeekEnd(CurrentWeek, today)
}

// nextOccurring returns the first date strictly after d that falls on wd
func nextOccurring(d time.Time, wd time.Weekday) time.Time {
	delta := (int(wd) - int(d.Weekday()) + constants.DaysPerWeek) % constants.DaysPerWeek
	if delta == 0 {
		delta = constants.DaysPerWeek
	}
	return utils.AddDays(d, delta)
}
