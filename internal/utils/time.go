package utils

import (
	"fmt"
	"time"

	"github.com/julianstephens/habitpact/internal/constants"
)

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" or empty, it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(timezone)
}

// TodayInTimezone returns today's calendar date as seen from the given timezone.
// This is the only place the engine reads the wall clock.
func TodayInTimezone(timezone string) (time.Time, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return DateOf(time.Now().In(loc)), nil
}

// DateOf truncates t to its calendar date at midnight UTC, keeping the
// year/month/day as seen in t's own location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Date builds a calendar date at midnight UTC
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a date string (YYYY-MM-DD) into a calendar date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(constants.DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// FormatDate formats a calendar date as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(constants.DateFormat)
}

// AddDays returns the calendar date n days after d
func AddDays(d time.Time, n int) time.Time {
	return d.AddDate(0, 0, n)
}

// DaysBetween returns the number of whole calendar days from a to b.
// It works on Unix seconds since time.Duration saturates near 292 years.
func DaysBetween(a, b time.Time) int {
	a, b = DateOf(a), DateOf(b)
	return int((b.Unix() - a.Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60

// MaxDate returns the later of two dates
func MaxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// MinDate returns the earlier of two dates
func MinDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// ValidateTimezone checks if the timezone name is valid.
func ValidateTimezone(timezone string) bool {
	if timezone == "" || timezone == "Local" {
		return true
	}
	_, err := time.LoadLocation(timezone)
	return err == nil
}
