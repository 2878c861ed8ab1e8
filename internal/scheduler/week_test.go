package scheduler

import (
	"testing"
	"time"

	"github.com/julianstephens/habitpact/internal/utils"
)

func TestWeekStartEnd(t *testing.T) {
	tests := []struct {
		name      string
		today     time.Time
		offset    WeekOffset
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "current week from a Wednesday",
			today:     utils.Date(2022, 2, 2),
			offset:    CurrentWeek,
			wantStart: utils.Date(2022, 1, 30),
			wantEnd:   utils.Date(2022, 2, 5),
		},
		{
			name:      "next week from a Wednesday",
			today:     utils.Date(2022, 2, 2),
			offset:    NextWeek,
			wantStart: utils.Date(2022, 2, 6),
			wantEnd:   utils.Date(2022, 2, 12),
		},
		{
			name:      "current week from a Sunday starts today",
			today:     utils.Date(2022, 2, 6),
			offset:    CurrentWeek,
			wantStart: utils.Date(2022, 2, 6),
			wantEnd:   utils.Date(2022, 2, 12),
		},
		{
			name:      "next week from a Sunday skips today",
			today:     utils.Date(2022, 2, 6),
			offset:    NextWeek,
			wantStart: utils.Date(2022, 2, 13),
			wantEnd:   utils.Date(2022, 2, 19),
		},
		{
			name:      "current week from a Saturday ends today",
			today:     utils.Date(2022, 2, 5),
			offset:    CurrentWeek,
			wantStart: utils.Date(2022, 1, 30),
			wantEnd:   utils.Date(2022, 2, 5),
		},
		{
			name:      "next week from a Saturday starts tomorrow",
			today:     utils.Date(2022, 2, 5),
			offset:    NextWeek,
			wantStart: utils.Date(2022, 2, 6),
			wantEnd:   utils.Date(2022, 2, 12),
		},
		{
			name:      "next week across the year boundary",
			today:     utils.Date(2021, 12, 29),
			offset:    NextWeek,
			wantStart: utils.Date(2022, 1, 2),
			wantEnd:   utils.Date(2022, 1, 8),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeekStart(tt.offset, tt.today); !got.Equal(tt.wantStart) {
				t.Errorf("WeekStart() = %s, want %s", utils.FormatDate(got), utils.FormatDate(tt.wantStart))
			}
			if got := WeekEnd(tt.offset, tt.today); !got.Equal(tt.wantEnd) {
				t.Errorf("WeekEnd() = %s, want %s", utils.FormatDate(got), utils.FormatDate(tt.wantEnd))
			}
		})
	}
}

func TestWeekProperties(t *testing.T) {
	day := utils.Date(2022, 1, 1)
	for i := 0; i < 366*2; i++ {
		today := utils.AddDays(day, i)

		current := Week(CurrentWeek, today)
		if current.Start.After(today) || current.End.Before(today) {
			t.Fatalf("%s: current week %s does not contain today", utils.FormatDate(today), current)
		}
		if current.Start.Weekday() != time.Sunday {
			t.Fatalf("%s: current week starts on %s", utils.FormatDate(today), current.Start.Weekday())
		}
		if utils.DaysBetween(current.Start, current.End) != 6 {
			t.Fatalf("%s: current week %s is not 7 days", utils.FormatDate(today), current)
		}

		next := Week(NextWeek, today)
		if !next.Start.After(today) {
			t.Fatalf("%s: next week %s does not start after today", utils.FormatDate(today), next)
		}
		if next.Start.Weekday() != time.Sunday || next.End.Weekday() != time.Saturday {
			t.Fatalf("%s: next week %s is not Sunday..Saturday", utils.FormatDate(today), next)
		}
		if utils.DaysBetween(today, next.Start) > 7 {
			t.Fatalf("%s: next week %s is not the soonest Sunday", utils.FormatDate(today), next)
		}
		if n := NumLogs(next.Start, &next.End); n != 7 {
			t.Fatalf("%s: next week %s has %d days", utils.FormatDate(today), next, n)
		}
	}
}

func TestHorizon(t *testing.T) {
	tests := []struct {
		today time.Time
		want  time.Time
	}{
		{today: utils.Date(2022, 2, 1), want: utils.Date(2022, 2, 5)},
		{today: utils.Date(2022, 2, 2), want: utils.Date(2022, 2, 5)},
		{today: utils.Date(2022, 2, 5), want: utils.Date(2022, 2, 5)},
		{today: utils.Date(2022, 2, 6), want: utils.Date(2022, 2, 12)},
	}

	for _, tt := range tests {
		t.Run(utils.FormatDate(tt.today), func(t *testing.T) {
			if got := Horizon(tt.today); !got.Equal(tt.want) {
				t.Errorf("Horizon() = %s, want %s", utils.FormatDate(got), utils.FormatDate(tt.want))
			}
		})
	}
}

func TestWeekOffsetString(t *testing.T) {
	if CurrentWeek.String() != "current_week" || NextWeek.String() != "next_week" {
		t.Errorf("unexpected names %q, %q", CurrentWeek, NextWeek)
	}
}
