package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/habitpact/internal/models"
)

type fakeBoard struct {
	week    []models.PlanWithLogs
	today   []models.PlanWithLogs
	err     error
	toggled []string
}

func (b *fakeBoard) WeekPlans(_ context.Context, _ string, _ time.Time) ([]models.PlanWithLogs, error) {
	return b.week, b.err
}

func (b *fakeBoard) TodayPlans(_ context.Context, _ string, _ time.Time) ([]models.PlanWithLogs, error) {
	return b.today, b.err
}

func (b *fakeBoard) ToggleLogCompletion(_ context.Context, logID string) (models.Log, error) {
	b.toggled = append(b.toggled, logID)
	for _, p := range b.week {
		for _, l := range p.Logs {
			if l.ID == logID {
				if l.CompletedAt == nil {
					done := l.ScheduledAt
					l.CompletedAt = &done
				} else {
					l.CompletedAt = nil
				}
				return l, nil
			}
		}
	}
	return models.Log{}, errors.New("log not found")
}

var wed = time.Date(2022, 2, 2, 0, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return wed.AddDate(0, 0, offset)
}

func newBoard() *fakeBoard {
	own := models.PlanWithLogs{
		Plan:  models.HabitPlan{ID: "plan-1", UserID: "alice"},
		User:  models.User{ID: "alice", Username: "alice"},
		Habit: models.Habit{Name: "Read"},
		Logs: []models.Log{
			{ID: "log-1", PlanID: "plan-1", ScheduledAt: day(0)},
			{ID: "log-2", PlanID: "plan-1", ScheduledAt: day(1)},
		},
	}
	partner := models.PlanWithLogs{
		Plan:  models.HabitPlan{ID: "plan-2", UserID: "bob"},
		User:  models.User{ID: "bob", Username: "bobby"},
		Habit: models.Habit{Name: "Run"},
		Logs: []models.Log{
			{ID: "log-3", PlanID: "plan-2", ScheduledAt: day(0)},
		},
	}
	return &fakeBoard{
		week:  []models.PlanWithLogs{own, partner},
		today: []models.PlanWithLogs{own},
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send feeds msg to the model and runs any resulting command once
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd != nil {
		if out := cmd(); out != nil {
			next, _ = m.Update(out)
			m = next.(Model)
		}
	}
	return m
}

func loaded(t *testing.T, board Board) Model {
	t.Helper()
	m := NewModel(board, "alice", wed)
	next, _ := m.Update(m.Init()())
	return next.(Model)
}

func TestInitLoadsWeek(t *testing.T) {
	m := loaded(t, newBoard())

	if m.loading {
		t.Fatal("expected loading to be finished")
	}
	if len(m.plans) != 2 {
		t.Fatalf("expected 2 plans, got %d", len(m.plans))
	}

	view := m.View()
	for _, want := range []string{"Week", "Today", "Read", "Run", "bobby", "you"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}

func TestToggleOwnLog(t *testing.T) {
	board := newBoard()
	m := loaded(t, board)

	m = send(t, m, runes("l"))
	if m.col != 1 {
		t.Fatalf("expected cursor on column 1, got %d", m.col)
	}

	m = send(t, m, runes("x"))
	if len(board.toggled) != 1 || board.toggled[0] != "log-2" {
		t.Fatalf("expected log-2 toggled, got %v", board.toggled)
	}
	if m.plans[0].Logs[1].CompletedAt == nil {
		t.Error("expected log-2 to be shown as completed")
	}
	if !strings.Contains(m.status, "2022-02-03 done") {
		t.Errorf("unexpected status %q", m.status)
	}
}

func TestTogglePartnerLogRejected(t *testing.T) {
	board := newBoard()
	m := loaded(t, board)

	m = send(t, m, runes("j"))
	if m.row != 1 {
		t.Fatalf("expected cursor on row 1, got %d", m.row)
	}

	m = send(t, m, runes("x"))
	if len(board.toggled) != 0 {
		t.Fatalf("expected no toggles, got %v", board.toggled)
	}
	if m.status != "Only your own days can be marked" {
		t.Errorf("unexpected status %q", m.status)
	}
}

func TestCursorClamped(t *testing.T) {
	m := loaded(t, newBoard())

	tests := []struct {
		name    string
		keys    []string
		wantRow int
		wantCol int
	}{
		{"up at top", []string{"k"}, 0, 0},
		{"left at start", []string{"h"}, 0, 0},
		{"past last day", []string{"l", "l", "l"}, 0, 1},
		{"shorter row", []string{"l", "j"}, 1, 0},
		{"past last plan", []string{"j", "j", "j"}, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m
			for _, k := range tt.keys {
				got = send(t, got, runes(k))
			}
			if got.row != tt.wantRow || got.col != tt.wantCol {
				t.Errorf("cursor = (%d,%d), want (%d,%d)", got.row, got.col, tt.wantRow, tt.wantCol)
			}
		})
	}
}

func TestTabSwitchesToToday(t *testing.T) {
	m := loaded(t, newBoard())

	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.state != StateToday {
		t.Fatalf("expected today tab, got %d", m.state)
	}
	if len(m.plans) != 1 {
		t.Errorf("expected 1 plan, got %d", len(m.plans))
	}

	m = send(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.state != StateWeek {
		t.Errorf("expected week tab, got %d", m.state)
	}
}

func TestStaleLoadIgnored(t *testing.T) {
	m := loaded(t, newBoard())
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)

	next, _ = m.Update(plansLoadedMsg{state: StateWeek, plans: nil})
	m = next.(Model)
	if !m.loading {
		t.Error("expected stale week load to be ignored")
	}
}

func TestLoadError(t *testing.T) {
	m := loaded(t, &fakeBoard{err: errors.New("database is locked")})

	if m.err == nil {
		t.Fatal("expected error to be recorded")
	}
	if !strings.Contains(m.View(), "database is locked") {
		t.Error("expected error in view")
	}
}

func TestEmptyBoard(t *testing.T) {
	m := loaded(t, &fakeBoard{})

	if !strings.Contains(m.View(), "No plans for this week") {
		t.Errorf("unexpected view: %s", m.View())
	}
	// Toggle with nothing selected is a no-op
	next, cmd := m.Update(runes("x"))
	if cmd != nil {
		t.Error("expected no command")
	}
	_ = next
}

func TestQuit(t *testing.T) {
	m := loaded(t, newBoard())

	next, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if next.(Model).View() != "" {
		t.Error("expected empty view after quit")
	}
}
