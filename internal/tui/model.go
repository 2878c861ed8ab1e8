// Package tui is the interactive week board: a user's plans and their
// partners' plans, one row each, with a cell per generated day.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/habitpact/internal/models"
)

type SessionState int

const (
	StateWeek SessionState = iota
	StateToday
)

var tabTitles = []string{"Week", "Today"}

// Board is the engine surface the TUI reads and writes
type Board interface {
	WeekPlans(ctx context.Context, userID string, today time.Time) ([]models.PlanWithLogs, error)
	TodayPlans(ctx context.Context, userID string, today time.Time) ([]models.PlanWithLogs, error)
	ToggleLogCompletion(ctx context.Context, logID string) (models.Log, error)
}

type plansLoadedMsg struct {
	state SessionState
	plans []models.PlanWithLogs
	err   error
}

type logToggledMsg struct {
	log models.Log
	err error
}

type Model struct {
	board  Board
	userID string
	today  time.Time

	state    SessionState
	keys     KeyMap
	help     help.Model
	plans    []models.PlanWithLogs
	row      int
	col      int
	loading  bool
	status   string
	err      error
	quitting bool
	width    int
	height   int
}

func NewModel(board Board, userID string, today time.Time) Model {
	return Model{
		board:   board,
		userID:  userID,
		today:   today,
		state:   StateWeek,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return m.load()
}

func (m Model) load() tea.Cmd {
	board, userID, today, state := m.board, m.userID, m.today, m.state
	return func() tea.Msg {
		var (
			plans []models.PlanWithLogs
			err   error
		)
		if state == StateToday {
			plans, err = board.TodayPlans(context.Background(), userID, today)
		} else {
			plans, err = board.WeekPlans(context.Background(), userID, today)
		}
		return plansLoadedMsg{state: state, plans: plans, err: err}
	}
}

func (m Model) toggle(logID string) tea.Cmd {
	board := m.board
	return func() tea.Msg {
		l, err := board.ToggleLogCompletion(context.Background(), logID)
		return logToggledMsg{log: l, err: err}
	}
}

// selected returns the plan and log under the cursor
func (m Model) selected() (*models.PlanWithLogs, *models.Log) {
	if m.row >= len(m.plans) {
		return nil, nil
	}
	p := &m.plans[m.row]
	if m.col >= len(p.Logs) {
		return p, nil
	}
	return p, &p.Logs[m.col]
}

// clamp keeps the cursor on an existing cell
func (m *Model) clamp() {
	m.row = min(max(m.row, 0), max(len(m.plans)-1, 0))
	logs := 0
	if m.row < len(m.plans) {
		logs = len(m.plans[m.row].Logs)
	}
	m.col = min(max(m.col, 0), max(logs-1, 0))
}

// replaceLog swaps in an updated log wherever it is shown
func (m *Model) replaceLog(l models.Log) {
	for i := range m.plans {
		for j := range m.plans[i].Logs {
			if m.plans[i].Logs[j].ID == l.ID {
				m.plans[i].Logs[j] = l
			}
		}
	}
}
