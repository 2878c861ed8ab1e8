package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/habitpact/internal/utils"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case plansLoadedMsg:
		// A tab switch can race an older load
		if msg.state != m.state {
			return m, nil
		}
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.plans = msg.plans
			m.clamp()
		}

	case logToggledMsg:
		m.err = msg.err
		if msg.err == nil {
			m.replaceLog(msg.log)
			state := "open"
			if msg.log.CompletedAt != nil {
				state = "done"
			}
			m.status = "Marked " + utils.FormatDate(msg.log.ScheduledAt) + " " + state
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Tab):
		return m.switchTab((m.state + 1) % SessionState(len(tabTitles)))
	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchTab((m.state - 1 + SessionState(len(tabTitles))) % SessionState(len(tabTitles)))
	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		return m, m.load()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		m.row--
		m.clamp()
	case key.Matches(msg, m.keys.Down):
		m.row++
		m.clamp()
	case key.Matches(msg, m.keys.Left):
		m.col--
		m.clamp()
	case key.Matches(msg, m.keys.Right):
		m.col++
		m.clamp()
	case key.Matches(msg, m.keys.Toggle):
		plan, log := m.selected()
		if log == nil {
			return m, nil
		}
		if plan.Plan.UserID != m.userID {
			m.status = "Only your own days can be marked"
			return m, nil
		}
		m.status = ""
		return m, m.toggle(log.ID)
	}
	return m, nil
}

func (m Model) switchTab(state SessionState) (tea.Model, tea.Cmd) {
	m.state = state
	m.plans = nil
	m.row, m.col = 0, 0
	m.loading = true
	m.status = ""
	return m, m.load()
}
