package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/habitpact/internal/models"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch {
	case m.err != nil:
		content = dangerStyle.Render("Error: " + m.err.Error())
	case m.loading:
		content = statusStyle.Render("Loading...")
	case len(m.plans) == 0:
		content = statusStyle.Render("No plans for this " + strings.ToLower(tabTitles[m.state]))
	default:
		content = m.viewBoard()
	}

	parts := []string{m.viewTabs(), docStyle.Render(content)}
	if m.status != "" {
		parts = append(parts, statusStyle.Render(m.status))
	}
	parts = append(parts, m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) viewTabs() string {
	var tabs []string
	for i, title := range tabTitles {
		if m.state == SessionState(i) {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewBoard() string {
	rows := make([]string, 0, len(m.plans))
	for i, p := range m.plans {
		owner := "you"
		if p.Plan.UserID != m.userID {
			owner = p.User.Username
		}
		row := lipgloss.JoinHorizontal(lipgloss.Top,
			habitStyle.Render(p.Habit.Name),
			partnerStyle.Render(owner),
			m.viewCells(i, p.Logs),
		)
		rows = append(rows, row)
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) viewCells(row int, logs []models.Log) string {
	cells := make([]string, 0, len(logs))
	for j, l := range logs {
		mark := "·"
		style := openStyle
		if l.CompletedAt != nil {
			mark = "✓"
			style = doneStyle
		}
		cell := style.Render(l.ScheduledAt.Weekday().String()[:2] + " " + mark)
		if row == m.row && j == m.col {
			cell = cursorStyle.Render(cell)
		}
		cells = append(cells, cell)
	}
	return strings.Join(cells, "  ")
}
