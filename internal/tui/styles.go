package tui

import "github.com/charmbracelet/lipgloss"

var (
	activeTabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(lipgloss.Color("236")).
			Padding(0, 1).
			Bold(true)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 1)

	docStyle = lipgloss.NewStyle().Padding(1, 2)

	habitStyle   = lipgloss.NewStyle().Bold(true).Width(20)
	partnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(12)
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	openStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	cursorStyle  = lipgloss.NewStyle().Reverse(true)
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	dangerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)
