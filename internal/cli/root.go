package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/julianstephens/habitpact/internal/config"
	"github.com/julianstephens/habitpact/internal/engine"
	"github.com/julianstephens/habitpact/internal/storage"
	"github.com/julianstephens/habitpact/internal/utils"
)

type Context struct {
	Config *config.Config
	Store  storage.Provider
	Engine *engine.Engine
	// Out receives command output; stdout when nil
	Out io.Writer
	// Today returns the reference date; the configured timezone's date when nil
	Today func() (time.Time, error)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

func (c *Context) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out(), format, args...)
}

func (c *Context) println(args ...interface{}) {
	fmt.Fprintln(c.out(), args...)
}

func (c *Context) today() (time.Time, error) {
	if c.Today != nil {
		return c.Today()
	}
	tz := ""
	if c.Config != nil {
		tz = c.Config.Timezone
	}
	return utils.TodayInTimezone(tz)
}

// resolveDate accepts YYYY-MM-DD or "today"; blank means today
func (c *Context) resolveDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "today") {
		return c.today()
	}
	d, err := utils.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or 'today'", s)
	}
	return d, nil
}

// parseOptionalDate leaves blank values for validation to report
func parseOptionalDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	d, err := utils.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		String()
}
