package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/habitpact/internal/tui"
)

type TuiCmd struct {
	User  string `arg:"" help:"User id."`
	Today string `help:"Reference date (YYYY-MM-DD or 'today')." default:"today"`
}

func (c *TuiCmd) Run(ctx *Context) error {
	today, err := ctx.resolveDate(c.Today)
	if err != nil {
		return err
	}
	if _, err := ctx.Store.GetUser(context.Background(), c.User); err != nil {
		return err
	}

	p := tea.NewProgram(tui.NewModel(ctx.Engine, c.User, today), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
