package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/julianstephens/habitpact/internal/models"
	"github.com/julianstephens/habitpact/internal/utils"
)

type DebugCmd struct {
	DBPath   DebugDBPathCmd   `cmd:"" help:"Show database path."`
	DumpPlan DebugDumpPlanCmd `cmd:"" help:"Dump a plan and its logs as JSON."`
}

type DebugDBPathCmd struct{}

func (cmd *DebugDBPathCmd) Run(ctx *Context) error {
	return ctx.printJSON(map[string]string{
		"path": ctx.Store.GetConfigPath(),
	})
}

type DebugDumpPlanCmd struct {
	Plan string `arg:"" help:"Plan id."`
	From string `help:"First day of logs to include (YYYY-MM-DD)." default:"0001-01-01"`
	To   string `help:"Last day of logs to include (YYYY-MM-DD)." default:"9999-12-31"`
}

func (cmd *DebugDumpPlanCmd) Run(ctx *Context) error {
	from, err := utils.ParseDate(cmd.From)
	if err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}
	to, err := utils.ParseDate(cmd.To)
	if err != nil {
		return fmt.Errorf("invalid --to: %w", err)
	}

	bg := context.Background()
	plan, err := ctx.Store.GetPlan(bg, cmd.Plan)
	if err != nil {
		return err
	}
	logs, err := ctx.Store.GetLogsForPlan(bg, plan.ID, from, to)
	if err != nil {
		return err
	}
	if logs == nil {
		logs = []models.Log{}
	}

	return ctx.printJSON(struct {
		Plan models.HabitPlan `json:"habit_plan"`
		Logs []models.Log     `json:"habit_logs"`
	}{plan, logs})
}

func (c *Context) printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	c.println(string(b))
	return nil
}
