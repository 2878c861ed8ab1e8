package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/habitpact/internal/generator"
	"github.com/julianstephens/habitpact/internal/models"
	"github.com/julianstephens/habitpact/internal/utils"
)

type PlanAddCmd struct {
	User  string `required:"" help:"Owner user id."`
	Habit string `required:"" help:"Habit id."`
	Start string `required:"" help:"First day of the plan (YYYY-MM-DD)."`
	End   string `required:"" help:"Last day of the plan (YYYY-MM-DD)."`
	Today string `help:"Reference date (YYYY-MM-DD or 'today')." default:"today"`
}

func (c *PlanAddCmd) Run(ctx *Context) error {
	start, err := parseOptionalDate(c.Start)
	if err != nil {
		return err
	}
	end, err := parseOptionalDate(c.End)
	if err != nil {
		return err
	}
	today, err := ctx.resolveDate(c.Today)
	if err != nil {
		return err
	}

	plan, res, err := ctx.Engine.CreatePlan(context.Background(), c.User, c.Habit, start, end, today)
	if err != nil {
		return err
	}
	ctx.printf("Added plan: %s (%s..%s)\n", plan.ID, utils.FormatDate(plan.StartDate), utils.FormatDate(plan.EndDate))
	ctx.println(describeResult(res))
	return nil
}

type PlanGenerateCmd struct {
	Plan  string `arg:"" help:"Plan id."`
	Today string `help:"Reference date (YYYY-MM-DD or 'today')." default:"today"`
}

func (c *PlanGenerateCmd) Run(ctx *Context) error {
	today, err := ctx.resolveDate(c.Today)
	if err != nil {
		return err
	}
	res, err := ctx.Engine.GenerateForPlan(context.Background(), c.Plan, today)
	if err != nil {
		return err
	}
	ctx.println(describeResult(res))
	return nil
}

func describeResult(res generator.Result) string {
	switch {
	case res.Deferred:
		return mutedStyle.Render("Plan starts after this week; logs will be created by the weekly rollover")
	case res.Range.Start.IsZero():
		return mutedStyle.Render("No logs due")
	default:
		return fmt.Sprintf("Generated %d log(s) for %s (%s)", res.Created, res.Range.String(), res.Mode)
	}
}

type PlanWeekCmd struct {
	User  string `arg:"" help:"User id."`
	Today string `help:"Reference date (YYYY-MM-DD or 'today')." default:"today"`
}

func (c *PlanWeekCmd) Run(ctx *Context) error {
	today, err := ctx.resolveDate(c.Today)
	if err != nil {
		return err
	}
	plans, err := ctx.Engine.WeekPlans(context.Background(), c.User, today)
	if err != nil {
		return err
	}
	ctx.printPlans("This week", plans)
	return nil
}

type PlanTodayCmd struct {
	User  string `arg:"" help:"User id."`
	Today string `help:"Reference date (YYYY-MM-DD or 'today')." default:"today"`
}

func (c *PlanTodayCmd) Run(ctx *Context) error {
	today, err := ctx.resolveDate(c.Today)
	if err != nil {
		return err
	}
	plans, err := ctx.Engine.TodayPlans(context.Background(), c.User, today)
	if err != nil {
		return err
	}
	ctx.printPlans("Today", plans)
	return nil
}

func (c *Context) printPlans(title string, plans []models.PlanWithLogs) {
	if len(plans) == 0 {
		c.println("No plans found")
		return
	}

	c.println(headerStyle.Render(title))
	rows := make([][]string, 0, len(plans))
	for _, p := range plans {
		rows = append(rows, []string{
			p.Habit.Name,
			p.User.Username,
			utils.FormatDate(p.Plan.StartDate) + ".." + utils.FormatDate(p.Plan.EndDate),
			formatLogs(p.Logs),
		})
	}
	c.println(renderTable([]string{"Habit", "User", "Plan", "Days"}, rows))
}

// formatLogs renders one cell per log, checked when completed
func formatLogs(logs []models.Log) string {
	cells := make([]string, 0, len(logs))
	for _, l := range logs {
		day := l.ScheduledAt.Weekday().String()[:2]
		if l.CompletedAt != nil {
			cells = append(cells, doneStyle.Render("✓"+day))
		} else {
			cells = append(cells, " "+day)
		}
	}
	return strings.Join(cells, " ")
}

type LogToggleCmd struct {
	Log string `arg:"" help:"Log id."`
}

func (c *LogToggleCmd) Run(ctx *Context) error {
	l, err := ctx.Engine.ToggleLogCompletion(context.Background(), c.Log)
	if err != nil {
		return err
	}
	state := "not completed"
	if l.CompletedAt != nil {
		state = "completed"
	}
	ctx.printf("Marked %s as %s\n", utils.FormatDate(l.ScheduledAt), state)
	return nil
}
