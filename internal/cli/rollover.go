package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	apperrors "github.com/julianstephens/habitpact/internal/errors"
	"github.com/julianstephens/habitpact/internal/rollover"
)

// RolloverCmd runs the weekly rollover once. Schedule it from cron or a
// systemd timer; the lockfile keeps overlapping runs from racing.
type RolloverCmd struct {
	Date   string `help:"Reference date (YYYY-MM-DD or 'today')." default:"today"`
	NoWait bool   `help:"Fail on the first transient error instead of retrying."`
}

func (c *RolloverCmd) Run(ctx *Context) error {
	today, err := ctx.resolveDate(c.Date)
	if err != nil {
		return err
	}

	lockDir := "."
	if ctx.Config != nil {
		lockDir = ctx.Config.DataDir()
	}
	lock, err := rollover.AcquireLock(lockDir)
	if err != nil {
		if errors.Is(err, rollover.ErrLocked) {
			return errors.New("another rollover is already running")
		}
		return err
	}
	defer lock.Release()

	runner := rollover.NewRunner(ctx.Engine.RolloverJob())
	if ctx.Config != nil {
		runner.MaxAttempts = ctx.Config.Rollover.MaxAttempts
		runner.Delay = ctx.Config.Rollover.RetryDelay
	}
	if c.NoWait {
		runner.MaxAttempts = 1
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, attempts, err := runner.RunWithRetry(sigCtx, today)
	if err != nil {
		return fmt.Errorf("rollover failed after %d attempt(s): %w", attempts, err)
	}

	ctx.printReport(report, attempts)
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d plan(s) failed to roll over", len(report.Failed))
	}
	return nil
}

func (c *Context) printReport(report rollover.Report, attempts int) {
	c.println(headerStyle.Render("Rollover " + report.Window.String()))
	c.printf("%s %d plan(s), %d log(s) created, %d attempt(s)\n",
		doneStyle.Render("✓"), len(report.Succeeded), report.Created, attempts)

	if len(report.Failed) == 0 {
		return
	}
	rows := make([][]string, 0, len(report.Failed))
	for _, f := range report.Failed {
		rows = append(rows, []string{f.PlanID, strconv.FormatBool(apperrors.IsTransient(f.Err)), f.Err.Error()})
	}
	c.println(renderTable([]string{"Plan", "Transient", "Error"}, rows))
}
