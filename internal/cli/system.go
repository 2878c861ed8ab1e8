package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/habitpact/internal/config"
	"github.com/julianstephens/habitpact/internal/constants"
	"github.com/julianstephens/habitpact/internal/utils"
)

type InitCmd struct{}

func (c *InitCmd) Run(ctx *Context) error {
	if err := ctx.Store.Init(context.Background()); err != nil {
		return err
	}
	ctx.printf("Initialized habitpact storage at: %s\n", ctx.Store.GetConfigPath())
	return nil
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *Context) error {
	bg := context.Background()
	if err := ctx.snapshotBeforeMigrate(bg); err != nil {
		return err
	}

	count, err := ctx.Store.Migrate(bg, func(msg string) {
		ctx.println(msg)
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if count == 0 {
		ctx.println("No migrations to apply. Database is up to date.")
	} else {
		ctx.printf("\nSuccessfully applied %d migration(s).\n", count)
	}
	return nil
}

type DoctorCmd struct{}

func (cmd *DoctorCmd) Run(ctx *Context) error {
	ctx.println("Running diagnostics...")
	ctx.println()

	hasError := false
	check := func(name string, err error) bool {
		if err != nil {
			ctx.printf("❌ %s: FAIL\n", name)
			ctx.printf("   Error: %v\n", err)
			hasError = true
			return false
		}
		ctx.printf("✓ %s: OK\n", name)
		return true
	}

	bg := context.Background()
	if check("Database reachable", checkDBReachable(bg, ctx)) {
		check("Schema version", checkSchemaVersion(bg, ctx))
	} else {
		ctx.printf("⊘ Schema version: SKIPPED (database not reachable)\n")
	}

	check("Clock/timezone", checkClockTimezone(ctx))

	if ctx.Config != nil && ctx.Config.Database.Driver == config.DriverPostgres {
		if config.KeyringAvailable() {
			ctx.printf("✓ OS keyring: OK\n")
		} else {
			ctx.printf("⚠ OS keyring: WARNING\n")
			ctx.printf("   Keyring unavailable, use %sDATABASE_URL for credentials\n", constants.EnvPrefix)
		}
	}

	ctx.println()
	if hasError {
		return fmt.Errorf("diagnostics found problems")
	}
	ctx.println("All checks passed.")
	return nil
}

func checkDBReachable(ctx context.Context, c *Context) error {
	if err := c.Store.Load(ctx); err != nil {
		return err
	}
	return c.Store.Ping(ctx)
}

func checkSchemaVersion(ctx context.Context, c *Context) error {
	current, latest, err := c.Store.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if current > latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
	}
	if current < latest {
		return fmt.Errorf("database schema version (%d) is behind (%d), run 'habitpact migrate'", current, latest)
	}
	return nil
}

func checkClockTimezone(c *Context) error {
	tz := ""
	if c.Config != nil {
		tz = c.Config.Timezone
	}
	if !utils.ValidateTimezone(tz) {
		return fmt.Errorf("invalid timezone %q", tz)
	}
	now := time.Now()
	if now.Year() < 2020 {
		return fmt.Errorf("system clock looks wrong: %s", now.Format(time.RFC3339))
	}
	return nil
}
