package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/habitpact/internal/cli"
	"github.com/julianstephens/habitpact/internal/config"
	"github.com/julianstephens/habitpact/internal/constants"
	"github.com/julianstephens/habitpact/internal/engine"
	apperrors "github.com/julianstephens/habitpact/internal/errors"
	"github.com/julianstephens/habitpact/internal/logger"
	"github.com/julianstephens/habitpact/internal/notifier"
	"github.com/julianstephens/habitpact/internal/storage"
	"github.com/julianstephens/habitpact/internal/storage/postgres"
	"github.com/julianstephens/habitpact/internal/storage/sqlite"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"path" default:"${config_path}"`
	EnvFile string `help:"Dotenv file loaded before reading the environment." default:".env"`
	Debug   bool   `help:"Enable debug logging."`

	Init     cli.InitCmd     `cmd:"" help:"Initialize habitpact storage."`
	Migrate  cli.MigrateCmd  `cmd:"" help:"Run database migrations."`
	Doctor   cli.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	Serve    cli.ServeCmd    `cmd:"" help:"Serve the HTTP API."`
	Rollover cli.RolloverCmd `cmd:"" help:"Generate next week's logs for every active plan."`
	DebugCmd cli.DebugCmd    `cmd:"" name:"debug" help:"Debug commands for troubleshooting."`
	Keyring  cli.KeyringCmd  `cmd:"" help:"Manage the PostgreSQL connection string in the OS keyring."`
	Backup   cli.BackupCmd   `cmd:"" help:"Manage sqlite database backups."`
	Tui      cli.TuiCmd      `cmd:"" help:"Open the interactive week board."`
	User     struct {
		Add cli.UserAddCmd `cmd:"" help:"Add a user."`
	} `cmd:"" help:"Manage users."`
	Habit struct {
		Add cli.HabitAddCmd `cmd:"" help:"Add a habit."`
	} `cmd:"" help:"Manage habits."`
	Plan struct {
		Add      cli.PlanAddCmd      `cmd:"" help:"Add a habit plan and generate its first logs."`
		Generate cli.PlanGenerateCmd `cmd:"" help:"Run a generation pass for a plan."`
		Week     cli.PlanWeekCmd     `cmd:"" help:"Show this week's plans for a user and their partners."`
		Today    cli.PlanTodayCmd    `cmd:"" help:"Show today's plans for a user and their partners."`
	} `cmd:"" help:"Manage habit plans."`
	Log struct {
		Toggle cli.LogToggleCmd `cmd:"" help:"Toggle a log's completion."`
	} `cmd:"" help:"Manage habit logs."`
	Invite struct {
		Create  cli.InviteCreateCmd  `cmd:"" help:"Invite someone to a plan."`
		Accept  cli.InviteAcceptCmd  `cmd:"" help:"Accept an invitation."`
		Decline cli.InviteDeclineCmd `cmd:"" help:"Decline an invitation."`
		List    cli.InviteListCmd    `cmd:"" help:"List received or sent invitations."`
	} `cmd:"" help:"Manage plan invitations."`
}

// storeless commands run without a configured database
var storeless = map[string]bool{"keyring": true}

// selfLoading commands open the store themselves
var selfLoading = map[string]bool{"init": true, "doctor": true, "keyring": true}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Weekly habit plans with accountability partners"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":     constants.Version,
			"config_path": constants.DefaultConfigPath,
		},
	)
	command := strings.Fields(ctx.Command())[0]

	cfg, err := config.Load(CLI.Config, CLI.EnvFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if CLI.Debug {
		cfg.Debug = true
	}

	if err := logger.Init(logger.Config{
		Debug:  cfg.Debug,
		LogDir: cfg.LogDir,
		Stderr: command == "serve" || command == "rollover",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	appCtx := &cli.Context{Config: cfg}
	if !storeless[command] {
		store, err := newStore(cfg)
		if err != nil {
			apperrors.Fatal(err)
		}
		appCtx.Store = store
		appCtx.Engine = engine.New(store, engine.Options{
			Publisher:       newPublisher(cfg),
			RolloverWorkers: cfg.Rollover.Workers,
		})

		if !selfLoading[command] {
			if err := store.Load(context.Background()); err != nil {
				apperrors.Fatal(err)
			}
		}
	}

	err = ctx.Run(appCtx)
	if appCtx.Store != nil {
		appCtx.Store.Close()
	}
	apperrors.Fatal(err)
}

func newStore(cfg *config.Config) (storage.Provider, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		connStr, err := cfg.ConnectionString()
		if err != nil {
			return nil, err
		}
		return postgres.New(connStr), nil
	default:
		return sqlite.NewStore(cfg.Database.Path), nil
	}
}

func newPublisher(cfg *config.Config) notifier.Publisher {
	if cfg.Notify.WebhookURL == "" {
		return notifier.Log{}
	}
	return notifier.Multi{
		notifier.Log{},
		notifier.NewWebhook(cfg.Notify.WebhookURL, cfg.Notify.WebhookSecret),
	}
}
