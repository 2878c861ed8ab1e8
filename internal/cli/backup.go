package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/julianstephens/habitpact/internal/backup"
	"github.com/julianstephens/habitpact/internal/config"
)

type BackupCmd struct {
	Create  BackupCreateCmd  `cmd:"" help:"Create a backup." default:"1"`
	List    BackupListCmd    `cmd:"" help:"List available backups."`
	Restore BackupRestoreCmd `cmd:"" help:"Restore the database from a backup."`
}

func (c *Context) backups() (*backup.Manager, error) {
	if c.Config != nil && c.Config.Database.Driver != config.DriverSQLite {
		return nil, errors.New("backups are only supported for sqlite storage")
	}
	return backup.NewManager(c.Store.GetConfigPath()), nil
}

type BackupCreateCmd struct{}

func (cmd *BackupCreateCmd) Run(ctx *Context) error {
	mgr, err := ctx.backups()
	if err != nil {
		return err
	}
	info, err := mgr.Create(context.Background())
	if err != nil {
		return err
	}
	ctx.printf("✓ Backup created: %s (%s)\n", info.Path, humanize.Bytes(uint64(info.Size)))
	return nil
}

type BackupListCmd struct{}

func (cmd *BackupListCmd) Run(ctx *Context) error {
	mgr, err := ctx.backups()
	if err != nil {
		return err
	}
	backups, err := mgr.List()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		ctx.println("No backups found")
		return nil
	}

	rows := make([][]string, 0, len(backups))
	for _, b := range backups {
		rows = append(rows, []string{
			filepath.Base(b.Path),
			b.Timestamp.Format("2006-01-02 15:04:05"),
			humanize.Bytes(uint64(b.Size)),
		})
	}
	ctx.println(mutedStyle.Render(mgr.Dir()))
	ctx.println(renderTable([]string{"Backup", "Created", "Size"}, rows))
	return nil
}

type BackupRestoreCmd struct {
	Backup string `arg:"" help:"Backup file name or path."`
	Yes    bool   `short:"y" help:"Restore without confirmation."`
}

func (cmd *BackupRestoreCmd) Run(ctx *Context) error {
	mgr, err := ctx.backups()
	if err != nil {
		return err
	}

	path := cmd.Backup
	if filepath.Base(path) == path {
		path = filepath.Join(mgr.Dir(), path)
	}

	if !cmd.Yes {
		ok, err := confirm(fmt.Sprintf("Replace the database with %s?", filepath.Base(path)))
		if err != nil {
			return err
		}
		if !ok {
			ctx.println("Cancelled")
			return nil
		}
	}

	if err := ctx.Store.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	saved, err := mgr.Restore(context.Background(), path)
	if err != nil {
		return err
	}
	if saved.Path != "" {
		ctx.printf("Saved the previous database as %s\n", filepath.Base(saved.Path))
	}
	ctx.printf("✓ Restored database from %s\n", filepath.Base(path))
	return nil
}

// snapshotBeforeMigrate backs up a sqlite database that has pending
// migrations. Other drivers are left to their own tooling.
func (c *Context) snapshotBeforeMigrate(ctx context.Context) error {
	if c.Config == nil || c.Config.Database.Driver != config.DriverSQLite {
		return nil
	}
	current, latest, err := c.Store.SchemaVersion(ctx)
	if err != nil || current >= latest {
		return err
	}
	mgr, err := c.backups()
	if err != nil {
		return err
	}
	info, err := mgr.Create(ctx)
	if err != nil {
		return fmt.Errorf("failed to back up database before migrating: %w", err)
	}
	c.printf("Backed up database to %s\n", info.Path)
	return nil
}
