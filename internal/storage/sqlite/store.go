package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/julianstephens/habitpact/internal/constants"
	"github.com/julianstephens/habitpact/internal/logger"
	"github.com/julianstephens/habitpact/internal/migration"
	"github.com/julianstephens/habitpact/internal/storage"
	"github.com/julianstephens/habitpact/internal/storage/sqlstore"
	"github.com/julianstephens/habitpact/migrations"
)

// busyTimeoutMS is how long a connection waits on a locked database
const busyTimeoutMS = 5000

var dialect = sqlstore.Dialect{
	Name:              "sqlite",
	IsTransient:       isTransient,
	IsUniqueViolation: isUniqueViolation,
}

type Store struct {
	*sqlstore.Store

	path string
	db   *sql.DB
}

var _ storage.Provider = (*Store)(nil)

func NewStore(path string) *Store {
	return &Store{
		path: path,
	}
}

func (s *Store) Init(ctx context.Context) error {
	// Create config directory if it doesn't exist
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := s.open(); err != nil {
		return err
	}

	if err := s.runMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) error {
	if s.db != nil {
		return nil
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return fmt.Errorf("storage not initialized, run '%s init' first", constants.AppName)
	}

	if err := s.open(); err != nil {
		return err
	}

	// Validate schema version using embedded migrations
	runner, err := s.runner()
	if err != nil {
		return err
	}
	return runner.ValidateVersion(ctx)
}

func (s *Store) open() error {
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", dsn(s.path))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; concurrent callers queue on the pool.
	db.SetMaxOpenConns(1)

	s.db = db
	s.Store = sqlstore.New(db, dialect)
	return nil
}

func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		s.Store = nil
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("storage not loaded")
	}
	return s.db.PingContext(ctx)
}

func (s *Store) SchemaVersion(ctx context.Context) (int, int, error) {
	runner, err := s.runner()
	if err != nil {
		return 0, 0, err
	}
	return runner.Versions(ctx)
}

func (s *Store) runMigrations(ctx context.Context) error {
	_, err := s.Migrate(ctx, func(msg string) {
		logger.Info(msg)
	})
	return err
}

func (s *Store) Migrate(ctx context.Context, logFn func(string)) (int, error) {
	if s.db == nil {
		return 0, fmt.Errorf("storage not loaded")
	}
	runner, err := s.runner()
	if err != nil {
		return 0, err
	}
	return runner.ApplyMigrations(ctx, logFn)
}

func (s *Store) runner() (*migration.Runner, error) {
	// Get the embedded SQLite migrations sub-filesystem
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite migrations: %w", err)
	}
	return migration.NewRunner(s.db, subFS, migration.DriverSQLite), nil
}

func (s *Store) GetConfigPath() string {
	return s.path
}

// dsn enables foreign keys and a busy timeout on every pooled connection
func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMS))
	return path + "?" + q.Encode()
}

func sqliteCode(err error) (int, bool) {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code(), true
	}
	return 0, false
}

func isTransient(err error) bool {
	code, ok := sqliteCode(err)
	if !ok {
		return false
	}
	switch code & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

func isUniqueViolation(err error) bool {
	code, ok := sqliteCode(err)
	if !ok {
		return false
	}
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
