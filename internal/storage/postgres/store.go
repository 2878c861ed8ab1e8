package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	pq "github.com/lib/pq"

	"github.com/julianstephens/habitpact/internal/constants"
	"github.com/julianstephens/habitpact/internal/logger"
	"github.com/julianstephens/habitpact/internal/migration"
	"github.com/julianstephens/habitpact/internal/storage"
	"github.com/julianstephens/habitpact/internal/storage/sqlstore"
	"github.com/julianstephens/habitpact/migrations"
)

var dialect = sqlstore.Dialect{
	Name:              "postgres",
	Numbered:          true,
	IsTransient:       isTransient,
	IsUniqueViolation: isUniqueViolation,
}

type Store struct {
	*sqlstore.Store

	connStr string
	db      *sql.DB
}

var _ storage.Provider = (*Store)(nil)

var (
	ErrInvalidConnectionString = errors.New("invalid PostgreSQL connection string")
	ErrEmbeddedCredentials     = errors.New("connection string must not contain a password")
)

func New(connStr string) *Store {
	s := &Store{
		connStr: connStr,
	}
	s.ensureSearchPath()
	return s
}

func (s *Store) ensureSearchPath() {
	// Ensure search_path is set to the app schema in the connection string
	if strings.HasPrefix(s.connStr, "postgres://") || strings.HasPrefix(s.connStr, "postgresql://") {
		u, err := url.Parse(s.connStr)
		if err != nil {
			logger.Warn("Failed to parse Postgres connection string", "error", err)
			return
		}
		q := u.Query()
		// Only set search_path if it's not already present
		if q.Get("search_path") == "" {
			q.Set("search_path", constants.AppName)
			u.RawQuery = q.Encode()
			s.connStr = u.String()
		}
	} else {
		// Assume DSN format - only append if search_path is not already present
		if !hasSearchPathParam(s.connStr) {
			s.connStr = strings.TrimSpace(s.connStr) + " search_path=" + constants.AppName
		}
	}
}

// hasSearchPathParam returns true if the given DSN-style connection string
// contains a search_path parameter key (case-insensitive).
func hasSearchPathParam(connStr string) bool {
	return hasDSNKey(connStr, "search_path")
}

// hasSSLMode checks if the connection string contains an sslmode parameter key (case-insensitive).
// It supports both URL-style and DSN-style connection strings.
func hasSSLMode(connStr string) bool {
	if u, err := url.Parse(connStr); err == nil && u.Scheme != "" {
		for key := range u.Query() {
			if strings.EqualFold(key, "sslmode") {
				return true
			}
		}
	}
	return hasDSNKey(connStr, "sslmode")
}

func hasDSNKey(connStr, key string) bool {
	for _, part := range strings.Fields(connStr) {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		if strings.EqualFold(kv[0], key) {
			return true
		}
	}
	return false
}

// ValidateConnString checks that a connection string is a valid
// PostgreSQL URI or DSN and that it does not carry a password. Passwords
// belong in the OS keyring or a pgpass file.
func ValidateConnString(connStr string) (bool, error) {
	if strings.TrimSpace(connStr) == "" {
		return false, fmt.Errorf("%w: connection string cannot be empty", ErrInvalidConnectionString)
	}

	if _, err := pq.NewConnector(connStr); err != nil {
		return false, fmt.Errorf("%w: invalid connection string format: %v", ErrInvalidConnectionString, err)
	}

	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		parsedURL, err := url.Parse(connStr)
		if err != nil {
			return false, fmt.Errorf("%w: failed to parse connection URL: %v", ErrInvalidConnectionString, err)
		}

		if _, isSet := parsedURL.User.Password(); isSet {
			return false, ErrEmbeddedCredentials
		}

		if parsedURL.Host == "" && parsedURL.User == nil && (parsedURL.Path == "" || parsedURL.Path == "/") {
			return false, fmt.Errorf("%w: connection URL is incomplete", ErrInvalidConnectionString)
		}
	} else if hasDSNKey(connStr, "password") {
		return false, ErrEmbeddedCredentials
	}

	return true, nil
}

func (s *Store) Init(ctx context.Context) error {
	db, err := s.open()
	if err != nil {
		return err
	}

	// Create schema before any migration runs inside it
	if _, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+constants.AppName); err != nil {
		db.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	s.attach(db)

	if err := s.ping(ctx); err != nil {
		return err
	}

	if _, err := s.Migrate(ctx, func(msg string) {
		logger.Info(msg)
	}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
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

func (s *Store) Load(ctx context.Context) error {
	if s.db != nil {
		return nil
	}

	db, err := s.open()
	if err != nil {
		return err
	}
	s.attach(db)

	if err := s.ping(ctx); err != nil {
		return err
	}

	// Validate schema version using embedded migrations
	runner, err := s.runner()
	if err != nil {
		return err
	}
	return runner.ValidateVersion(ctx)
}

func (s *Store) open() (*sql.DB, error) {
	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool parameters to avoid connection exhaustion
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

func (s *Store) attach(db *sql.DB) {
	s.db = db
	s.Store = sqlstore.New(db, dialect)
}

func (s *Store) ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		if strings.Contains(err.Error(), "SSL is not enabled on the server") && !hasSSLMode(s.connStr) {
			return fmt.Errorf("failed to connect to database: %w (hint: try adding ?sslmode=disable to your connection string)", err)
		}
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("storage not loaded")
	}
	return s.ping(ctx)
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

func (s *Store) SchemaVersion(ctx context.Context) (int, int, error) {
	runner, err := s.runner()
	if err != nil {
		return 0, 0, err
	}
	return runner.Versions(ctx)
}

func (s *Store) runner() (*migration.Runner, error) {
	// Get the embedded PostgreSQL migrations sub-filesystem
	subFS, err := fs.Sub(migrations.FS, "postgres")
	if err != nil {
		return nil, fmt.Errorf("failed to access postgres migrations: %w", err)
	}
	return migration.NewRunner(s.db, subFS, migration.DriverPostgres), nil
}

func (s *Store) GetConfigPath() string {
	// Return a non-sensitive identifier instead of the full connection string
	return "postgresql"
}

func isTransient(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return errors.Is(err, sql.ErrConnDone)
	}
	switch {
	case pqErr.Code.Class() == "08": // connection exception
		return true
	case pqErr.Code == "40001", pqErr.Code == "40P01": // serialization failure, deadlock
		return true
	case pqErr.Code == "57P03": // cannot connect now
		return true
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
