// Package sqlstore implements storage.Store over database/sql. The sqlite
// and postgres backends share it and differ only in their Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/julianstephens/habitpact/internal/errors"
	"github.com/julianstephens/habitpact/internal/logger"
	"github.com/julianstephens/habitpact/internal/storage"
	"github.com/julianstephens/habitpact/internal/utils"
)

// Dialect captures what differs between SQL backends
type Dialect struct {
	Name string
	// Numbered switches "?" placeholders to "$1", "$2", ...
	Numbered bool
	// IsTransient reports driver errors that may succeed on retry
	IsTransient func(error) bool
	// IsUniqueViolation reports driver errors raised by a unique index
	IsUniqueViolation func(error) bool
}

// maxBatchRows bounds a single multi-row INSERT
const maxBatchRows = 200

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a storage.Store bound either to a connection pool or to an open
// transaction.
type Store struct {
	db      *sql.DB
	tx      *sql.Tx
	dialect Dialect
}

var _ storage.Store = (*Store)(nil)

// New returns a Store over db
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

func (s *Store) q() queryer {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// WithTx runs fn in a transaction. A store that is already inside a
// transaction runs fn directly on it.
func (s *Store) WithTx(ctx context.Context, fn func(storage.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	if s.db == nil {
		return fmt.Errorf("storage not loaded")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrap(fmt.Errorf("failed to begin transaction: %w", err))
	}

	txStore := &Store{tx: tx, dialect: s.dialect}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.Warn("Failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return s.wrap(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := s.q().ExecContext(ctx, s.rebind(query), args...)
	return res, s.wrap(err)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := s.q().QueryContext(ctx, s.rebind(query), args...)
	return rows, s.wrap(err)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.q().QueryRowContext(ctx, s.rebind(query), args...)
}

// wrap classifies a driver error. Unique violations become
// storage.ErrConflict and retryable failures become apperrors transient.
func (s *Store) wrap(err error) error {
	if err == nil {
		return nil
	}
	if s.dialect.IsUniqueViolation != nil && s.dialect.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", storage.ErrConflict, err)
	}
	if s.dialect.IsTransient != nil && s.dialect.IsTransient(err) {
		return apperrors.Transient(err)
	}
	return err
}

// notFound maps sql.ErrNoRows to an apperrors NotFound for entity
func (s *Store) notFound(err error, entity, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(entity, id)
	}
	return s.wrap(err)
}

func (s *Store) rebind(query string) string {
	if !s.dialect.Numbered {
		return query
	}
	return rebind(query)
}

// rebind rewrites "?" placeholders as "$n", leaving quoted text untouched
func rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTimestamp(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", field, err)
	}
	return t, nil
}

func parseDate(field, value string) (time.Time, error) {
	t, err := utils.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", field, err)
	}
	return t, nil
}

func nullableDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: utils.FormatDate(*t), Valid: true}
}
