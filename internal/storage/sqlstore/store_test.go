package sqlstore

import (
	"errors"
	"fmt"
	"testing"

	apperrors "github.com/julianstephens/habitpact/internal/errors"
	"github.com/julianstephens/habitpact/internal/storage"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "SELECT 1", want: "SELECT 1"},
		{in: "SELECT * FROM t WHERE a = ? AND b = ?", want: "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{in: "SELECT '?' FROM t WHERE a = ?", want: "SELECT '?' FROM t WHERE a = $1"},
		{in: "VALUES (?, ?), (?, ?)", want: "VALUES ($1, $2), ($3, $4)"},
	}

	for _, tt := range tests {
		if got := rebind(tt.in); got != tt.want {
			t.Errorf("rebind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWrapClassifiesDriverErrors(t *testing.T) {
	errBusy := errors.New("database is locked")
	errDup := errors.New("UNIQUE constraint failed")

	s := &Store{dialect: Dialect{
		IsTransient:       func(err error) bool { return errors.Is(err, errBusy) },
		IsUniqueViolation: func(err error) bool { return errors.Is(err, errDup) },
	}}

	if err := s.wrap(nil); err != nil {
		t.Errorf("wrap(nil) = %v, want nil", err)
	}
	if err := s.wrap(fmt.Errorf("exec: %w", errBusy)); !apperrors.IsTransient(err) {
		t.Errorf("wrap(busy) = %v, want transient", err)
	}
	if err := s.wrap(errDup); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("wrap(duplicate) = %v, want ErrConflict", err)
	}
	other := errors.New("syntax error")
	if err := s.wrap(other); err != other {
		t.Errorf("wrap(other) = %v, want unchanged", err)
	}
}
