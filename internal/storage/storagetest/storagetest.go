// Package storagetest provides migrated sqlite stores and fixtures for tests
package storagetest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/habitpact/internal/models"
	"github.com/julianstephens/habitpact/internal/storage/sqlite"
)

// NewStore returns an initialized sqlite store in a temp directory. The
// store is closed when the test ends.
func NewStore(t testing.TB) *sqlite.Store {
	t.Helper()

	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("failed to init test store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Fixtures creates related rows with fresh ids
type Fixtures struct {
	t     testing.TB
	store interface {
		AddUser(ctx context.Context, user models.User) error
		AddHabit(ctx context.Context, habit models.Habit) error
		AddPlan(ctx context.Context, plan models.HabitPlan) error
	}
}

// NewFixtures returns a fixture builder over store
func NewFixtures(t testing.TB, store *sqlite.Store) *Fixtures {
	return &Fixtures{t: t, store: store}
}

// User inserts a user with the given name; username and email derive from it
func (f *Fixtures) User(name string) models.User {
	f.t.Helper()
	u := models.User{
		ID:        uuid.New().String(),
		Name:      name,
		Username:  name,
		Email:     name + "@example.com",
		CreatedAt: time.Now().UTC(),
	}
	if err := f.store.AddUser(context.Background(), u); err != nil {
		f.t.Fatalf("failed to add user: %v", err)
	}
	return u
}

// Habit inserts a habit owned by userID
func (f *Fixtures) Habit(userID, name string) models.Habit {
	f.t.Helper()
	h := models.Habit{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := f.store.AddHabit(context.Background(), h); err != nil {
		f.t.Fatalf("failed to add habit: %v", err)
	}
	return h
}

// Plan inserts a plan for userID over [start, end]
func (f *Fixtures) Plan(userID, habitID string, start, end time.Time) models.HabitPlan {
	f.t.Helper()
	p := models.HabitPlan{
		ID:        uuid.New().String(),
		UserID:    userID,
		HabitID:   habitID,
		StartDate: start,
		EndDate:   end,
		CreatedAt: time.Now().UTC(),
	}
	if err := f.store.AddPlan(context.Background(), p); err != nil {
		f.t.Fatalf("failed to add plan: %v", err)
	}
	return p
}

// UserPlan inserts a user, a habit and a plan in one call
func (f *Fixtures) UserPlan(name string, start, end time.Time) (models.User, models.Habit, models.HabitPlan) {
	f.t.Helper()
	u := f.User(name)
	h := f.Habit(u.ID, "Read")
	return u, h, f.Plan(u.ID, h.ID, start, end)
}
