package rollover

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"
	"time"

	apperrors "github.com/julianstephens/habitpact/internal/errors"
	"github.com/julianstephens/habitpact/internal/models"
	"github.com/julianstephens/habitpact/internal/storage/sqlite"
	"github.com/julianstephens/habitpact/internal/storage/storagetest"
	"github.com/julianstephens/habitpact/internal/utils"
)

type plans struct {
	store    *sqlite.Store
	full     models.HabitPlan // Feb 2 - Feb 20
	partial  models.HabitPlan // Feb 10 - Feb 11
	later    models.HabitPlan // Mar 1 - Mar 7
	finished models.HabitPlan // Jan 1 - Feb 5
}

func seed(t *testing.T) plans {
	t.Helper()
	store := storagetest.NewStore(t)
	fx := storagetest.NewFixtures(t, store)
	_, _, full := fx.UserPlan("ada", utils.Date(2022, 2, 2), utils.Date(2022, 2, 20))
	_, _, partial := fx.UserPlan("grace", utils.Date(2022, 2, 10), utils.Date(2022, 2, 11))
	_, _, later := fx.UserPlan("linus", utils.Date(2022, 3, 1), utils.Date(2022, 3, 7))
	_, _, finished := fx.UserPlan("ken", utils.Date(2022, 1, 1), utils.Date(2022, 2, 5))
	return plans{store: store, full: full, partial: partial, later: later, finished: finished}
}

func sortedIDs(ids ...string) []string {
	sort.Strings(ids)
	return ids
}

func countLogs(t *testing.T, store *sqlite.Store, plan models.HabitPlan) int {
	t.Helper()
	logs, err := store.GetLogsForPlan(context.Background(), plan.ID, plan.StartDate, plan.EndDate)
	if err != nil {
		t.Fatalf("GetLogsForPlan() failed: %v", err)
	}
	return len(logs)
}

var wednesday = utils.Date(2022, 2, 2)

func TestRunGeneratesNextWeek(t *testing.T) {
	p := seed(t)
	job := New(p.store, 2)

	report, err := job.Run(context.Background(), wednesday)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if got := report.Window.String(); got != "2022-02-06..2022-02-12" {
		t.Errorf("Window = %s, want 2022-02-06..2022-02-12", got)
	}
	if want := sortedIDs(p.full.ID, p.partial.ID); !reflect.DeepEqual(report.Succeeded, want) {
		t.Errorf("Succeeded = %v, want %v", report.Succeeded, want)
	}
	if len(report.Failed) != 0 {
		t.Errorf("Failed = %v, want none", report.Failed)
	}
	if report.Created != 9 {
		t.Errorf("Created = %d, want 9", report.Created)
	}

	tests := []struct {
		name string
		plan models.HabitPlan
		want int
	}{
		{"full week", p.full, 7},
		{"truncated by plan range", p.partial, 2},
		{"starts after next week", p.later, 0},
		{"ends before next week", p.finished, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countLogs(t, p.store, tt.plan); got != tt.want {
				t.Errorf("logs = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRunIsIdempotent(t *testing.T) {
	p := seed(t)
	job := New(p.store, 0)
	ctx := context.Background()

	first, err := job.Run(ctx, wednesday)
	if err != nil {
		t.Fatalf("first Run() failed: %v", err)
	}
	second, err := job.Run(ctx, wednesday)
	if err != nil {
		t.Fatalf("second Run() failed: %v", err)
	}

	if second.Created != 0 {
		t.Errorf("second Run() created %d logs, want 0", second.Created)
	}
	if !reflect.DeepEqual(first.Succeeded, second.Succeeded) {
		t.Errorf("second Run() succeeded = %v, want %v", second.Succeeded, first.Succeeded)
	}
	if got := countLogs(t, p.store, p.full); got != 7 {
		t.Errorf("logs after two runs = %d, want 7", got)
	}
}

// faultyStore fails log writes for one plan and can fail plan listing
type faultyStore struct {
	Store
	badPlan  string
	writeErr error
	listErrs []error
}

func (f *faultyStore) AddLogs(ctx context.Context, logs []models.Log) (int, error) {
	if len(logs) > 0 && logs[0].PlanID == f.badPlan {
		return 0, f.writeErr
	}
	return f.Store.AddLogs(ctx, logs)
}

func (f *faultyStore) GetPlansOverlapping(ctx context.Context, from, to time.Time) ([]models.HabitPlan, error) {
	if len(f.listErrs) > 0 {
		err := f.listErrs[0]
		f.listErrs = f.listErrs[1:]
		return nil, err
	}
	return f.Store.GetPlansOverlapping(ctx, from, to)
}

func TestRunIsolatesFailures(t *testing.T) {
	p := seed(t)
	errDisk := errors.New("disk full")
	store := &faultyStore{Store: p.store, badPlan: p.full.ID, writeErr: errDisk}

	report, err := New(store, 4).Run(context.Background(), wednesday)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if !reflect.DeepEqual(report.Succeeded, []string{p.partial.ID}) {
		t.Errorf("Succeeded = %v, want only the healthy plan", report.Succeeded)
	}
	if len(report.Failed) != 1 || report.Failed[0].PlanID != p.full.ID || !errors.Is(report.Failed[0].Err, errDisk) {
		t.Errorf("Failed = %v, want the full plan with disk full", report.Failed)
	}
	if report.Transient() {
		t.Error("Transient() = true for a permanent failure")
	}
	if got := countLogs(t, p.store, p.partial); got != 2 {
		t.Errorf("healthy plan logs = %d, want 2", got)
	}
}

func TestRunListFailure(t *testing.T) {
	p := seed(t)
	store := &faultyStore{Store: p.store, listErrs: []error{errors.New("connection reset")}}

	if _, err := New(store, 1).Run(context.Background(), wednesday); err == nil {
		t.Fatal("Run() error = nil, want list failure")
	}
}

func TestReportTransient(t *testing.T) {
	transient := apperrors.Transient(errors.New("database is locked"))
	tests := []struct {
		name   string
		failed []Failure
		want   bool
	}{
		{"no failures", nil, false},
		{"all transient", []Failure{{"a", transient}, {"b", transient}}, true},
		{"mixed", []Failure{{"a", transient}, {"b", errors.New("boom")}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Report{Failed: tt.failed}).Transient(); got != tt.want {
				t.Errorf("Transient() = %v, want %v", got, tt.want)
			}
		})
	}
}
