package engine_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/julianstephens/habitpact/internal/engine"
	"github.com/julianstephens/habitpact/internal/models"
	"github.com/julianstephens/habitpact/internal/utils"
)

// partnered creates ada's plan on Feb 2-10, a second plan of hers that
// starts next week, and a partner who accepted an invitation to the first.
// Everything is generated on Feb 2.
func partnered(t *testing.T) (*engine.Engine, models.User, models.User) {
	t.Helper()
	e, _ := setupEngine(t)
	ctx := context.Background()
	today := utils.Date(2022, 2, 2)

	ada, h := mustUserHabit(t, e, "ada")
	plan, _, err := e.CreatePlan(ctx, ada.ID, h.ID, utils.Date(2022, 2, 2), utils.Date(2022, 2, 10), today)
	if err != nil {
		t.Fatalf("CreatePlan() failed: %v", err)
	}
	// A plan that only has logs next week
	if _, _, err := e.CreatePlan(ctx, ada.ID, h.ID, utils.Date(2022, 2, 6), utils.Date(2022, 2, 12), today); err != nil {
		t.Fatalf("CreatePlan() failed: %v", err)
	}
	if _, err := e.RunWeeklyRollover(ctx, today); err != nil {
		t.Fatalf("RunWeeklyRollover() failed: %v", err)
	}

	partner, err := e.CreateUser(ctx, "Grace", "grace", "grace@example.com")
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	inv, err := e.CreateInvitation(ctx, ada.ID, plan.ID, "Grace", partner.Email)
	if err != nil {
		t.Fatalf("CreateInvitation() failed: %v", err)
	}
	if _, err := e.AcceptInvitation(ctx, inv.ID, partner.ID, today); err != nil {
		t.Fatalf("AcceptInvitation() failed: %v", err)
	}
	return e, ada, partner
}

func TestWeekPlans(t *testing.T) {
	e, ada, partner := partnered(t)

	plans, err := e.WeekPlans(context.Background(), ada.ID, utils.Date(2022, 2, 1))
	if err != nil {
		t.Fatalf("WeekPlans() failed: %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("WeekPlans() returned %d plans, want 2", len(plans))
	}

	want := []string{"2022-02-02", "2022-02-03", "2022-02-04", "2022-02-05"}
	for i, u := range []models.User{ada, partner} {
		if plans[i].User.ID != u.ID {
			t.Errorf("plans[%d].User = %s, want %s", i, plans[i].User.Username, u.Username)
		}
		if plans[i].Habit.Name != "Running" {
			t.Errorf("plans[%d].Habit = %q, want Running", i, plans[i].Habit.Name)
		}
		if got := logDates(plans[i].Logs); !reflect.DeepEqual(got, want) {
			t.Errorf("plans[%d] log dates = %v, want %v", i, got, want)
		}
	}

	// The partner sees the same pairing from their side
	theirs, err := e.WeekPlans(context.Background(), partner.ID, utils.Date(2022, 2, 1))
	if err != nil {
		t.Fatalf("WeekPlans() failed: %v", err)
	}
	if len(theirs) != 2 || theirs[0].User.ID != partner.ID {
		t.Errorf("partner WeekPlans() = %d plans, first owned by %v", len(theirs), theirs)
	}
}

func TestWeekPlansEmpty(t *testing.T) {
	e, ada, _ := partnered(t)

	plans, err := e.WeekPlans(context.Background(), ada.ID, utils.Date(2022, 2, 20))
	if err != nil {
		t.Fatalf("WeekPlans() failed: %v", err)
	}
	if len(plans) != 0 {
		t.Errorf("WeekPlans() returned %d plans, want 0", len(plans))
	}
}

func TestTodayPlans(t *testing.T) {
	e, ada, partner := partnered(t)
	ctx := context.Background()

	plans, err := e.TodayPlans(ctx, ada.ID, utils.Date(2022, 2, 2))
	if err != nil {
		t.Fatalf("TodayPlans() failed: %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("TodayPlans() returned %d plans, want 2", len(plans))
	}
	if plans[1].User.ID != partner.ID {
		t.Errorf("plans[1].User = %s, want partner", plans[1].User.Username)
	}
	for i, p := range plans {
		if len(p.Logs) != 1 || utils.FormatDate(p.Logs[0].ScheduledAt) != "2022-02-02" {
			t.Errorf("plans[%d] logs = %v, want only 2022-02-02", i, logDates(p.Logs))
		}
	}

	plans, err = e.TodayPlans(ctx, ada.ID, utils.Date(2022, 1, 30))
	if err != nil {
		t.Fatalf("TodayPlans() failed: %v", err)
	}
	if len(plans) != 0 {
		t.Errorf("TodayPlans() before any logs returned %d plans, want 0", len(plans))
	}
}
