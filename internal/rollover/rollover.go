// Package rollover extends every active plan's logs into the coming week.
// Plans are processed independently; one failing plan never stops the rest.
package rollover

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/habitpact/internal/constants"
	apperrors "github.com/julianstephens/habitpact/internal/errors"
	"github.com/julianstephens/habitpact/internal/generator"
	"github.com/julianstephens/habitpact/internal/logger"
	"github.com/julianstephens/habitpact/internal/models"
	"github.com/julianstephens/habitpact/internal/scheduler"
	"github.com/julianstephens/habitpact/internal/utils"
)

// Store is the storage surface a rollover pass needs
type Store interface {
	generator.Store
	GetPlansOverlapping(ctx context.Context, from, to time.Time) ([]models.HabitPlan, error)
}

// Failure records a plan whose pass failed
type Failure struct {
	PlanID string
	Err    error
}

// Report summarizes one rollover pass. Both lists are sorted by plan id.
type Report struct {
	Window    scheduler.Window
	Succeeded []string
	Failed    []Failure
	// Created counts logs written by this pass
	Created int
}

// Transient reports whether the pass failed only on errors worth retrying
func (r Report) Transient() bool {
	if len(r.Failed) == 0 {
		return false
	}
	for _, f := range r.Failed {
		if !apperrors.IsTransient(f.Err) {
			return false
		}
	}
	return true
}

// FailedIDs returns the ids of the failed plans
func (r Report) FailedIDs() []string {
	ids := make([]string, len(r.Failed))
	for i, f := range r.Failed {
		ids[i] = f.PlanID
	}
	return ids
}

type Job struct {
	store   Store
	workers int
}

// New creates a Job running at most workers plans at once. A value below
// one uses constants.DefaultRolloverWorkers.
func New(store Store, workers int) *Job {
	if workers < 1 {
		workers = constants.DefaultRolloverWorkers
	}
	return &Job{store: store, workers: workers}
}

// Run generates next week's logs for every plan active in next week. An
// error is returned only when the plans could not be listed.
func (j *Job) Run(ctx context.Context, today time.Time) (Report, error) {
	today = utils.DateOf(today)
	week := scheduler.Week(scheduler.NextWeek, today)
	report := Report{Window: week}

	plans, err := j.store.GetPlansOverlapping(ctx, week.Start, week.End)
	if err != nil {
		return report, fmt.Errorf("failed to list plans for %s: %w", week, err)
	}
	logger.Info("Starting rollover", "today", utils.FormatDate(today), "window", week, "plans", len(plans))

	gen := generator.New(j.store)
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(j.workers)

	for _, plan := range plans {
		g.Go(func() error {
			res, err := gen.GenerateMode(ctx, plan, today, generator.ModeNextWeek)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn("Rollover failed for plan", "plan", plan.ID, "error", err)
				report.Failed = append(report.Failed, Failure{PlanID: plan.ID, Err: err})
				return nil
			}
			report.Succeeded = append(report.Succeeded, plan.ID)
			report.Created += res.Created
			return nil
		})
	}
	// Workers never return errors; failures live in the report
	_ = g.Wait()

	sort.Strings(report.Succeeded)
	sort.Slice(report.Failed, func(a, b int) bool {
		return report.Failed[a].PlanID < report.Failed[b].PlanID
	})

	logger.Info("Rollover finished", "window", week, "succeeded", len(report.Succeeded),
		"failed", len(report.Failed), "created", report.Created)
	return report, nil
}
