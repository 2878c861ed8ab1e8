package rollover

import (
	"context"
	"time"

	"github.com/julianstephens/habitpact/internal/constants"
	apperrors "github.com/julianstephens/habitpact/internal/errors"
	"github.com/julianstephens/habitpact/internal/logger"
)

// Runner is the job infrastructure around Job: it retries the whole batch
// a bounded number of times, on transient storage failures only.
type Runner struct {
	Job         *Job
	MaxAttempts int
	Delay       time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// NewRunner wraps job with the default retry budget
func NewRunner(job *Job) *Runner {
	return &Runner{
		Job:         job,
		MaxAttempts: constants.RolloverMaxAttempts,
		Delay:       constants.RolloverRetryDelay,
		sleep:       sleepContext,
	}
}

// RunWithRetry runs the job until it succeeds, fails for a reason other
// than transient storage, or runs out of attempts. The last report is
// returned along with the number of attempts made. Passes resume after
// each plan's last generated day, so a retry never duplicates logs.
func (r *Runner) RunWithRetry(ctx context.Context, today time.Time) (Report, int, error) {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := r.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var (
		report Report
		err    error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		report, err = r.Job.Run(ctx, today)

		retry := false
		switch {
		case err != nil:
			retry = apperrors.IsTransient(err)
		case len(report.Failed) > 0:
			retry = report.Transient()
		default:
			return report, attempt, nil
		}

		if !retry || attempt == attempts {
			return report, attempt, err
		}
		logger.Warn("Retrying rollover after transient failure", "attempt", attempt,
			"max_attempts", attempts, "failed", report.FailedIDs(), "error", err)
		if serr := sleep(ctx, r.Delay); serr != nil {
			return report, attempt, serr
		}
	}
	return report, attempts, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
