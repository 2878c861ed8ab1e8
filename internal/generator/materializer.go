package generator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/habitpact/internal/models"
	"github.com/julianstephens/habitpact/internal/utils"
)

// LogWriter persists batches of logs
type LogWriter interface {
	// AddLogs returns how many of the logs were actually written
	AddLogs(ctx context.Context, logs []models.Log) (int, error)
}

// CreateLogs builds count incomplete logs for planID dated start,
// start+1, ..., start+count-1 and writes them in one batch. It does not
// look for existing logs; callers pass disjoint ranges and the store's
// unique (plan, day) index rejects any overlap.
func CreateLogs(ctx context.Context, w LogWriter, count int, start time.Time, planID string) (int, error) {
	if count <= 0 {
		return 0, nil
	}

	logs := make([]models.Log, count)
	for i := range logs {
		logs[i] = models.Log{
			ID:          uuid.New().String(),
			PlanID:      planID,
			ScheduledAt: utils.AddDays(start, i),
		}
	}
	return w.AddLogs(ctx, logs)
}
