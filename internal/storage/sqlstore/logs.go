package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	apperrors "github.com/julianstephens/habitpact/internal/errors"
	"github.com/julianstephens/habitpact/internal/models"
	"github.com/julianstephens/habitpact/internal/storage"
	"github.com/julianstephens/habitpact/internal/utils"
)

// AddLogs writes logs in batches inside one transaction. A (plan, day)
// pair that already exists is skipped by the unique index.
func (s *Store) AddLogs(ctx context.Context, logs []models.Log) (int, error) {
	if len(logs) == 0 {
		return 0, nil
	}

	inserted := 0
	err := s.WithTx(ctx, func(st storage.Store) error {
		tx := st.(*Store)
		for i := 0; i < len(logs); i += maxBatchRows {
			end := min(i+maxBatchRows, len(logs))
			n, err := tx.insertLogBatch(ctx, logs[i:end])
			if err != nil {
				return err
			}
			inserted += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (s *Store) insertLogBatch(ctx context.Context, logs []models.Log) (int, error) {
	var b strings.Builder
	b.WriteString(`INSERT INTO habit_logs (id, plan_id, scheduled_at, completed_at) VALUES `)
	args := make([]any, 0, len(logs)*4)
	for i, l := range logs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?, ?)")
		args = append(args, l.ID, l.PlanID, utils.FormatDate(l.ScheduledAt), nullableDate(l.CompletedAt))
	}
	b.WriteString(` ON CONFLICT (plan_id, scheduled_at) DO NOTHING`)

	res, err := s.exec(ctx, b.String(), args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, s.wrap(err)
	}
	return int(n), nil
}

func (s *Store) GetLog(ctx context.Context, id string) (models.Log, error) {
	row := s.queryRow(ctx, `
		SELECT id, plan_id, scheduled_at, completed_at
		FROM habit_logs WHERE id = ?`, id)
	l, err := scanLog(row)
	if err != nil {
		return models.Log{}, s.notFound(err, "Log", id)
	}
	return l, nil
}

// UpdateLog persists the log's completion state
func (s *Store) UpdateLog(ctx context.Context, log models.Log) error {
	res, err := s.exec(ctx, `UPDATE habit_logs SET completed_at = ? WHERE id = ?`,
		nullableDate(log.CompletedAt), log.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.wrap(err)
	}
	if n == 0 {
		return apperrors.NotFound("Log", log.ID)
	}
	return nil
}

func (s *Store) GetLogsForPlan(ctx context.Context, planID string, from, to time.Time) ([]models.Log, error) {
	rows, err := s.query(ctx, `
		SELECT id, plan_id, scheduled_at, completed_at
		FROM habit_logs
		WHERE plan_id = ? AND scheduled_at >= ? AND scheduled_at <= ?
		ORDER BY scheduled_at`,
		planID, utils.FormatDate(from), utils.FormatDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.Log
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, s.wrap(rows.Err())
}

func (s *Store) LastLogDate(ctx context.Context, planID string) (*time.Time, error) {
	var last sql.NullString
	err := s.queryRow(ctx, `SELECT MAX(scheduled_at) FROM habit_logs WHERE plan_id = ?`, planID).Scan(&last)
	if err != nil {
		return nil, s.wrap(err)
	}
	if !last.Valid {
		return nil, nil
	}
	t, err := parseDate("scheduled_at", last.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanLog(row interface{ Scan(...any) error }) (models.Log, error) {
	var l models.Log
	var scheduledAt string
	var completedAt sql.NullString
	if err := row.Scan(&l.ID, &l.PlanID, &scheduledAt, &completedAt); err != nil {
		return models.Log{}, err
	}

	var err error
	if l.ScheduledAt, err = parseDate("scheduled_at", scheduledAt); err != nil {
		return models.Log{}, err
	}
	if completedAt.Valid {
		t, err := parseDate("completed_at", completedAt.String)
		if err != nil {
			return models.Log{}, err
		}
		l.CompletedAt = &t
	}
	return l, nil
}
