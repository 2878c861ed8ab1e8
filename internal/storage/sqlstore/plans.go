package sqlstore

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/julianstephens/habitpact/internal/errors"
	"github.com/julianstephens/habitpact/internal/models"
	"github.com/julianstephens/habitpact/internal/utils"
)

const planColumns = `id, user_id, habit_id, start_date, end_date, created_at`

func (s *Store) AddPlan(ctx context.Context, plan models.HabitPlan) error {
	_, err := s.exec(ctx, `
		INSERT INTO habit_plans (id, user_id, habit_id, start_date, end_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		plan.ID, plan.UserID, plan.HabitID,
		utils.FormatDate(plan.StartDate), utils.FormatDate(plan.EndDate),
		formatTimestamp(plan.CreatedAt))
	return err
}

func (s *Store) GetPlan(ctx context.Context, id string) (models.HabitPlan, error) {
	row := s.queryRow(ctx, `SELECT `+planColumns+` FROM habit_plans WHERE id = ?`, id)
	p, err := scanPlan(row)
	if err != nil {
		return models.HabitPlan{}, s.notFound(err, "HabitPlan", id)
	}
	return p, nil
}

// DeletePlan removes the plan; its logs and invitations cascade
func (s *Store) DeletePlan(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM habit_plans WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.wrap(err)
	}
	if n == 0 {
		return apperrors.NotFound("HabitPlan", id)
	}
	return nil
}

func (s *Store) GetPlansForUser(ctx context.Context, userID string) ([]models.HabitPlan, error) {
	return s.queryPlans(ctx, `
		SELECT `+planColumns+` FROM habit_plans
		WHERE user_id = ? ORDER BY start_date, id`, userID)
}

func (s *Store) GetPlansForHabit(ctx context.Context, habitID string) ([]models.HabitPlan, error) {
	return s.queryPlans(ctx, `
		SELECT `+planColumns+` FROM habit_plans
		WHERE habit_id = ? ORDER BY start_date, id`, habitID)
}

func (s *Store) GetPlansOverlapping(ctx context.Context, from, to time.Time) ([]models.HabitPlan, error) {
	return s.queryPlans(ctx, `
		SELECT `+planColumns+` FROM habit_plans
		WHERE start_date <= ? AND end_date >= ? ORDER BY id`,
		utils.FormatDate(to), utils.FormatDate(from))
}

func (s *Store) queryPlans(ctx context.Context, query string, args ...any) ([]models.HabitPlan, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []models.HabitPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, s.wrap(rows.Err())
}

func scanPlan(row interface{ Scan(...any) error }) (models.HabitPlan, error) {
	var p models.HabitPlan
	var start, end, createdAt string
	if err := row.Scan(&p.ID, &p.UserID, &p.HabitID, &start, &end, &createdAt); err != nil {
		return models.HabitPlan{}, err
	}

	var err error
	if p.StartDate, err = parseDate("start_date", start); err != nil {
		return models.HabitPlan{}, err
	}
	if p.EndDate, err = parseDate("end_date", end); err != nil {
		return models.HabitPlan{}, err
	}
	if p.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return models.HabitPlan{}, fmt.Errorf("plan %s: %w", p.ID, err)
	}
	return p, nil
}
