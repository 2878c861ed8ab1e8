package sqlstore

import (
	"context"

	"github.com/julianstephens/habitpact/internal/models"
)

func (s *Store) AddUser(ctx context.Context, user models.User) error {
	_, err := s.exec(ctx, `
		INSERT INTO users (id, name, username, email, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Username, user.Email, formatTimestamp(user.CreatedAt))
	return err
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	row := s.queryRow(ctx, `
		SELECT id, name, username, email, created_at
		FROM users WHERE id = ?`, id)
	u, err := s.scanUser(row)
	if err != nil {
		return models.User{}, s.notFound(err, "User", id)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.queryRow(ctx, `
		SELECT id, name, username, email, created_at
		FROM users WHERE email = ?`, email)
	u, err := s.scanUser(row)
	if err != nil {
		return models.User{}, s.notFound(err, "User", email)
	}
	return u, nil
}

func (s *Store) scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	var createdAt string
	if err := row.Scan(&u.ID, &u.Name, &u.Username, &u.Email, &createdAt); err != nil {
		return models.User{}, err
	}
	t, err := parseTimestamp("created_at", createdAt)
	if err != nil {
		return models.User{}, err
	}
	u.CreatedAt = t
	return u, nil
}

func (s *Store) AddHabit(ctx context.Context, habit models.Habit) error {
	_, err := s.exec(ctx, `
		INSERT INTO habits (id, user_id, name, description, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		habit.ID, habit.UserID, habit.Name, habit.Description, formatTimestamp(habit.CreatedAt))
	return err
}

func (s *Store) GetHabit(ctx context.Context, id string) (models.Habit, error) {
	row := s.queryRow(ctx, `
		SELECT id, user_id, name, description, created_at
		FROM habits WHERE id = ?`, id)

	var h models.Habit
	var createdAt string
	if err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.Description, &createdAt); err != nil {
		return models.Habit{}, s.notFound(err, "Habit", id)
	}
	t, err := parseTimestamp("created_at", createdAt)
	if err != nil {
		return models.Habit{}, err
	}
	h.CreatedAt = t
	return h, nil
}
