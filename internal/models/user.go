package models

import "time"

// User is an account that owns habits and plans
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" validate:"required"`
	Username  string    `json:"username" validate:"required"`
	Email     string    `json:"email" validate:"required,email"`
	CreatedAt time.Time `json:"created_at"`
}
