package domain

import "time"

// User is an authenticated principal. Password is never carried on the
// struct past the auth boundary, only its bcrypt hash.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	IsActive     bool
	WebhookURL   string
	CreatedAt    time.Time
}
