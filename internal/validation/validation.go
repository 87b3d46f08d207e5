package validation

import (
	"errors"
	"net/mail"
	"net/url"
	"strings"
)

const (
	MinPasswordLen = 8
	MaxPasswordLen = 72 // bcrypt's input limit
	MaxListLimit   = 100
)

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.New("email is not a valid address")
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLen {
		return errors.New("password must be at least 8 characters")
	}
	if len(password) > MaxPasswordLen {
		return errors.New("password cannot exceed 72 characters")
	}
	return nil
}

func ValidateWebhookURL(raw string) error {
	if raw == "" {
		return nil // optional field
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("webhook_url must be a valid http(s) URL")
	}
	return nil
}

// ClampLimit bounds a client-supplied list page size to [1, MaxListLimit].
func ClampLimit(limit int) int {
	if limit <= 0 {
		return MaxListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
