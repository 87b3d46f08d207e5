package domain

import (
	"time"

	"paymentgw/internal/money"
)

// Account holds a single user's balance, kept as money.Cents (int64) so
// it never touches floating point.
type Account struct {
	ID        string
	UserID    string
	Balance   money.Cents
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
