package store

import "errors"

var (
	ErrNotFound          = errors.New("store: not found")
	ErrDuplicateKey      = errors.New("store: unique constraint violated")
	ErrInsufficientFunds = errors.New("store: insufficient funds")
)
