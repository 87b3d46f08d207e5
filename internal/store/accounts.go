package store

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"paymentgw/internal/domain"
	"paymentgw/internal/money"
)

type AccountStore struct {
	pool *pgxpool.Pool

	// In-process defense-in-depth alongside the DB row lock and the
	// cross-worker distributed lock: two goroutines in the same process
	// racing for the same account would otherwise both pass
	// SELECT ... FOR UPDATE sequentially with no coordination between
	// their higher-level read-modify-write steps.
	mu             sync.Mutex
	accountMutexes map[string]*sync.Mutex
}

func NewAccountStore(pool *pgxpool.Pool) *AccountStore {
	return &AccountStore{pool: pool, accountMutexes: make(map[string]*sync.Mutex)}
}

// LocalMutex returns the per-process mutex for accountID, creating it on
// first use.
func (s *AccountStore) LocalMutex(accountID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.accountMutexes[accountID]
	if !ok {
		m = &sync.Mutex{}
		s.accountMutexes[accountID] = m
	}
	return m
}

func (s *AccountStore) Create(ctx context.Context, a *domain.Account) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (id, user_id, balance_cents, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())`,
		a.ID, a.UserID, int64(a.Balance), a.Currency)
	return err
}

func (s *AccountStore) GetByUserID(ctx context.Context, userID string) (*domain.Account, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, balance_cents, currency, created_at, updated_at
		FROM accounts WHERE user_id = $1`, userID)
	return scanAccount(row)
}

func (s *AccountStore) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, balance_cents, currency, created_at, updated_at
		FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// GetForUpdate locks the account row within an already-open transaction.
// Callers are responsible for beginning/committing tx (see Tx below).
func (s *AccountStore) GetForUpdate(ctx context.Context, tx pgx.Tx, accountID string) (*domain.Account, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, user_id, balance_cents, currency, created_at, updated_at
		FROM accounts WHERE id = $1 FOR UPDATE`, accountID)
	return scanAccount(row)
}

// ApplyDelta adds delta (positive for deposit completion, negative for
// withdrawal completion) to the account's balance within tx. The
// balance_cents >= 0 check constraint is the final backstop if a caller's
// own pre-check is wrong.
func (s *AccountStore) ApplyDelta(ctx context.Context, tx pgx.Tx, accountID string, delta money.Cents) error {
	_, err := tx.Exec(ctx, `
		UPDATE accounts SET balance_cents = balance_cents + $1, updated_at = now()
		WHERE id = $2`, int64(delta), accountID)
	if err != nil && isCheckViolation(err) {
		return ErrInsufficientFunds
	}
	return err
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	var balance int64
	err := row.Scan(&a.ID, &a.UserID, &balance, &a.Currency, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Balance = money.Cents(balance)
	return &a, nil
}

func isCheckViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23514"
	}
	return false
}
