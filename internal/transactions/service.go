// Package transactions implements C6: the deposit/withdrawal services that
// apply balance changes atomically, transition transaction status, and
// trigger webhook notification on terminal transitions. The overall
// check-idempotency / lock / mutate-under-tx / commit / notify shape is
// grounded on other_examples/secure-payment-gateway's
// internal/service/payment_service.go.
package transactions

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"paymentgw/internal/apperrors"
	"paymentgw/internal/domain"
	"paymentgw/internal/lock"
	"paymentgw/internal/money"
	"paymentgw/internal/store"
)

const accountLockTTL = 10 * time.Second

// WebhookNotifier is the narrow surface this package needs from C8: queue
// a delivery for a transaction that just reached a terminal status.
type WebhookNotifier interface {
	NotifyTerminal(ctx context.Context, transactionID string) error
}

type Service struct {
	pool         *pgxpool.Pool
	accounts     *store.AccountStore
	transactions *store.TransactionStore
	locks        *lock.Manager
	webhooks     WebhookNotifier
}

func NewService(pool *pgxpool.Pool, accounts *store.AccountStore, transactions *store.TransactionStore, locks *lock.Manager, webhooks WebhookNotifier) *Service {
	return &Service{pool: pool, accounts: accounts, transactions: transactions, locks: locks, webhooks: webhooks}
}

// CreatePendingDeposit inserts Transaction(PENDING, DEPOSIT). No balance
// change happens here; completion is driven entirely by the worker after
// the bank call succeeds.
func (s *Service) CreatePendingDeposit(ctx context.Context, accountID string, amount money.Cents, currency, idempotencyKey string) (*domain.Transaction, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.AccountNotFound()
		}
		return nil, apperrors.Internal(err)
	}

	t := &domain.Transaction{
		ID:             newID(),
		AccountID:      accountID,
		Kind:           domain.KindDeposit,
		Amount:         amount,
		Currency:       currency,
		Status:         domain.StatusPending,
		IdempotencyKey: idempotencyKey,
	}
	if err := s.transactions.Create(ctx, nil, t); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, apperrors.DuplicateRequest(0)
		}
		return nil, apperrors.Internal(err)
	}
	return t, nil
}

// CreatePendingWithdrawal opens a REPEATABLE READ transaction, locks the
// account row, and checks the balance before inserting the PENDING row.
// No debit happens at creation: the reservation is logical only, and the
// balance is checked again under lock at completion.
func (s *Service) CreatePendingWithdrawal(ctx context.Context, accountID string, amount money.Cents, currency, idempotencyKey string) (*domain.Transaction, error) {
	var t *domain.Transaction

	err := store.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		account, err := s.accounts.GetForUpdate(ctx, tx, accountID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperrors.AccountNotFound()
			}
			return apperrors.Internal(err)
		}
		if account.Balance < amount {
			return apperrors.InsufficientBalance()
		}

		t = &domain.Transaction{
			ID:             newID(),
			AccountID:      accountID,
			Kind:           domain.KindWithdrawal,
			Amount:         amount,
			Currency:       currency,
			Status:         domain.StatusPending,
			IdempotencyKey: idempotencyKey,
		}
		if err := s.transactions.Create(ctx, tx, t); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				return apperrors.DuplicateRequest(0)
			}
			return apperrors.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CompleteDeposit is called by the worker after the bank reports SUCCESS.
func (s *Service) CompleteDeposit(ctx context.Context, transactionID, accountID string, amount money.Cents, bankReference string, bankResponse []byte) error {
	l, err := s.locks.Acquire(ctx, lock.AccountResource(accountID), accountLockTTL)
	if err != nil {
		return apperrors.ConcurrentUpdate()
	}
	defer l.Release(ctx)

	mu := s.accounts.LocalMutex(accountID)
	mu.Lock()
	defer mu.Unlock()

	err = store.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := s.accounts.GetForUpdate(ctx, tx, accountID); err != nil {
			return err
		}
		if err := s.accounts.ApplyDelta(ctx, tx, accountID, amount); err != nil {
			return err
		}
		return s.transactions.MarkSuccess(ctx, tx, transactionID, bankReference, bankResponse)
	})
	if err != nil {
		return apperrors.Internal(err)
	}

	return s.notifyTerminal(ctx, transactionID)
}

// CompleteWithdrawal is called by the worker after the bank reports
// SUCCESS. It rechecks the balance under lock: a second concurrent
// withdrawal that already drained the account here is sent to
// PENDING_REVIEW rather than silently breaking the nonneg invariant.
func (s *Service) CompleteWithdrawal(ctx context.Context, transactionID, accountID string, amount money.Cents, bankReference string, bankResponse []byte) error {
	l, err := s.locks.Acquire(ctx, lock.AccountResource(accountID), accountLockTTL)
	if err != nil {
		return apperrors.ConcurrentUpdate()
	}
	defer l.Release(ctx)

	mu := s.accounts.LocalMutex(accountID)
	mu.Lock()
	defer mu.Unlock()

	needsReview := false
	err = store.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		account, err := s.accounts.GetForUpdate(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if account.Balance < amount {
			needsReview = true
			return nil
		}
		if err := s.accounts.ApplyDelta(ctx, tx, accountID, -amount); err != nil {
			return err
		}
		return s.transactions.MarkSuccess(ctx, tx, transactionID, bankReference, bankResponse)
	})
	if err != nil {
		return apperrors.Internal(err)
	}

	if needsReview {
		if err := s.transactions.MarkPendingReview(ctx, transactionID, "bank confirmed success but balance was insufficient at completion time"); err != nil {
			return apperrors.Internal(err)
		}
		return s.notifyTerminal(ctx, transactionID)
	}

	return s.notifyTerminal(ctx, transactionID)
}

// FailTransaction records a permanent bank failure. No balance change.
func (s *Service) FailTransaction(ctx context.Context, transactionID, errorCode, errorMessage string, bankResponse []byte) error {
	if err := s.transactions.MarkFailed(ctx, transactionID, errorCode, errorMessage, bankResponse); err != nil {
		return apperrors.Internal(err)
	}
	return s.notifyTerminal(ctx, transactionID)
}

// MarkPendingReview parks a transaction whose retries were exhausted with
// the bank's final outcome unknown.
func (s *Service) MarkPendingReview(ctx context.Context, transactionID, reason string) error {
	if err := s.transactions.MarkPendingReview(ctx, transactionID, reason); err != nil {
		return apperrors.Internal(err)
	}
	return s.notifyTerminal(ctx, transactionID)
}

func (s *Service) notifyTerminal(ctx context.Context, transactionID string) error {
	if s.webhooks == nil {
		return nil
	}
	return s.webhooks.NotifyTerminal(ctx, transactionID)
}

func (s *Service) MarkProcessing(ctx context.Context, transactionID string) error {
	return s.transactions.MarkProcessing(ctx, transactionID)
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	t, err := s.transactions.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.TransactionNotFound()
	}
	return t, err
}

func (s *Service) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	t, err := s.transactions.GetByIdempotencyKey(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.TransactionNotFound()
	}
	return t, err
}

func (s *Service) ListByAccount(ctx context.Context, accountID string, kind domain.TransactionKind, skip, limit int) ([]*domain.Transaction, error) {
	ts, err := s.transactions.ListByAccount(ctx, accountID, kind, skip, limit)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return ts, nil
}

func (s *Service) ListAllByAccount(ctx context.Context, accountID string, skip, limit int) ([]*domain.Transaction, error) {
	ts, err := s.transactions.ListAllByAccount(ctx, accountID, skip, limit)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return ts, nil
}
