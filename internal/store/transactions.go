package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"paymentgw/internal/domain"
	"paymentgw/internal/money"
)

type TransactionStore struct {
	pool *pgxpool.Pool
}

func NewTransactionStore(pool *pgxpool.Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Create inserts a PENDING transaction. When t.IdempotencyKey is already
// present on another row, the unique partial index surfaces ErrDuplicateKey.
func (s *TransactionStore) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	runner := queryRunner(tx, s.pool)
	_, err := runner.Exec(ctx, `
		INSERT INTO transactions
			(id, account_id, kind, amount_cents, currency, status, idempotency_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), now(), now())`,
		t.ID, t.AccountID, string(t.Kind), int64(t.Amount), t.Currency, string(t.Status), t.IdempotencyKey)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (s *TransactionStore) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row := s.pool.QueryRow(ctx, selectTransactionSQL+` WHERE id = $1`, id)
	return scanTransaction(row)
}

func (s *TransactionStore) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	row := s.pool.QueryRow(ctx, selectTransactionSQL+` WHERE idempotency_key = $1`, key)
	return scanTransaction(row)
}

func (s *TransactionStore) ListByAccount(ctx context.Context, accountID string, kind domain.TransactionKind, skip, limit int) ([]*domain.Transaction, error) {
	rows, err := s.pool.Query(ctx, selectTransactionSQL+`
		WHERE account_id = $1 AND kind = $2
		ORDER BY created_at DESC
		OFFSET $3 LIMIT $4`, accountID, string(kind), skip, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListAllByAccount lists both deposits and withdrawals for an account,
// used by the combined /users/me/transactions endpoint.
func (s *TransactionStore) ListAllByAccount(ctx context.Context, accountID string, skip, limit int) ([]*domain.Transaction, error) {
	rows, err := s.pool.Query(ctx, selectTransactionSQL+`
		WHERE account_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3`, accountID, skip, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// MarkProcessing transitions PENDING -> PROCESSING. Idempotent: a
// transaction already PROCESSING is left untouched so a re-delivered job
// re-entering this step never errors.
func (s *TransactionStore) MarkProcessing(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE transactions SET status = $1, updated_at = now()
		WHERE id = $2 AND status IN ($1, $3)`,
		string(domain.StatusProcessing), id, string(domain.StatusPending))
	return err
}

// MarkSuccess records the terminal SUCCESS transition alongside the bank
// reference/response, inside the same tx as the balance mutation.
func (s *TransactionStore) MarkSuccess(ctx context.Context, tx pgx.Tx, id, bankReference string, bankResponse []byte) error {
	_, err := tx.Exec(ctx, `
		UPDATE transactions
		SET status = $1, bank_reference = $2, bank_response = $3, updated_at = now()
		WHERE id = $4`,
		string(domain.StatusSuccess), bankReference, bankResponse, id)
	return err
}

func (s *TransactionStore) MarkFailed(ctx context.Context, id, errorCode, errorMessage string, bankResponse []byte) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE transactions
		SET status = $1, error_code = $2, error_message = $3, bank_response = $4, updated_at = now()
		WHERE id = $5`,
		string(domain.StatusFailed), errorCode, errorMessage, bankResponse, id)
	return err
}

func (s *TransactionStore) MarkPendingReview(ctx context.Context, id, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE transactions
		SET status = $1, error_message = $2, updated_at = now()
		WHERE id = $3`,
		string(domain.StatusPendingReview), reason, id)
	return err
}

func (s *TransactionStore) SetJobID(ctx context.Context, id, jobID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE transactions SET job_id = $1, updated_at = now() WHERE id = $2`, jobID, id)
	return err
}

const selectTransactionSQL = `
	SELECT id, account_id, kind, amount_cents, currency, status,
	       COALESCE(bank_reference, ''), bank_response,
	       COALESCE(error_code, ''), COALESCE(error_message, ''),
	       COALESCE(idempotency_key, ''), COALESCE(job_id, ''),
	       created_at, updated_at
	FROM transactions`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	var amount int64
	var kind, status string
	err := row.Scan(&t.ID, &t.AccountID, &kind, &amount, &t.Currency, &status,
		&t.BankReference, &t.BankResponse, &t.ErrorCode, &t.ErrorMessage,
		&t.IdempotencyKey, &t.JobID, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Amount = money.Cents(amount)
	t.Kind = domain.TransactionKind(kind)
	t.Status = domain.TransactionStatus(status)
	return &t, nil
}

// queryRunner lets callers pass either an open tx or fall back to the pool
// directly, so Create can be used both inside and outside an explicit
// transaction.
type sqlRunner interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgx.CommandTag, error)
}

func queryRunner(tx pgx.Tx, pool *pgxpool.Pool) sqlRunner {
	if tx != nil {
		return tx
	}
	return pool
}
