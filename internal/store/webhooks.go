package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"paymentgw/internal/domain"
)

type WebhookStore struct {
	pool *pgxpool.Pool
}

func NewWebhookStore(pool *pgxpool.Pool) *WebhookStore {
	return &WebhookStore{pool: pool}
}

func (s *WebhookStore) Create(ctx context.Context, d *domain.WebhookDelivery) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO webhook_deliveries
			(id, transaction_id, target_url, payload, status, attempt_count, max_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, now(), now())`,
		d.ID, d.TransactionID, d.TargetURL, d.Payload, string(d.Status), d.MaxAttempts)
	return err
}

func (s *WebhookStore) GetByID(ctx context.Context, id string) (*domain.WebhookDelivery, error) {
	row := s.pool.QueryRow(ctx, selectWebhookSQL+` WHERE id = $1`, id)
	return scanWebhook(row)
}

func (s *WebhookStore) IncrementAttempt(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE webhook_deliveries SET attempt_count = attempt_count + 1, status = $1, updated_at = now()
		WHERE id = $2`, string(domain.WebhookSending), id)
	return err
}

func (s *WebhookStore) RecordAttemptResult(ctx context.Context, id string, status domain.WebhookStatus, httpStatus int, responseBody, errMessage string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE webhook_deliveries
		SET status = $1, last_http_status = $2, response_body = $3, error_message = $4, updated_at = now()
		WHERE id = $5`,
		string(status), httpStatus, truncate(responseBody, 1000), errMessage, id)
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

const selectWebhookSQL = `
	SELECT id, transaction_id, target_url, payload, status, attempt_count, max_attempts,
	       COALESCE(last_http_status, 0), COALESCE(response_body, ''), COALESCE(error_message, ''),
	       created_at, updated_at
	FROM webhook_deliveries`

func scanWebhook(row pgx.Row) (*domain.WebhookDelivery, error) {
	var w domain.WebhookDelivery
	var status string
	err := row.Scan(&w.ID, &w.TransactionID, &w.TargetURL, &w.Payload, &status,
		&w.AttemptCount, &w.MaxAttempts, &w.LastHTTPStatus, &w.ResponseBody, &w.ErrorMessage,
		&w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	w.Status = domain.WebhookStatus(status)
	return &w, nil
}
