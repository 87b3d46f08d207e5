package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"paymentgw/internal/domain"
	"paymentgw/internal/infrastructure/messaging/kafka"
	"paymentgw/internal/store"
)

// JobPublisher is the narrow surface this package needs to enqueue a
// delivery job; satisfied by *kafka.Producer.
type JobPublisher interface {
	PublishEvent(topic, key string, event interface{}) error
}

// DeliveryJob is the message body placed on the webhooks queue.
type DeliveryJob struct {
	DeliveryID string `json:"delivery_id"`
	Attempt    int    `json:"attempt"`
}

// Enqueuer implements transactions.WebhookNotifier: on a terminal
// transition it inserts a WebhookDelivery row (if the owning user has a
// webhook URL configured) and publishes a delivery job.
type Enqueuer struct {
	transactions *store.TransactionStore
	accounts     *store.AccountStore
	users        *store.UserStore
	deliveries   *store.WebhookStore
	producer     JobPublisher
	maxAttempts  int
}

func NewEnqueuer(transactions *store.TransactionStore, accounts *store.AccountStore, users *store.UserStore, deliveries *store.WebhookStore, producer JobPublisher, maxAttempts int) *Enqueuer {
	return &Enqueuer{
		transactions: transactions,
		accounts:     accounts,
		users:        users,
		deliveries:   deliveries,
		producer:     producer,
		maxAttempts:  maxAttempts,
	}
}

func (e *Enqueuer) NotifyTerminal(ctx context.Context, transactionID string) error {
	t, err := e.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("load transaction for webhook: %w", err)
	}

	account, err := e.accounts.GetByID(ctx, t.AccountID)
	if err != nil {
		return fmt.Errorf("load account for webhook: %w", err)
	}

	user, err := e.users.GetByID(ctx, account.UserID)
	if err != nil {
		return fmt.Errorf("load user for webhook: %w", err)
	}
	if user.WebhookURL == "" {
		return nil
	}

	payload, err := json.Marshal(buildPayload(t, account))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	delivery := &domain.WebhookDelivery{
		ID:            uuid.New().String(),
		TransactionID: t.ID,
		TargetURL:     user.WebhookURL,
		Payload:       payload,
		Status:        domain.WebhookPending,
		MaxAttempts:   e.maxAttempts,
	}
	if err := e.deliveries.Create(ctx, delivery); err != nil {
		return fmt.Errorf("persist webhook delivery: %w", err)
	}

	return e.publish(delivery.ID, 0)
}

func (e *Enqueuer) publish(deliveryID string, attempt int) error {
	if e.producer == nil {
		return errors.New("webhook: no job publisher configured")
	}
	return e.producer.PublishEvent(kafka.TopicWebhooks, deliveryID, DeliveryJob{DeliveryID: deliveryID, Attempt: attempt})
}

// Republish re-enqueues a delivery for another attempt, used by the
// delivery worker on a retryable failure.
func (e *Enqueuer) Republish(deliveryID string, attempt int) error {
	return e.publish(deliveryID, attempt)
}
