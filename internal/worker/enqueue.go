package worker

import (
	"paymentgw/internal/domain"
	"paymentgw/internal/infrastructure/messaging/kafka"
)

// JobPublisher is the narrow surface this package needs to enqueue a
// transaction job; satisfied by *kafka.Producer.
type JobPublisher interface {
	PublishEvent(topic, key string, event interface{}) error
}

// Enqueuer publishes the job that starts a pending transaction's
// processing. Called by the API layer right after a PENDING row commits.
type Enqueuer struct {
	producer JobPublisher
}

func NewEnqueuer(producer JobPublisher) *Enqueuer {
	return &Enqueuer{producer: producer}
}

func (e *Enqueuer) Enqueue(t *domain.Transaction, userID string) error {
	job := Job{
		TransactionID:  t.ID,
		AccountID:      t.AccountID,
		UserID:         userID,
		Kind:           string(t.Kind),
		AmountCents:    int64(t.Amount),
		IdempotencyKey: t.IdempotencyKey,
		Attempt:        0,
	}
	return e.producer.PublishEvent(kafka.TopicTransactions, t.ID, job)
}

func (e *Enqueuer) republish(job Job) error {
	return e.producer.PublishEvent(kafka.TopicTransactions, job.TransactionID, job)
}
