package dlq

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"paymentgw/internal/infrastructure/messaging/kafka"
	"paymentgw/internal/store"
)

const (
	JobNameTransaction = "transaction_processing"
	JobNameWebhook     = "webhook_delivery"
)

var ErrAlreadyReplayed = errors.New("dlq: task already replayed")

// JobPublisher is the narrow publish surface Replayer needs.
type JobPublisher interface {
	PublishEvent(topic, key string, event interface{}) error
}

type Replayer struct {
	tasks    *store.FailedTaskStore
	producer JobPublisher
}

func NewReplayer(tasks *store.FailedTaskStore, producer JobPublisher) *Replayer {
	return &Replayer{tasks: tasks, producer: producer}
}

// Replay deserializes the parked job and re-enqueues it under its original
// job name onto the main (non-DLQ) queue, under a freshly minted job id.
// replayed_at is only set by MarkReplayed's conditional UPDATE, so two
// concurrent replay calls for the same task can never both succeed.
func (r *Replayer) Replay(ctx context.Context, taskID string) error {
	task, err := r.tasks.GetByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("load failed task: %w", err)
	}
	if task.AlreadyReplayed() {
		return ErrAlreadyReplayed
	}

	topic, err := mainTopicFor(task.JobName)
	if err != nil {
		ok, markErr := r.tasks.MarkReplayed(ctx, taskID, "SKIPPED", err.Error())
		if markErr != nil {
			return markErr
		}
		if !ok {
			return ErrAlreadyReplayed
		}
		return err
	}

	newJobID := uuid.New().String()
	if pubErr := r.producer.PublishEvent(topic, newJobID, rawPayload(task.Payload)); pubErr != nil {
		ok, markErr := r.tasks.MarkReplayed(ctx, taskID, "FAILED", pubErr.Error())
		if markErr != nil {
			return markErr
		}
		if !ok {
			return ErrAlreadyReplayed
		}
		return fmt.Errorf("republish job: %w", pubErr)
	}

	note := fmt.Sprintf("requeued as job %s", newJobID)
	ok, err := r.tasks.MarkReplayed(ctx, taskID, "QUEUED", note)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyReplayed
	}
	return nil
}

func mainTopicFor(jobName string) (string, error) {
	switch jobName {
	case JobNameTransaction:
		return kafka.TopicTransactions, nil
	case JobNameWebhook:
		return kafka.TopicWebhooks, nil
	default:
		return "", fmt.Errorf("unknown job name %q", jobName)
	}
}

// rawPayload lets us republish the exact original bytes without forcing a
// type-specific re-marshal: sarama's JSON encoder step (ByteEncoder upstream
// in Producer.PublishEvent) expects a value it can json.Marshal, and
// marshaling a json.RawMessage re-emits the original bytes unchanged.
type rawPayload []byte

func (r rawPayload) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}
