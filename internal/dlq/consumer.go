package dlq

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"paymentgw/internal/domain"
	"paymentgw/internal/infrastructure/messaging/kafka"
	"paymentgw/internal/pkg/logging"
	"paymentgw/internal/store"
)

// Consumer listens to both DLQ topics and persists each job into
// FailedTask, keyed on the original job id so duplicate deliveries of the
// same dead-lettered job are silently ignored (store.FailedTaskStore.Create
// uses ON CONFLICT DO NOTHING on job_id). It is a sarama consumer-group
// handler with manual offset commit.
type Consumer struct {
	consumerGroup sarama.ConsumerGroup
	tasks         *store.FailedTaskStore

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewConsumer(cfg *kafka.Config, groupID string, tasks *store.FailedTaskStore) (*Consumer, error) {
	saramaConfig, err := cfg.ToSaramaConfig()
	if err != nil {
		return nil, err
	}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = false

	group, err := sarama.NewConsumerGroup(cfg.Brokers, groupID, saramaConfig)
	if err != nil {
		return nil, err
	}
	return &Consumer{consumerGroup: group, tasks: tasks}, nil
}

func (c *Consumer) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	topics := []string{kafka.TopicTransactionsDLQ, kafka.TopicWebhooksDLQ}
	handler := &dlqHandler{consumer: c}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			if err := c.consumerGroup.Consume(ctx, topics, handler); err != nil {
				if ctx.Err() != nil {
					return
				}
				logging.Error("dlq consumer group session ended", err, nil)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
}

func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	return c.consumerGroup.Close()
}

type dlqHandler struct {
	consumer *Consumer
}

func (h *dlqHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *dlqHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *dlqHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var msg Message
		if err := json.Unmarshal(message.Value, &msg); err != nil {
			logging.Error("dlq message unmarshal failed", err, nil)
			session.MarkMessage(message, "")
			session.Commit()
			continue
		}

		task := &domain.FailedTask{
			ID:               uuid.New().String(),
			JobID:            msg.JobID,
			JobName:          msg.JobName,
			Payload:          msg.Payload,
			ExceptionClass:   msg.ExceptionClass,
			ExceptionMessage: msg.ExceptionMessage,
			Traceback:        msg.Traceback,
			RetryCount:       msg.RetryCount,
		}
		if err := h.consumer.tasks.Create(session.Context(), task); err != nil {
			logging.Error("failed to persist dead-lettered job", err, map[string]interface{}{"job_id": msg.JobID})
			return err // at-least-once: ends the session uncommitted, so the group resumes from the last commit and redelivers
		}

		session.MarkMessage(message, "")
		session.Commit()
	}
	return nil
}
