package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"paymentgw/internal/dlq"
	"paymentgw/internal/domain"
	"paymentgw/internal/infrastructure/messaging/kafka"
	"paymentgw/internal/pkg/logging"
	"paymentgw/internal/retry"
	"paymentgw/internal/store"
)

const (
	deliveryTimeout = 30 * time.Second
	backoffBase     = time.Second
	backoffCap      = 600 * time.Second
)

// DeliveryWorker consumes delivery jobs from the webhooks queue and POSTs
// the notification, retrying transient failures with backoff and
// dead-lettering after MaxAttempts. A sarama consumer-group handler with
// manual offset commit gives at-least-once delivery.
type DeliveryWorker struct {
	consumerGroup sarama.ConsumerGroup
	deliveries    *store.WebhookStore
	enqueuer      *Enqueuer
	dlqProducer   JobPublisher
	httpClient    *http.Client

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewDeliveryWorker(cfg *kafka.Config, groupID string, deliveries *store.WebhookStore, enqueuer *Enqueuer, dlqProducer JobPublisher) (*DeliveryWorker, error) {
	saramaConfig, err := cfg.ToSaramaConfig()
	if err != nil {
		return nil, err
	}
	saramaConfig.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = false
	saramaConfig.ChannelBufferSize = 1 // prefetch one delivery at a time

	group, err := sarama.NewConsumerGroup(cfg.Brokers, groupID, saramaConfig)
	if err != nil {
		return nil, err
	}

	return &DeliveryWorker{
		consumerGroup: group,
		deliveries:    deliveries,
		enqueuer:      enqueuer,
		dlqProducer:   dlqProducer,
		httpClient:    &http.Client{Timeout: deliveryTimeout},
	}, nil
}

func (w *DeliveryWorker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	handler := &deliveryHandler{worker: w}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			if err := w.consumerGroup.Consume(ctx, []string{kafka.TopicWebhooks}, handler); err != nil {
				if ctx.Err() != nil {
					return
				}
				logging.Error("webhook consumer group session ended", err, nil)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case err := <-w.consumerGroup.Errors():
				if err != nil {
					logging.Error("webhook consumer group error", err, nil)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (w *DeliveryWorker) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	return w.consumerGroup.Close()
}

type deliveryHandler struct {
	worker *DeliveryWorker
}

func (h *deliveryHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *deliveryHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *deliveryHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := h.worker.process(session.Context(), message.Value); err != nil {
			logging.Error("webhook delivery job failed", err, map[string]interface{}{"offset": message.Offset})
			return err // at-least-once: ends the session unmarked, so the group resumes from the last commit and redelivers
		}
		session.MarkMessage(message, "")
		session.Commit()
	}
	return nil
}

func (w *DeliveryWorker) process(ctx context.Context, raw []byte) error {
	var job DeliveryJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return err
	}

	delivery, err := w.deliveries.GetByID(ctx, job.DeliveryID)
	if err != nil {
		return nil // unknown delivery id: nothing to do, don't retry
	}
	if delivery.Status == domain.WebhookSuccess || delivery.Status == domain.WebhookFailed {
		return nil // already terminal: duplicate delivery of the job, idempotent no-op
	}

	if err := w.deliveries.IncrementAttempt(ctx, delivery.ID); err != nil {
		return err
	}

	httpStatus, responseBody, sendErr := w.send(ctx, delivery)

	switch {
	case sendErr == nil && httpStatus >= 200 && httpStatus < 300:
		return w.deliveries.RecordAttemptResult(ctx, delivery.ID, domain.WebhookSuccess, httpStatus, responseBody, "")

	case sendErr == nil && httpStatus >= 400 && httpStatus < 500 && httpStatus != 408 && httpStatus != 429:
		return w.deliveries.RecordAttemptResult(ctx, delivery.ID, domain.WebhookFailed, httpStatus, responseBody, "rejected by endpoint")

	default:
		errMessage := ""
		if sendErr != nil {
			errMessage = sendErr.Error()
		}
		if err := w.deliveries.RecordAttemptResult(ctx, delivery.ID, domain.WebhookPending, httpStatus, responseBody, errMessage); err != nil {
			return err
		}

		if job.Attempt+1 >= delivery.MaxAttempts {
			if err := w.deliveries.RecordAttemptResult(ctx, delivery.ID, domain.WebhookFailed, httpStatus, responseBody, "retries exhausted: "+errMessage); err != nil {
				return err
			}
			return w.deadLetter(delivery.ID, job.Attempt, errMessage)
		}

		backoff := retry.Backoff(job.Attempt, backoffBase, backoffCap)
		time.Sleep(backoff)
		return w.enqueuer.Republish(delivery.ID, job.Attempt+1)
	}
}

func (w *DeliveryWorker) send(ctx context.Context, delivery *domain.WebhookDelivery) (int, string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, delivery.TargetURL, bytes.NewReader(delivery.Payload))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "PaymentGateway-Webhook/1.0")
	req.Header.Set("X-Webhook-Delivery-ID", delivery.ID)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1000))
	return resp.StatusCode, string(body), nil
}

func (w *DeliveryWorker) deadLetter(deliveryID string, retryCount int, reason string) error {
	if w.dlqProducer == nil {
		return nil
	}
	return w.dlqProducer.PublishEvent(kafka.TopicWebhooksDLQ, deliveryID, dlq.Message{
		JobID:            deliveryID,
		JobName:          dlq.JobNameWebhook,
		Payload:          []byte(`{"delivery_id":"` + deliveryID + `"}`),
		ExceptionClass:   "DeliveryExhausted",
		ExceptionMessage: reason,
		RetryCount:       retryCount,
	})
}
