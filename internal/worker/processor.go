package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"paymentgw/internal/bank"
	"paymentgw/internal/dlq"
	"paymentgw/internal/domain"
	"paymentgw/internal/infrastructure/messaging/kafka"
	"paymentgw/internal/money"
	"paymentgw/internal/pkg/logging"
	"paymentgw/internal/retry"
	"paymentgw/internal/transactions"
)

const (
	maxRetries  = 3
	backoffBase = time.Second
	backoffCap  = 600 * time.Second
)

// Processor consumes transaction jobs and drives each one to a terminal
// status by calling the bank and classifying its response. It is a sarama
// consumer-group handler with manual offset commit, dispatching by job kind
// (Deposit vs Withdrawal) and retrying transient bank failures with backoff
// before dead-lettering once attempts are exhausted.
type Processor struct {
	consumerGroup sarama.ConsumerGroup
	transactions  *transactions.Service
	bankClient    bank.Client
	dlqProducer   JobPublisher
	enqueuer      *Enqueuer

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewProcessor(cfg *kafka.Config, groupID string, txSvc *transactions.Service, bankClient bank.Client, dlqProducer JobPublisher, enqueuer *Enqueuer) (*Processor, error) {
	saramaConfig, err := cfg.ToSaramaConfig()
	if err != nil {
		return nil, err
	}
	saramaConfig.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = false
	saramaConfig.ChannelBufferSize = 1

	group, err := sarama.NewConsumerGroup(cfg.Brokers, groupID, saramaConfig)
	if err != nil {
		return nil, err
	}

	return &Processor{
		consumerGroup: group,
		transactions:  txSvc,
		bankClient:    bankClient,
		dlqProducer:   dlqProducer,
		enqueuer:      enqueuer,
	}, nil
}

func (p *Processor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	handler := &jobHandler{processor: p}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			if err := p.consumerGroup.Consume(ctx, []string{kafka.TopicTransactions}, handler); err != nil {
				if ctx.Err() != nil {
					return
				}
				logging.Error("transaction consumer group session ended", err, nil)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case err := <-p.consumerGroup.Errors():
				if err != nil {
					logging.Error("transaction consumer group error", err, nil)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (p *Processor) Stop() error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return p.consumerGroup.Close()
}

type jobHandler struct {
	processor *Processor
}

func (h *jobHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *jobHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *jobHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := h.processor.process(session.Context(), message.Value); err != nil {
			logging.Error("transaction job failed", err, map[string]interface{}{"offset": message.Offset})
			return err // at-least-once: ends the session unmarked, so the group resumes from the last commit and redelivers
		}
		session.MarkMessage(message, "")
		session.Commit()
	}
	return nil
}

func (p *Processor) process(ctx context.Context, raw []byte) error {
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return err
	}

	t, err := p.transactions.GetByID(ctx, job.TransactionID)
	if err != nil {
		return nil // unknown transaction id: nothing to do, don't retry
	}
	if t.Terminal() {
		return nil // already terminal: duplicate delivery, idempotent no-op
	}

	if err := p.transactions.MarkProcessing(ctx, job.TransactionID); err != nil {
		return err
	}

	resp, err := p.call(ctx, job)
	if err != nil {
		return err
	}

	switch {
	case resp.Status == bank.StatusSuccess:
		return p.complete(ctx, job, resp)

	case resp.Status.Permanent():
		return p.transactions.FailTransaction(ctx, job.TransactionID, resp.ErrorCode, resp.Message, marshalResponse(resp))

	default: // Transient(): TIMEOUT, UNAVAILABLE, or breaker-open
		return p.retryOrReview(ctx, job, resp)
	}
}

func (p *Processor) call(ctx context.Context, job Job) (bank.Response, error) {
	switch domain.TransactionKind(job.Kind) {
	case domain.KindDeposit:
		return p.bankClient.Deposit(ctx, job.AccountID, job.AmountCents, job.IdempotencyKey)
	case domain.KindWithdrawal:
		return p.bankClient.Withdraw(ctx, job.AccountID, job.AmountCents, job.IdempotencyKey)
	default:
		return bank.Response{Status: bank.StatusFailed, ErrorCode: "UNKNOWN_KIND"}, nil
	}
}

func (p *Processor) complete(ctx context.Context, job Job, resp bank.Response) error {
	raw := marshalResponse(resp)
	switch domain.TransactionKind(job.Kind) {
	case domain.KindDeposit:
		return p.transactions.CompleteDeposit(ctx, job.TransactionID, job.AccountID, money.Cents(job.AmountCents), resp.TransactionID, raw)
	case domain.KindWithdrawal:
		return p.transactions.CompleteWithdrawal(ctx, job.TransactionID, job.AccountID, money.Cents(job.AmountCents), resp.TransactionID, raw)
	default:
		return p.transactions.FailTransaction(ctx, job.TransactionID, "UNKNOWN_KIND", "unrecognized transaction kind", raw)
	}
}

func (p *Processor) retryOrReview(ctx context.Context, job Job, resp bank.Response) error {
	if job.Attempt+1 >= maxRetries {
		if err := p.transactions.MarkPendingReview(ctx, job.TransactionID, "retries exhausted: "+resp.ErrorCode); err != nil {
			return err
		}
		return p.deadLetter(job, resp)
	}

	backoff := retry.Backoff(job.Attempt, backoffBase, backoffCap)
	time.Sleep(backoff)

	job.Attempt++
	return p.enqueuer.republish(job)
}

func (p *Processor) deadLetter(job Job, resp bank.Response) error {
	if p.dlqProducer == nil {
		return nil
	}
	payload, _ := json.Marshal(job)
	return p.dlqProducer.PublishEvent(kafka.TopicTransactionsDLQ, job.TransactionID, dlq.Message{
		JobID:            job.TransactionID,
		JobName:          dlq.JobNameTransaction,
		Payload:          payload,
		ExceptionClass:   "BankCallExhausted",
		ExceptionMessage: resp.ErrorCode,
		RetryCount:       job.Attempt,
	})
}

func marshalResponse(resp bank.Response) []byte {
	b, _ := json.Marshal(resp)
	return b
}
