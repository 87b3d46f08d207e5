// Package app wires the gateway's singletons together: one place that
// owns the pool, cache client, Kafka producer, bank client, and every
// store/service built on top of them, constructed once at process start
// and handed to both the HTTP server and the background workers.
package app

import (
	"context"
	"fmt"

	"paymentgw/internal/auth"
	"paymentgw/internal/bank"
	"paymentgw/internal/cache"
	"paymentgw/internal/config"
	"paymentgw/internal/dlq"
	"paymentgw/internal/idempotency"
	"paymentgw/internal/infrastructure/messaging/kafka"
	"paymentgw/internal/lock"
	"paymentgw/internal/pkg/logging"
	"paymentgw/internal/store"
	"paymentgw/internal/transactions"
	"paymentgw/internal/webhook"
	"paymentgw/internal/worker"

	"github.com/jackc/pgx/v5/pgxpool"
)

// State holds every shared dependency the API handlers and background
// workers are built from.
type State struct {
	Config *config.Config

	Pool  *pgxpool.Pool
	Cache *cache.Client

	KafkaConfig *kafka.Config
	Producer    *kafka.Producer

	Users        *store.UserStore
	Accounts     *store.AccountStore
	Transactions *store.TransactionStore
	Webhooks     *store.WebhookStore
	FailedTasks  *store.FailedTaskStore

	Locks       *lock.Manager
	Idempotency *idempotency.Service

	BankBreaker *bank.CircuitBreaker
	BankClient  bank.Client

	TxService       *transactions.Service
	WebhookEnqueuer *webhook.Enqueuer
	JobEnqueuer     *worker.Enqueuer
	Replayer        *dlq.Replayer

	Signer *auth.Signer
}

// New constructs every singleton from cfg. Network-dependent resources
// (pool, cache ping) are established eagerly so a misconfigured deployment
// fails fast at boot rather than on the first request.
func New(ctx context.Context, cfg *config.Config) (*State, error) {
	pool, err := store.NewPool(ctx, store.PoolConfig{
		ConnString:        cfg.Postgres.ConnectionString(),
		MaxConns:          int32(cfg.Postgres.MaxOpenConns),
		MinConns:          int32(cfg.Postgres.MaxIdleConns),
		MaxConnLifetime:   cfg.Postgres.ConnMaxLifetime,
		MaxConnIdleTime:   cfg.Postgres.ConnMaxIdleTime,
		HealthCheckPeriod: cfg.Postgres.HealthCheckPeriod,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := store.Migrate(ctx, pool); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	cacheClient := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := cacheClient.Ping(ctx); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	kafkaConfig := kafka.NewConfigFromEnv()
	producer, err := kafka.NewProducer(kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("connect kafka producer: %w", err)
	}

	users := store.NewUserStore(pool)
	accounts := store.NewAccountStore(pool)
	transactionStore := store.NewTransactionStore(pool)
	webhooks := store.NewWebhookStore(pool)
	failedTasks := store.NewFailedTaskStore(pool)

	locks := lock.NewManager(cacheClient)
	idem := idempotency.New(cacheClient)

	breaker := bank.NewCircuitBreaker(cfg.Bank.CircuitFailureThreshold, cfg.Bank.CircuitTimeout, cfg.Bank.CircuitSuccessThreshold)
	bankHTTP := bank.NewHTTPClient(cfg.Bank.BaseURL, cfg.Bank.Timeout)
	bankClient := bank.NewGuardedClient(bankHTTP, breaker)

	webhookEnqueuer := webhook.NewEnqueuer(transactionStore, accounts, users, webhooks, producer, cfg.Webhook.MaxAttempts)
	txService := transactions.NewService(pool, accounts, transactionStore, locks, webhookEnqueuer)
	jobEnqueuer := worker.NewEnqueuer(producer)
	replayer := dlq.NewReplayer(failedTasks, producer)

	signer := auth.NewSigner(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TokenTTL)

	return &State{
		Config:          cfg,
		Pool:            pool,
		Cache:           cacheClient,
		KafkaConfig:     kafkaConfig,
		Producer:        producer,
		Users:           users,
		Accounts:        accounts,
		Transactions:    transactionStore,
		Webhooks:        webhooks,
		FailedTasks:     failedTasks,
		Locks:           locks,
		Idempotency:     idem,
		BankBreaker:     breaker,
		BankClient:      bankClient,
		TxService:       txService,
		WebhookEnqueuer: webhookEnqueuer,
		JobEnqueuer:     jobEnqueuer,
		Replayer:        replayer,
		Signer:          signer,
	}, nil
}

// Shutdown releases every resource State owns. Safe to call once at
// process exit; order matters least here since nothing is still serving
// requests by the time this runs.
func (s *State) Shutdown(ctx context.Context) {
	if err := s.Producer.Close(); err != nil {
		logging.Error("kafka producer close failed", err, nil)
	}
	if err := s.Cache.Close(); err != nil {
		logging.Error("redis client close failed", err, nil)
	}
	s.Pool.Close()
}
