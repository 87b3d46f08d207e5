package api_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"paymentgw/internal/api"
	"paymentgw/internal/app"
	"paymentgw/internal/auth"
	"paymentgw/internal/cache"
	"paymentgw/internal/config"
	"paymentgw/internal/dlq"
	"paymentgw/internal/idempotency"
	"paymentgw/internal/lock"
	"paymentgw/internal/store"
	"paymentgw/internal/transactions"
	"paymentgw/internal/webhook"
	"paymentgw/internal/worker"

	"github.com/gin-gonic/gin"
)

type noopPublisher struct{}

func (noopPublisher) PublishEvent(topic, key string, event interface{}) error { return nil }

// newTestState builds an app.State against a real Postgres testcontainer
// and an in-memory Redis, with Kafka publishing stubbed out (no broker is
// started for these tests). The HTTP layer never calls the bank directly
// (that happens on the async worker path), so BankClient is left nil.
func newTestState(t *testing.T) *app.State {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("paymentgw_test"),
		postgres.WithUsername("paymentgw"),
		postgres.WithPassword("paymentgw"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := store.NewPool(ctx, store.PoolConfig{ConnString: connString})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, store.Migrate(ctx, pool))

	mr := miniredis.RunT(t)
	cacheClient := cache.New(mr.Addr(), "", 0)

	users := store.NewUserStore(pool)
	accounts := store.NewAccountStore(pool)
	transactionStore := store.NewTransactionStore(pool)
	webhooks := store.NewWebhookStore(pool)
	failedTasks := store.NewFailedTaskStore(pool)

	locks := lock.NewManager(cacheClient)
	idem := idempotency.New(cacheClient)

	publisher := noopPublisher{}
	webhookEnqueuer := webhook.NewEnqueuer(transactionStore, accounts, users, webhooks, publisher, 5)
	txService := transactions.NewService(pool, accounts, transactionStore, locks, webhookEnqueuer)
	jobEnqueuer := worker.NewEnqueuer(publisher)
	replayer := dlq.NewReplayer(failedTasks, publisher)

	cfg := &config.Config{
		JWT:     config.JWTConfig{Secret: "test-secret", Issuer: "payment-gateway-test", TokenTTL: time.Hour},
		Webhook: config.WebhookConfig{Secret: "bank-webhook-secret", MaxAttempts: 5},
		RateLimit: config.RateLimitConfig{
			BalanceRequestsPerMinute:      3,
			TransactionsRequestsPerMinute: 3,
			Window:                        time.Minute,
		},
	}
	signer := auth.NewSigner(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TokenTTL)

	return &app.State{
		Config:          cfg,
		Pool:            pool,
		Cache:           cacheClient,
		Users:           users,
		Accounts:        accounts,
		Transactions:    transactionStore,
		Webhooks:        webhooks,
		FailedTasks:     failedTasks,
		Locks:           locks,
		Idempotency:     idem,
		TxService:       txService,
		WebhookEnqueuer: webhookEnqueuer,
		JobEnqueuer:     jobEnqueuer,
		Replayer:        replayer,
		Signer:          signer,
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, *app.State) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	state := newTestState(t)
	router := gin.New()
	api.RegisterRoutes(router, state)
	return router, state
}
