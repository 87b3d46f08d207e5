// Package api registers the gateway's HTTP surface: auth, deposit/
// withdrawal creation and lookup, account/profile reads, and the inbound
// bank webhook callback. Handlers close over a shared dependency container
// rather than each taking its own constructor arguments.
package api

import (
	"github.com/gin-gonic/gin"

	"paymentgw/internal/api/handlers"
	"paymentgw/internal/api/middleware"
	"paymentgw/internal/app"
	"paymentgw/internal/domain"
)

func RegisterRoutes(router *gin.Engine, s *app.State) {
	router.Use(middleware.RequestID())
	router.Use(middleware.Prometheus())

	router.GET("/healthz", handlers.MakeHealthzHandler(s))
	router.GET("/metrics", handlers.MetricsHandler())

	auth := router.Group("/auth")
	auth.POST("/register", handlers.MakeRegisterHandler(s))
	auth.POST("/login", handlers.MakeLoginHandler(s))

	router.POST("/webhooks/bank-callback", handlers.MakeBankCallbackHandler(s))

	authed := router.Group("/")
	authed.Use(middleware.Auth(s.Signer))

	authed.GET("/users/me", handlers.MakeMeHandler(s))
	authed.GET("/users/me/balance",
		middleware.RateLimit(s.Cache, "balance", s.Config.RateLimit.BalanceRequestsPerMinute, s.Config.RateLimit.Window),
		handlers.MakeBalanceHandler(s))
	authed.GET("/users/me/transactions",
		middleware.RateLimit(s.Cache, "transactions_list", s.Config.RateLimit.TransactionsRequestsPerMinute, s.Config.RateLimit.Window),
		handlers.MakeMyTransactionsHandler(s))

	authed.POST("/deposits",
		middleware.Idempotency(s.Idempotency),
		handlers.MakeCreateTransactionHandler(s, domain.KindDeposit))
	authed.GET("/deposits/:id", handlers.MakeGetTransactionHandler(s))
	authed.GET("/deposits", handlers.MakeListTransactionsHandler(s, domain.KindDeposit))

	authed.POST("/withdrawals",
		middleware.Idempotency(s.Idempotency),
		handlers.MakeCreateTransactionHandler(s, domain.KindWithdrawal))
	authed.GET("/withdrawals/:id", handlers.MakeGetTransactionHandler(s))
	authed.GET("/withdrawals", handlers.MakeListTransactionsHandler(s, domain.KindWithdrawal))
}
