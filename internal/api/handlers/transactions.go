package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"paymentgw/internal/apperrors"
	"paymentgw/internal/api/middleware"
	"paymentgw/internal/app"
	"paymentgw/internal/domain"
	"paymentgw/internal/money"
	"paymentgw/internal/store"
	"paymentgw/internal/validation"
)

type createTransactionRequest struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func transactionEnvelope(t *domain.Transaction) gin.H {
	return gin.H{
		"id":              t.ID,
		"account_id":      t.AccountID,
		"kind":            t.Kind,
		"amount":          t.Amount.String(),
		"currency":        t.Currency,
		"status":          t.Status,
		"bank_reference":  t.BankReference,
		"error_code":      t.ErrorCode,
		"error_message":   t.ErrorMessage,
		"idempotency_key": t.IdempotencyKey,
		"created_at":      t.CreatedAt,
		"updated_at":      t.UpdatedAt,
	}
}

// MakeCreateTransactionHandler builds the POST /deposits or POST
// /withdrawals handler for kind, sharing the uniform create -> enqueue ->
// 202 shape; the withdrawal-vs-deposit balance check lives in
// app.State.TxService, not here.
func MakeCreateTransactionHandler(s *app.State, kind domain.TransactionKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createTransactionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			middlewareRespondValidation(c, "invalid request body")
			return
		}
		amount, err := money.ParseDecimal(req.Amount)
		if err != nil || !amount.Positive() {
			middlewareRespondValidation(c, "amount must be a positive decimal string")
			return
		}
		currency := req.Currency
		if currency == "" {
			currency = "USD"
		}

		ctx := c.Request.Context()
		userID := middleware.UserID(c)
		account, err := s.Accounts.GetByUserID(ctx, userID)
		if err != nil {
			middlewareRespondError(c, apperrors.AccountNotFound())
			return
		}

		idempotencyKey := c.GetHeader(middleware.IdempotencyKeyHeader)

		var t *domain.Transaction
		if kind == domain.KindDeposit {
			t, err = s.TxService.CreatePendingDeposit(ctx, account.ID, amount, currency, idempotencyKey)
		} else {
			t, err = s.TxService.CreatePendingWithdrawal(ctx, account.ID, amount, currency, idempotencyKey)
		}
		if err != nil {
			middlewareRespondError(c, err)
			return
		}

		if err := s.JobEnqueuer.Enqueue(t, userID); err != nil {
			middlewareRespondError(c, apperrors.Internal(err))
			return
		}

		c.JSON(http.StatusAccepted, transactionEnvelope(t))
	}
}

// MakeGetTransactionHandler builds GET /deposits/:id or /withdrawals/:id,
// enforcing that the transaction's account belongs to the caller.
func MakeGetTransactionHandler(s *app.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		ctx := c.Request.Context()

		t, err := s.TxService.GetByID(ctx, id)
		if err != nil {
			middlewareRespondError(c, err)
			return
		}

		if err := requireOwnership(c, s, t.AccountID); err != nil {
			middlewareRespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, transactionEnvelope(t))
	}
}

// MakeListTransactionsHandler builds GET /deposits or GET /withdrawals for
// the caller's own account, kind-scoped.
func MakeListTransactionsHandler(s *app.State, kind domain.TransactionKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userID := middleware.UserID(c)

		account, err := s.Accounts.GetByUserID(ctx, userID)
		if err != nil {
			middlewareRespondError(c, apperrors.AccountNotFound())
			return
		}

		skip, limit := parsePagination(c)
		ts, err := s.TxService.ListByAccount(ctx, account.ID, kind, skip, limit)
		if err != nil {
			middlewareRespondError(c, err)
			return
		}

		out := make([]gin.H, 0, len(ts))
		for _, t := range ts {
			out = append(out, transactionEnvelope(t))
		}
		c.JSON(http.StatusOK, gin.H{"transactions": out})
	}
}

func requireOwnership(c *gin.Context, s *app.State, accountID string) error {
	ctx := c.Request.Context()
	userID := middleware.UserID(c)
	account, err := s.Accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.AccountNotFound()
		}
		return apperrors.Internal(err)
	}
	if account.UserID != userID {
		return apperrors.Forbidden("")
	}
	return nil
}

func parsePagination(c *gin.Context) (skip, limit int) {
	skip, _ = strconv.Atoi(c.Query("skip"))
	if skip < 0 {
		skip = 0
	}
	limit, _ = strconv.Atoi(c.Query("limit"))
	limit = validation.ClampLimit(limit)
	return skip, limit
}
