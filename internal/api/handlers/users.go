package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"paymentgw/internal/apperrors"
	"paymentgw/internal/api/middleware"
	"paymentgw/internal/app"
)

func MakeMeHandler(s *app.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		user, err := s.Users.GetByID(ctx, middleware.UserID(c))
		if err != nil {
			middlewareRespondError(c, apperrors.UserNotFound())
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":          user.ID,
			"email":       user.Email,
			"webhook_url": user.WebhookURL,
			"created_at":  user.CreatedAt,
		})
	}
}

func MakeMyTransactionsHandler(s *app.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		account, err := s.Accounts.GetByUserID(ctx, middleware.UserID(c))
		if err != nil {
			middlewareRespondError(c, apperrors.AccountNotFound())
			return
		}

		skip, limit := parsePagination(c)
		ts, err := s.TxService.ListAllByAccount(ctx, account.ID, skip, limit)
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

func MakeBalanceHandler(s *app.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		account, err := s.Accounts.GetByUserID(ctx, middleware.UserID(c))
		if err != nil {
			middlewareRespondError(c, apperrors.AccountNotFound())
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"account_id": account.ID,
			"balance":    account.Balance.String(),
			"currency":   account.Currency,
		})
	}
}
