package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"paymentgw/internal/apperrors"
	"paymentgw/internal/app"
	"paymentgw/internal/bank"
	"paymentgw/internal/domain"
	"paymentgw/internal/webhook"
)

const signatureHeader = "X-Bank-Signature"

// bankCallbackBody is the bank's own outcome notification, distinct from
// the gateway's outbound webhook.Payload. It mirrors bank.Response plus
// the transaction identifier and a freshness timestamp.
type bankCallbackBody struct {
	TransactionID string      `json:"transaction_id"`
	Status        bank.Status `json:"status"`
	Timestamp     int64       `json:"timestamp"`
	Message       string      `json:"message"`
	ErrorCode     string      `json:"error_code"`
}

// MakeBankCallbackHandler implements POST /webhooks/bank-callback: verify
// the HMAC over the raw body, check timestamp freshness, then route the
// outcome to complete or fail the named transaction.
func MakeBankCallbackHandler(s *app.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			middlewareRespondValidation(c, "could not read request body")
			return
		}

		sig := c.GetHeader(signatureHeader)
		if !webhook.Verify(s.Config.Webhook.Secret, raw, sig) {
			middlewareRespondError(c, apperrors.Unauthorized("signature mismatch"))
			return
		}

		var body bankCallbackBody
		if err := json.Unmarshal(raw, &body); err != nil {
			middlewareRespondValidation(c, "malformed callback body")
			return
		}

		if !webhook.TimestampFresh(body.Timestamp, time.Now(), 300*time.Second) {
			middlewareRespondError(c, apperrors.Validation("callback timestamp is stale or in the future"))
			return
		}

		ctx := c.Request.Context()
		t, err := s.TxService.GetByID(ctx, body.TransactionID)
		if err != nil {
			middlewareRespondError(c, apperrors.TransactionNotFound())
			return
		}
		if t.Terminal() {
			c.JSON(http.StatusOK, gin.H{"status": "already_terminal"})
			return
		}

		bankResponse, _ := json.Marshal(body)
		if err := routeCallback(ctx, s, t, body, bankResponse); err != nil {
			middlewareRespondError(c, apperrors.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func routeCallback(ctx context.Context, s *app.State, t *domain.Transaction, body bankCallbackBody, bankResponse []byte) error {
	switch {
	case body.Status == bank.StatusSuccess:
		if t.Kind == domain.KindDeposit {
			return s.TxService.CompleteDeposit(ctx, t.ID, t.AccountID, t.Amount, body.TransactionID, bankResponse)
		}
		return s.TxService.CompleteWithdrawal(ctx, t.ID, t.AccountID, t.Amount, body.TransactionID, bankResponse)
	default:
		return s.TxService.FailTransaction(ctx, t.ID, body.ErrorCode, body.Message, bankResponse)
	}
}
