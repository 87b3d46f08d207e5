package webhook

import (
	"paymentgw/internal/domain"
)

// Payload is the exact JSON shape an outbound delivery POSTs.
type Payload struct {
	Event       string            `json:"event"`
	Transaction TransactionFields `json:"transaction"`
	Account     AccountFields     `json:"account"`
}

type TransactionFields struct {
	ID                string `json:"id"`
	Type              string `json:"type"`
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
	Status            string `json:"status"`
	BankTransactionID string `json:"bank_transaction_id,omitempty"`
	ErrorCode         string `json:"error_code,omitempty"`
	ErrorMessage      string `json:"error_message,omitempty"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

type AccountFields struct {
	ID      string `json:"id"`
	Balance string `json:"balance"`
}

// eventName maps a terminal transaction status to the webhook payload's
// "event" field. PENDING_REVIEW has no event name of its own; it is
// reported the same way a bank failure is, since from the receiving
// merchant's point of view the money movement did not succeed.
func eventName(status domain.TransactionStatus) string {
	if status == domain.StatusSuccess {
		return "transaction.completed"
	}
	return "transaction.failed"
}

func buildPayload(t *domain.Transaction, account *domain.Account) Payload {
	return Payload{
		Event: eventName(t.Status),
		Transaction: TransactionFields{
			ID:                t.ID,
			Type:              string(t.Kind),
			Amount:            t.Amount.String(),
			Currency:          t.Currency,
			Status:            string(t.Status),
			BankTransactionID: t.BankReference,
			ErrorCode:         t.ErrorCode,
			ErrorMessage:      t.ErrorMessage,
			CreatedAt:         t.CreatedAt.Format(rfc3339),
			UpdatedAt:         t.UpdatedAt.Format(rfc3339),
		},
		Account: AccountFields{
			ID:      account.ID,
			Balance: account.Balance.String(),
		},
	}
}

const rfc3339 = "2006-01-02T15:04:05Z07:00"
