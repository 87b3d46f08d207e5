// Package worker implements C7: the transaction processing worker that
// consumes pending deposit/withdrawal jobs, calls the bank through its
// circuit breaker, and drives the transaction to a terminal status.
package worker

// Job is the message body placed on kafka.TopicTransactions. One job is
// enqueued per pending transaction; AccountID doubles as the account
// reference sent to the bank.
type Job struct {
	TransactionID  string `json:"transaction_id"`
	AccountID      string `json:"account_id"`
	UserID         string `json:"user_id"`
	Kind           string `json:"kind"` // "DEPOSIT" or "WITHDRAWAL"
	AmountCents    int64  `json:"amount_cents"`
	IdempotencyKey string `json:"idempotency_key"`
	Attempt        int    `json:"attempt"`
}
