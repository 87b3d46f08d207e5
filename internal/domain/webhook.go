package domain

import "time"

type WebhookStatus string

const (
	WebhookPending WebhookStatus = "PENDING"
	WebhookSending WebhookStatus = "SENDING"
	WebhookSuccess WebhookStatus = "SUCCESS"
	WebhookFailed  WebhookStatus = "FAILED"
)

// WebhookDelivery tracks one outbound notification attempt sequence for a
// completed transaction.
type WebhookDelivery struct {
	ID             string
	TransactionID  string
	TargetURL      string
	Payload        []byte
	Status         WebhookStatus
	AttemptCount   int
	MaxAttempts    int
	LastHTTPStatus int
	ResponseBody   string
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
