package kafka

// Topic names for the payment gateway's job queues. "transactions" and
// "webhooks" are the main queues a worker consumes from; their ".dlq"
// siblings are the dead-letter parking lots reached after retry exhaustion.
const (
	TopicTransactions    = "payments.transactions"
	TopicTransactionsDLQ = "payments.transactions.dlq"
	TopicWebhooks        = "payments.webhooks"
	TopicWebhooksDLQ     = "payments.webhooks.dlq"
)

// DLQRetentionMs is the retention chosen for DLQ topics (x-message-ttl).
// Nothing in this module creates topics or applies it; DLQ retention is
// whatever the broker's topic configuration says.
const DLQRetentionMs = 24 * 60 * 60 * 1000

// DLQMaxLength is the message cap chosen for DLQ topics (x-max-length).
// Like DLQRetentionMs, it is not applied by this module.
const DLQMaxLength = 10000

// AllTopics returns every topic the gateway produces to or consumes from.
func AllTopics() []string {
	return []string{
		TopicTransactions,
		TopicTransactionsDLQ,
		TopicWebhooks,
		TopicWebhooksDLQ,
	}
}
