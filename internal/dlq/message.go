// Package dlq implements C9: the dead-letter consumer that persists
// exhausted jobs into FailedTask, and replay of a parked job back onto its
// original queue.
package dlq

// Message is the wire schema every dead-lettered job is published with,
// shared by both the transaction worker (C7) and the webhook delivery
// worker (C8) so one consumer handles both DLQ topics identically.
type Message struct {
	JobID            string `json:"job_id"`
	JobName          string `json:"job_name"`
	Payload          []byte `json:"payload"`
	ExceptionClass   string `json:"exception_class"`
	ExceptionMessage string `json:"exception_message"`
	Traceback        string `json:"traceback,omitempty"`
	RetryCount       int    `json:"retry_count"`
}
