// Package telemetry holds the Prometheus metrics the HTTP server and
// background workers publish.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "HTTP requests currently being handled.",
		},
	)

	TransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transactions_total",
			Help: "Transactions processed, by kind and final status.",
		},
		[]string{"kind", "status"},
	)

	TransactionAmountCents = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transaction_amount_cents",
			Help:    "Distribution of transaction amounts in cents.",
			Buckets: prometheus.ExponentialBuckets(100, 4, 10),
		},
		[]string{"kind"},
	)

	WorkerJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_total",
			Help: "Jobs consumed by the worker, by outcome.",
		},
		[]string{"outcome"}, // success, retry, dlq, duplicate
	)

	WorkerJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Time spent processing a single job.",
			Buckets: prometheus.DefBuckets,
		},
	)

	WebhookDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Webhook delivery attempts, by outcome.",
		},
		[]string{"outcome"}, // delivered, retry, dlq
	)

	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bank_circuit_breaker_state",
			Help: "Bank client circuit breaker state: 0=closed, 1=half_open, 2=open.",
		},
	)

	DLQDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dead_letter_queue_depth",
			Help: "Unreplayed failed tasks, by job name.",
		},
		[]string{"job_name"},
	)

	IdempotencyHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idempotency_hits_total",
			Help: "Idempotency key lookups, by outcome.",
		},
		[]string{"outcome"}, // new, processing, completed
	)

	kafkaProducerEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_producer_events_total",
			Help: "Kafka producer outcomes, by reason.",
		},
		[]string{"reason"},
	)
)

// RecordEventDropped records a message a producer could not enqueue. No
// producer in this module calls it.
func RecordEventDropped(reason string) {
	kafkaProducerEventsTotal.WithLabelValues("dropped_" + reason).Inc()
}

// RecordEventPublishingError records a publish error reported by a
// producer. No producer in this module calls it.
func RecordEventPublishingError(reason string) {
	kafkaProducerEventsTotal.WithLabelValues("error_" + reason).Inc()
}

// RecordHTTPRequest is a small helper so handlers/middleware don't repeat
// the three-metric update inline.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}

func RecordTransaction(kind, status string, amountCents int64) {
	TransactionsTotal.WithLabelValues(kind, status).Inc()
	TransactionAmountCents.WithLabelValues(kind).Observe(float64(amountCents))
}
