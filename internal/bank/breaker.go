package bank

import (
	"context"
	"sync"
	"time"
)

// BreakerState is one of the three circuit-breaker states.
type BreakerState int

const (
	Closed BreakerState = iota
	Open
	HalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case Closed:
		return "closed"
	case HalfOpen:
		return "half_open"
	default:
		return "open"
	}
}

// CircuitBreaker is a per-process, mutex-guarded state machine shared by
// every call to one bank direction.
type CircuitBreaker struct {
	mu sync.Mutex

	state              BreakerState
	failureCount       int
	successCount       int
	lastFailureTime    time.Time
	failureThreshold   int
	timeout            time.Duration
	successThreshold   int
}

func NewCircuitBreaker(failureThreshold int, timeout time.Duration, successThreshold int) *CircuitBreaker {
	return &CircuitBreaker{
		state:            Closed,
		failureThreshold: failureThreshold,
		timeout:          timeout,
		successThreshold: successThreshold,
	}
}

// CanExecute reports whether a call may proceed, transitioning OPEN ->
// HALF_OPEN once timeout has elapsed since the last recorded failure.
func (b *CircuitBreaker) CanExecute() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed, HalfOpen:
		return true
	case Open:
		if time.Since(b.lastFailureTime) >= b.timeout {
			b.state = HalfOpen
			b.successCount = 0
			return true
		}
		return false
	default:
		return true
	}
}

func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		b.failureCount = 0
	case HalfOpen:
		b.successCount++
		if b.successCount >= b.successThreshold {
			b.state = Closed
			b.failureCount = 0
			b.successCount = 0
		}
	}
}

func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		b.failureCount++
		if b.failureCount >= b.failureThreshold {
			b.state = Open
			b.lastFailureTime = time.Now()
		}
	case HalfOpen:
		b.state = Open
		b.lastFailureTime = time.Now()
		b.successCount = 0
	}
}

func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// GuardedClient wraps a Client with a CircuitBreaker, synthesizing an
// UNAVAILABLE/CIRCUIT_BREAKER_OPEN response instead of calling through when
// the breaker is open. Only TIMEOUT and UNAVAILABLE statuses (and transport
// errors) count as failures; business failures never trip the breaker.
type GuardedClient struct {
	inner   Client
	breaker *CircuitBreaker
}

func NewGuardedClient(inner Client, breaker *CircuitBreaker) *GuardedClient {
	return &GuardedClient{inner: inner, breaker: breaker}
}

func (g *GuardedClient) Deposit(ctx context.Context, accountRef string, amountCents int64, idempotencyKey string) (Response, error) {
	return g.call(ctx, func() (Response, error) {
		return g.inner.Deposit(ctx, accountRef, amountCents, idempotencyKey)
	})
}

func (g *GuardedClient) Withdraw(ctx context.Context, accountRef string, amountCents int64, idempotencyKey string) (Response, error) {
	return g.call(ctx, func() (Response, error) {
		return g.inner.Withdraw(ctx, accountRef, amountCents, idempotencyKey)
	})
}

func (g *GuardedClient) call(ctx context.Context, fn func() (Response, error)) (Response, error) {
	if !g.breaker.CanExecute() {
		return Response{Status: StatusUnavailable, ErrorCode: "CIRCUIT_BREAKER_OPEN"}, nil
	}

	resp, err := fn()
	if err != nil {
		g.breaker.RecordFailure()
		return resp, err
	}

	if resp.Status.Transient() {
		g.breaker.RecordFailure()
	} else {
		g.breaker.RecordSuccess()
	}
	return resp, nil
}
