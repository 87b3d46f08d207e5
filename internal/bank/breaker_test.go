package bank_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"paymentgw/internal/bank"
)

type stubClient struct {
	responses []bank.Response
	errs      []error
	calls     int
}

func (s *stubClient) Deposit(ctx context.Context, accountRef string, amountCents int64, idempotencyKey string) (bank.Response, error) {
	return s.next()
}

func (s *stubClient) Withdraw(ctx context.Context, accountRef string, amountCents int64, idempotencyKey string) (bank.Response, error) {
	return s.next()
}

func (s *stubClient) next() (bank.Response, error) {
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return s.responses[i], err
}

func newBreaker() *bank.CircuitBreaker {
	return bank.NewCircuitBreaker(3, 30*time.Millisecond, 2)
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	b := newBreaker()
	assert.Equal(t, bank.Closed, b.State())

	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, bank.Closed, b.State())

	b.RecordFailure()
	assert.Equal(t, bank.Open, b.State())
	assert.False(t, b.CanExecute())
}

func TestCircuitBreaker_ResetsAfterTimeout(t *testing.T) {
	b := newBreaker()
	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, bank.Open, b.State())

	time.Sleep(40 * time.Millisecond)

	assert.True(t, b.CanExecute())
	assert.Equal(t, bank.HalfOpen, b.State())
}

func TestCircuitBreaker_HalfOpenClosesAfterSuccessThreshold(t *testing.T) {
	b := newBreaker()
	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()
	time.Sleep(40 * time.Millisecond)
	b.CanExecute()
	assert.Equal(t, bank.HalfOpen, b.State())

	b.RecordSuccess()
	assert.Equal(t, bank.HalfOpen, b.State())

	b.RecordSuccess()
	assert.Equal(t, bank.Closed, b.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := newBreaker()
	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()
	time.Sleep(40 * time.Millisecond)
	b.CanExecute()

	b.RecordFailure()
	assert.Equal(t, bank.Open, b.State())
}

func TestGuardedClient_BusinessFailureDoesNotTripBreaker(t *testing.T) {
	breaker := newBreaker()
	stub := &stubClient{responses: []bank.Response{
		{Status: bank.StatusInsufficientFunds},
		{Status: bank.StatusInsufficientFunds},
		{Status: bank.StatusInsufficientFunds},
	}}
	guarded := bank.NewGuardedClient(stub, breaker)

	for i := 0; i < 3; i++ {
		resp, err := guarded.Deposit(context.Background(), "acct", 100, "k")
		assert.NoError(t, err)
		assert.Equal(t, bank.StatusInsufficientFunds, resp.Status)
	}
	assert.Equal(t, bank.Closed, breaker.State())
}

func TestGuardedClient_TransientTripsBreakerAndOpensCircuit(t *testing.T) {
	breaker := newBreaker()
	stub := &stubClient{responses: []bank.Response{
		{Status: bank.StatusTimeout},
		{Status: bank.StatusTimeout},
		{Status: bank.StatusTimeout},
	}}
	guarded := bank.NewGuardedClient(stub, breaker)

	for i := 0; i < 3; i++ {
		_, _ = guarded.Deposit(context.Background(), "acct", 100, "k")
	}
	assert.Equal(t, bank.Open, breaker.State())

	resp, err := guarded.Deposit(context.Background(), "acct", 100, "k")
	assert.NoError(t, err)
	assert.Equal(t, bank.StatusUnavailable, resp.Status)
	assert.Equal(t, "CIRCUIT_BREAKER_OPEN", resp.ErrorCode)
}

func TestStatus_TransientAndPermanent(t *testing.T) {
	assert.True(t, bank.StatusTimeout.Transient())
	assert.True(t, bank.StatusUnavailable.Transient())
	assert.False(t, bank.StatusSuccess.Transient())

	assert.True(t, bank.StatusFailed.Permanent())
	assert.True(t, bank.StatusInsufficientFunds.Permanent())
	assert.False(t, bank.StatusTimeout.Permanent())
}
