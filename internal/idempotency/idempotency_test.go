package idempotency_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paymentgw/internal/cache"
	"paymentgw/internal/idempotency"
)

func newService(t *testing.T) *idempotency.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	return idempotency.New(cache.New(mr.Addr(), "", 0))
}

func TestAcquireLock_FirstCallerWinsSecondDoesNot(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	ok, err := s.AcquireLock(ctx, "key-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.AcquireLock(ctx, "key-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckExisting_UnknownKeyIsNone(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	state, record, err := s.CheckExisting(ctx, "unknown")
	require.NoError(t, err)
	assert.Equal(t, idempotency.StateNone, state)
	assert.Nil(t, record)
}

func TestCheckExisting_ReflectsProcessingThenCompleted(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	_, err := s.AcquireLock(ctx, "key-2")
	require.NoError(t, err)

	state, _, err := s.CheckExisting(ctx, "key-2")
	require.NoError(t, err)
	assert.Equal(t, idempotency.StateProcessing, state)

	record := idempotency.Record{StatusCode: 201, Body: json.RawMessage(`{"id":"tx-1"}`)}
	require.NoError(t, s.SaveResponse(ctx, "key-2", record))

	state, got, err := s.CheckExisting(ctx, "key-2")
	require.NoError(t, err)
	assert.Equal(t, idempotency.StateCompleted, state)
	require.NotNil(t, got)
	assert.Equal(t, 201, got.StatusCode)
	assert.JSONEq(t, `{"id":"tx-1"}`, string(got.Body))
}

func TestReleaseLock_AllowsRetry(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	_, err := s.AcquireLock(ctx, "key-3")
	require.NoError(t, err)

	require.NoError(t, s.ReleaseLock(ctx, "key-3"))

	ok, err := s.AcquireLock(ctx, "key-3")
	require.NoError(t, err)
	assert.True(t, ok)
}
