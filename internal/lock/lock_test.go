package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paymentgw/internal/cache"
	"paymentgw/internal/lock"
)

func newManager(t *testing.T) *lock.Manager {
	t.Helper()
	mr := miniredis.RunT(t)
	return lock.NewManager(cache.New(mr.Addr(), "", 0))
}

func TestAcquire_SecondCallerFails(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	l1, err := m.Acquire(ctx, "account:1", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, l1)

	_, err = m.Acquire(ctx, "account:1", time.Minute)
	assert.ErrorIs(t, err, lock.ErrNotAcquired)
}

func TestRelease_OnlyOwnerCanRelease(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	l1, err := m.Acquire(ctx, "account:2", time.Minute)
	require.NoError(t, err)

	require.NoError(t, l1.Release(ctx))

	l2, err := m.Acquire(ctx, "account:2", time.Minute)
	require.NoError(t, err)

	// l1's release already succeeded; releasing again after l2 holds the
	// lease must fail rather than stealing l2's lock (fencing).
	err = l1.Release(ctx)
	assert.ErrorIs(t, err, lock.ErrNotOwned)

	require.NoError(t, l2.Release(ctx))
}

func TestTTL_IsClampedToMaxTTL(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	l, err := m.Acquire(ctx, "account:3", time.Hour)
	require.NoError(t, err)

	assert.LessOrEqual(t, l.ExpiresAt(), time.Now().Add(lock.MaxTTL+time.Second))
}

func TestAcquireBlocking_SucceedsOnceReleased(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	held, err := m.Acquire(ctx, "account:4", 200*time.Millisecond)
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = held.Release(ctx)
	}()

	l, err := m.AcquireBlocking(ctx, "account:4", time.Minute, time.Second)
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestAcquireBlocking_TimesOut(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	_, err := m.Acquire(ctx, "account:5", time.Minute)
	require.NoError(t, err)

	_, err = m.AcquireBlocking(ctx, "account:5", time.Minute, 150*time.Millisecond)
	assert.ErrorIs(t, err, lock.ErrNotAcquired)
}

func TestWithLock_RunsFnAndReleases(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	ran := false
	err := lock.WithLock(ctx, m, "account:6", time.Minute, func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	// lock should be free again
	l, err := m.Acquire(ctx, "account:6", time.Minute)
	require.NoError(t, err)
	require.NoError(t, l.Release(ctx))
}
