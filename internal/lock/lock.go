// Package lock implements the fenced-lease distributed lock (C2): a
// named, owner-token exclusive lock with a mandatory TTL, backed by the
// shared cache client. Grounded directly on
// other_examples/Web3AirdropOS/internal/locks/locks.go, adapted from its
// dedicated redis.Client + Lua scripts to the shared internal/cache.Client
// and to this gateway's "account" resource rather than accounts/wallets.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"paymentgw/internal/cache"
)

var (
	ErrNotAcquired = errors.New("lock: not acquired")
	ErrNotOwned    = errors.New("lock: not owned by this holder")
)

// MaxTTL bounds every lease regardless of what the caller asks for, so a
// wedged process can never hold a lock indefinitely.
const MaxTTL = 30 * time.Second

const keyPrefix = "lock:"

type Manager struct {
	cache *cache.Client
}

func NewManager(c *cache.Client) *Manager {
	return &Manager{cache: c}
}

// Lock is a held lease: a key, the unique token that proves ownership, and
// the time it is due to expire.
type Lock struct {
	manager   *Manager
	key       string
	token     string
	expiresAt time.Time
}

func (m *Manager) lockKey(resource string) string {
	return keyPrefix + resource
}

func clampTTL(ttl time.Duration) time.Duration {
	if ttl > MaxTTL {
		return MaxTTL
	}
	return ttl
}

// Acquire attempts a single, non-blocking acquisition.
func (m *Manager) Acquire(ctx context.Context, resource string, ttl time.Duration) (*Lock, error) {
	ttl = clampTTL(ttl)
	key := m.lockKey(resource)
	token := uuid.New().String()

	ok, err := m.cache.SetIfAbsent(ctx, key, token, ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	return &Lock{manager: m, key: key, token: token, expiresAt: time.Now().Add(ttl)}, nil
}

// AcquireBlocking retries with exponential backoff (base 100ms, doubling,
// capped at 1s) until retryBudget elapses.
func (m *Manager) AcquireBlocking(ctx context.Context, resource string, ttl, retryBudget time.Duration) (*Lock, error) {
	deadline := time.Now().Add(retryBudget)
	backoff := 100 * time.Millisecond
	const maxBackoff = time.Second

	for {
		l, err := m.Acquire(ctx, resource, ttl)
		if err == nil {
			return l, nil
		}
		if !errors.Is(err, ErrNotAcquired) {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, ErrNotAcquired
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

// Release deletes the lease only if the stored token still matches this
// holder's token. When the lease has expired or is held by another holder
// it deletes nothing and returns ErrNotOwned.
func (l *Lock) Release(ctx context.Context) error {
	ok, err := l.manager.cache.DeleteIfOwner(ctx, l.key, l.token)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotOwned
	}
	return nil
}

// Extend resets the TTL, again gated on owner token match.
func (l *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	ttl = clampTTL(ttl)
	ok, err := l.manager.cache.ExtendIfOwner(ctx, l.key, l.token, ttl)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotOwned
	}
	l.expiresAt = time.Now().Add(ttl)
	return nil
}

func (l *Lock) Token() string          { return l.token }
func (l *Lock) ExpiresAt() time.Time   { return l.expiresAt }
func (l *Lock) Expired() bool          { return time.Now().After(l.expiresAt) }

// WithLock acquires resource, runs fn, and always releases afterwards.
func WithLock(ctx context.Context, m *Manager, resource string, ttl time.Duration, fn func() error) error {
	l, err := m.Acquire(ctx, resource, ttl)
	if err != nil {
		return err
	}
	defer l.Release(ctx)
	return fn()
}

// AccountResource names the resource a per-account lock guards.
func AccountResource(accountID string) string {
	return "account:" + accountID
}
