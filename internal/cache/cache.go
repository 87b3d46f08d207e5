// Package cache wraps the Redis client with the handful of atomic
// operations the rest of the gateway needs: set-if-absent with TTL,
// owner-checked delete/extend (Lua, for the distributed lock and
// idempotency layer), and sorted-set primitives for sliding-window rate
// limiting. Grounded on the Redis usage in
// other_examples/Web3AirdropOS/internal/locks/locks.go, generalized into a
// single shared client rather than one embedded in the lock package alone.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Client {
	return &Client{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Raw exposes the underlying client for components (e.g. the lock package)
// that need direct access to run their own Lua scripts against the same
// connection pool.
func (c *Client) Raw() *redis.Client { return c.rdb }

// SetIfAbsent is a thin wrapper over SETNX with a TTL, used by the
// idempotency service to install the PROCESSING sentinel.
func (c *Client) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	return val, err
}

// Set overwrites key unconditionally with a TTL (used to promote
// PROCESSING to COMPLETED).
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *Client) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

var ErrNotFound = fmt.Errorf("cache: key not found")

var ownerCheckedDelete = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

var ownerCheckedExtend = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end
`)

// DeleteIfOwner deletes key only if its current value equals owner.
// Returns false if the key was absent or held by a different owner.
func (c *Client) DeleteIfOwner(ctx context.Context, key, owner string) (bool, error) {
	res, err := ownerCheckedDelete.Run(ctx, c.rdb, []string{key}, owner).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// ExtendIfOwner resets key's TTL only if its current value equals owner.
func (c *Client) ExtendIfOwner(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	res, err := ownerCheckedExtend.Run(ctx, c.rdb, []string{key}, owner, int64(ttl/time.Millisecond)).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// SlidingWindowCount purges entries older than window, records this call at
// `now`, and returns the number of entries within the window (including
// this one). Used for the per-user/per-IP rate limiter.
func (c *Client) SlidingWindowCount(ctx context.Context, key string, now time.Time, window time.Duration) (int64, error) {
	pipe := c.rdb.TxPipeline()
	cutoff := now.Add(-window).UnixMilli()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("(%d", cutoff))
	member := fmt.Sprintf("%d-%d", now.UnixNano(), now.Nanosecond())
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: member})
	count := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return count.Val(), nil
}
