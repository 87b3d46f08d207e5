// Package idempotency implements request deduplication: a client-key-scoped
// PROCESSING/COMPLETED protocol over the shared cache. The key comes from
// the caller's Idempotency-Key header rather than being derived from the
// request body, so two different operations can never collide on a key and
// a client controls exactly which retries are treated as duplicates.
package idempotency

import (
	"context"
	"encoding/json"
	"time"

	"paymentgw/internal/cache"
)

const (
	processingTTL = 60 * time.Second
	completedTTL  = 24 * time.Hour
	keyPrefix     = "idempotency:"
)

type State string

const (
	StateNone       State = "NONE"
	StateProcessing State = "PROCESSING"
	StateCompleted  State = "COMPLETED"
)

// Record is what gets cached for a COMPLETED key: enough to replay the
// original response verbatim.
type Record struct {
	StatusCode int                 `json:"status_code"`
	Headers    map[string]string   `json:"headers"`
	Body       json.RawMessage     `json:"body"`
	ResourceID string              `json:"resource_id,omitempty"`
}

type cachedValue struct {
	State  State   `json:"state"`
	Record *Record `json:"record,omitempty"`
}

type Service struct {
	cache *cache.Client
}

func New(c *cache.Client) *Service {
	return &Service{cache: c}
}

func cacheKey(clientKey string) string { return keyPrefix + clientKey }

// AcquireLock installs the PROCESSING sentinel if absent. Returns true iff
// the caller is first to hold the key.
func (s *Service) AcquireLock(ctx context.Context, clientKey string) (bool, error) {
	v, err := json.Marshal(cachedValue{State: StateProcessing})
	if err != nil {
		return false, err
	}
	return s.cache.SetIfAbsent(ctx, cacheKey(clientKey), string(v), processingTTL)
}

// CheckExisting reads the current value and reports its state. When
// COMPLETED, the cached Record is returned for verbatim replay.
func (s *Service) CheckExisting(ctx context.Context, clientKey string) (State, *Record, error) {
	raw, err := s.cache.Get(ctx, cacheKey(clientKey))
	if err == cache.ErrNotFound {
		return StateNone, nil, nil
	}
	if err != nil {
		return StateNone, nil, err
	}
	var v cachedValue
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return StateNone, nil, err
	}
	return v.State, v.Record, nil
}

// SaveResponse overwrites the key with a COMPLETED record, extending its
// TTL to 24h.
func (s *Service) SaveResponse(ctx context.Context, clientKey string, record Record) error {
	v, err := json.Marshal(cachedValue{State: StateCompleted, Record: &record})
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, cacheKey(clientKey), string(v), completedTTL)
}

// ReleaseLock deletes the key so the client may retry; used whenever the
// handler's response indicates failure.
func (s *Service) ReleaseLock(ctx context.Context, clientKey string) error {
	return s.cache.Delete(ctx, cacheKey(clientKey))
}
