package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for quota tracking.
var (
	rateLimitRemaining = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "twitter_rate_limit_remaining",
		Help: "REST calls remaining in the current rate limit window by resource",
	}, []string{"resource"})

	rateLimitExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twitter_rate_limit_exhausted_total",
		Help: "Total number of responses reporting an exhausted rate limit window",
	}, []string{"resource"})
)

// Store persists per-resource quota states.
type Store interface {
	Save(ctx context.Context, state QuotaState) error
	Load(ctx context.Context, resource string) (*QuotaState, error)
}

// Tracker records quotas reported by REST responses. The quota of the most
// recent call is kept in memory so it always belongs to this tracker, even
// when the store is shared.
type Tracker struct {
	store  Store
	logger zerolog.Logger

	mu   sync.RWMutex
	last Quota
}

// NewTracker creates a new tracker. A nil store keeps state in memory.
func NewTracker(store Store, logger zerolog.Logger) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Tracker{
		store:  store,
		logger: logger,
	}
}

// UpdateFromHeaders parses the rate limit headers of a REST response for
// resource and records the result as both the per-resource and the latest
// quota. Responses without usable headers are recorded as an empty quota, so
// Last always reflects the most recent REST call.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, resource string, headers http.Header) (Quota, error) {
	quota, parseErr := ParseQuota(headers)

	t.mu.Lock()
	t.last = quota
	t.mu.Unlock()

	state := QuotaState{
		Resource:  resource,
		Quota:     quota,
		UpdatedAt: time.Now(),
	}
	if err := t.store.Save(ctx, state); err != nil {
		return quota, errors.Join(parseErr, fmt.Errorf("store quota: %w", err))
	}
	if parseErr != nil {
		return quota, parseErr
	}

	if quota.Remaining != nil {
		rateLimitRemaining.WithLabelValues(resource).Set(float64(*quota.Remaining))
	}

	if quota.IsExhausted() {
		rateLimitExhaustedTotal.WithLabelValues(resource).Inc()
		t.logger.Warn().
			Str("resource", resource).
			Dur("reset_in", quota.TimeUntilReset()).
			Msg("Twitter rate limit window exhausted")
	} else if quota.Remaining != nil {
		t.logger.Debug().
			Str("resource", resource).
			Int("remaining", *quota.Remaining).
			Msg("Twitter rate limit state updated")
	}

	return quota, nil
}

// Last returns the quota of the most recent REST call recorded by this
// tracker, or an empty quota if none was recorded yet.
func (t *Tracker) Last() Quota {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// ForResource returns the last quota recorded for resource.
func (t *Tracker) ForResource(ctx context.Context, resource string) (Quota, error) {
	state, err := t.store.Load(ctx, resource)
	if err != nil {
		return Quota{}, fmt.Errorf("load quota: %w", err)
	}
	if state == nil {
		return Quota{}, nil
	}
	return state.Quota, nil
}

// MemoryStore keeps quota states in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]QuotaState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]QuotaState)}
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, state QuotaState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.Resource] = state
	return nil
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, resource string) (*QuotaState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[resource]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

// RedisStore shares quota states between processes through Redis.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis backed store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: redisClient}
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, state QuotaState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal quota state: %w", err)
	}

	if err := s.redis.Set(ctx, redisKey(state.Resource), data, 0).Err(); err != nil {
		return fmt.Errorf("store quota state in redis: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, resource string) (*QuotaState, error) {
	data, err := s.redis.Get(ctx, redisKey(resource)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var state QuotaState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse quota state: %w", err)
	}
	return &state, nil
}
