package lockout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"eam/pkg/requestcontext"
)

const keyPrefix = "eam:login:failures:"

// InMemory keeps failure windows in process memory. Expired windows are
// dropped lazily on access.
type InMemory struct {
	mu      sync.Mutex
	windows map[string]window
}

type window struct {
	count   int
	resetAt time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{windows: make(map[string]window)}
}

func (s *InMemory) Failures(ctx context.Context, key string) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.live(ctx, key)
	if !ok {
		return 0, time.Time{}, nil
	}
	return w.count, w.resetAt, nil
}

func (s *InMemory) RecordFailure(ctx context.Context, key string, length time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.live(ctx, key)
	if !ok {
		w = window{resetAt: requestcontext.Now(ctx).Add(length)}
	}
	w.count++
	s.windows[key] = w
	return w.count, nil
}

func (s *InMemory) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

func (s *InMemory) live(ctx context.Context, key string) (window, bool) {
	w, ok := s.windows[key]
	if !ok {
		return window{}, false
	}
	if !requestcontext.Now(ctx).Before(w.resetAt) {
		delete(s.windows, key)
		return window{}, false
	}
	return w, true
}

// Redis shares failure windows between replicas: INCR plus an expiry set
// on the first failure.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (s *Redis) Failures(ctx context.Context, key string) (int, time.Time, error) {
	pipe := s.client.Pipeline()
	get := pipe.Get(ctx, keyPrefix+key)
	ttl := pipe.PTTL(ctx, keyPrefix+key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, time.Time{}, fmt.Errorf("read login failures: %w", err)
	}
	n, err := get.Int()
	if errors.Is(err, redis.Nil) {
		return 0, time.Time{}, nil
	}
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("read login failures: %w", err)
	}
	return n, requestcontext.Now(ctx).Add(max(ttl.Val(), 0)), nil
}

func (s *Redis) RecordFailure(ctx context.Context, key string, length time.Duration) (int, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, keyPrefix+key)
	pipe.ExpireNX(ctx, keyPrefix+key, length)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("record login failure: %w", err)
	}
	return int(incr.Val()), nil
}

func (s *Redis) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("clear login failures: %w", err)
	}
	return nil
}
