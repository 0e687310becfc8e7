// Package lock provides the per-kind mutual exclusion for sync jobs. Redis
// is used when configured so that several replicas share one lock; otherwise
// the lock lives in process memory.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"eam/pkg/platform/sentinel"
)

const keyPrefix = "eam:sync:lock:"

// ErrLost is returned by Lease.Extend once the lease expired and the name
// is no longer held under its token.
var ErrLost = errors.New("sync lock lost")

// Locker acquires named locks. Acquire returns sentinel.ErrLocked when the
// name is held by someone else.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (Lease, error)
}

// Lease is a held lock. Release is idempotent and never frees a name that
// has since been taken by another holder.
type Lease interface {
	Extend(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context) error
}

// Redis implements Locker with SET NX and a token checked on extend and release.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

func (l *Redis) Acquire(ctx context.Context, name string, ttl time.Duration) (Lease, error) {
	key := keyPrefix + name
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, sentinel.ErrLocked
	}
	return &redisLease{client: l.client, name: name, key: key, token: token}, nil
}

type redisLease struct {
	client *redis.Client
	name   string
	key    string
	token  string
	once   sync.Once
}

func (l *redisLease) Extend(ctx context.Context, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.client, []string{l.key}, l.token, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", l.name, err)
	}
	if n == 0 {
		return ErrLost
	}
	return nil
}

func (l *redisLease) Release(ctx context.Context) error {
	var err error
	l.once.Do(func() {
		err = releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
	})
	if err != nil {
		return fmt.Errorf("release lock %s: %w", l.name, err)
	}
	return nil
}

// Local implements Locker in process memory. Each holder's ttl decides when
// its own entry expires; a zero ttl never expires.
type Local struct {
	mu    sync.Mutex
	held  map[string]localEntry
	clock func() time.Time
}

type localEntry struct {
	token   string
	expires time.Time
}

func (e localEntry) live(now time.Time) bool {
	return e.expires.IsZero() || now.Before(e.expires)
}

func NewLocal() *Local {
	return &Local{held: make(map[string]localEntry), clock: time.Now}
}

func (l *Local) Acquire(_ context.Context, name string, ttl time.Duration) (Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock()
	if e, ok := l.held[name]; ok && e.live(now) {
		return nil, sentinel.ErrLocked
	}
	token := uuid.NewString()
	l.held[name] = localEntry{token: token, expires: expiry(now, ttl)}
	return &localLease{owner: l, name: name, token: token}, nil
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

type localLease struct {
	owner *Local
	name  string
	token string
}

func (l *localLease) Extend(_ context.Context, ttl time.Duration) error {
	l.owner.mu.Lock()
	defer l.owner.mu.Unlock()
	e, ok := l.owner.held[l.name]
	if !ok || e.token != l.token {
		return ErrLost
	}
	e.expires = expiry(l.owner.clock(), ttl)
	l.owner.held[l.name] = e
	return nil
}

func (l *localLease) Release(context.Context) error {
	l.owner.mu.Lock()
	defer l.owner.mu.Unlock()
	if e, ok := l.owner.held[l.name]; ok && e.token == l.token {
		delete(l.owner.held, l.name)
	}
	return nil
}
