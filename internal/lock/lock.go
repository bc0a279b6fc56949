// Package lock keeps two runs of the same hunt from overlapping.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned when the lock is already held by someone else.
var ErrHeld = errors.New("lock is held")

// Locker acquires named locks. The returned release func is idempotent.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Local is an in-process Locker for single-instance deployments.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocal returns an empty in-process Locker.
func NewLocal() *Local {
	return &Local{held: map[string]struct{}{}}
}

// Acquire takes key or returns ErrHeld.
func (l *Local) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, ErrHeld
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}

// releaseScript deletes the key only if it still carries our token, so an
// expired lock taken over by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every instance pointed at the same Redis.
type Redis struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis creates a Redis Locker. Locks expire after ttl so a crashed run
// cannot block its hunt forever.
func NewRedis(rc *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{rc: rc, prefix: prefix, ttl: ttl}
}

// Acquire takes key with SET NX or returns ErrHeld.
func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	full := r.prefix + key
	token := uuid.NewString()

	ok, err := r.rc.SetNX(ctx, full, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", full, err)
	}
	if !ok {
		return nil, ErrHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = releaseScript.Run(context.Background(), r.rc, []string{full}, token).Err()
		})
	}, nil
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}
