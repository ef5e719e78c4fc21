// Package lease provides mutual exclusion for check cycles.
package lease

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Local guards cycles within one process.
type Local struct {
	mu sync.Mutex
}

func NewLocal() *Local { return &Local{} }

// Acquire reports false when a cycle already holds the lease.
func (l *Local) Acquire(_ context.Context) (func(), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	return l.mu.Unlock, true, nil
}

var release = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// Redis guards cycles across processes sharing one Redis. The key expires after ttl
// so a crashed holder cannot block cycles forever.
type Redis struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func NewRedis(rdb *redis.Client, key string, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, key: key, ttl: ttl}
}

func (r *Redis) Acquire(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := r.rdb.SetNX(ctx, r.key, token, r.ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}

	return func() {
		_ = release.Run(context.WithoutCancel(ctx), r.rdb, []string{r.key}, token).Err()
	}, true, nil
}
