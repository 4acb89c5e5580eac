package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"veriterra/internal/verification/ports"
	id "veriterra/pkg/domain"
	"veriterra/pkg/platform/sentinel"
)

const lockKeyPrefix = "verification:lock:"

// defaultLeaseTTL bounds how long a crashed run can hold a project
// before the lease expires on its own.
const defaultLeaseTTL = 5 * time.Minute

// releaseScript deletes the lock only if the stored token matches, so a
// run whose lease expired cannot release a successor's lock.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// RedisLocker is a Redis-backed project locker for multi-instance
// deployments. Each acquisition holds a token-fenced lease with a TTL.
type RedisLocker struct {
	client   *redis.Client
	leaseTTL time.Duration
}

// RedisLockerOption configures a RedisLocker.
type RedisLockerOption func(*RedisLocker)

// WithLeaseTTL overrides the default lease duration.
func WithLeaseTTL(ttl time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		if ttl > 0 {
			l.leaseTTL = ttl
		}
	}
}

// NewRedis constructs a Redis-backed project locker.
func NewRedis(client *redis.Client, opts ...RedisLockerOption) *RedisLocker {
	locker := &RedisLocker{
		client:   client,
		leaseTTL: defaultLeaseTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(locker)
		}
	}
	return locker
}

func (l *RedisLocker) Acquire(ctx context.Context, projectID id.ProjectID) (ports.ReleaseFunc, error) {
	key := lockKeyPrefix + projectID.String()
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, key, token, l.leaseTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire project lock: %w", err)
	}
	if !acquired {
		return nil, sentinel.ErrConflict
	}

	var once sync.Once
	var releaseErr error
	release := func(ctx context.Context) error {
		once.Do(func() {
			if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
				releaseErr = fmt.Errorf("release project lock: %w", err)
			}
		})
		return releaseErr
	}
	return release, nil
}
