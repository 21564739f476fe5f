package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld indicates another owner currently holds the lock.
var ErrLockHeld = errors.New("shared: lock held")

// JobLockKey builds the redis key guarding a single-flight background job.
func JobLockKey(task string) string {
	return fmt.Sprintf("peopledesk:job:%s:lock", task)
}

// releaseScript deletes the key only while it still carries the owner token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker hands out expiring locks stored in Redis.
type RedisLocker struct {
	client redis.UniversalClient
}

// NewRedisLocker constructs a locker on client.
func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client}
}

// Acquire takes key for at most ttl. It returns ErrLockHeld when someone else
// owns the key. The release func is a no-op once the lock has expired and been
// taken by another owner.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	if l == nil || l.client == nil {
		return nil, errors.New("shared: locker not initialised")
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("shared: acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}, nil
}
