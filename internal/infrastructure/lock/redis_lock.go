package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"NewsDesk/internal/config"
	"NewsDesk/internal/ports"
)

const (
	defaultKey = "newsdesk:pipeline:run"
	defaultTTL = 3 * time.Hour
)

// ErrLockNotHeld is returned by Unlock when the key expired or belongs to another holder.
var ErrLockNotHeld = errors.New("lock not held")

var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// RedisLock is a single-key run lock shared by every process that points at the same Redis.
type RedisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration

	mu    sync.Mutex
	token string
}

var _ ports.RunLock = (*RedisLock)(nil)

// NewClient builds a go-redis client from configuration.
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewRedisLock wraps client; empty key and zero ttl fall back to defaults.
func NewRedisLock(client *redis.Client, key string, ttl time.Duration) *RedisLock {
	if key == "" {
		key = defaultKey
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisLock{client: client, key: key, ttl: ttl}
}

// TryLock acquires the key without blocking. The ttl bounds how long a crashed
// holder can keep other processes out.
func (l *RedisLock) TryLock(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", l.key, err)
	}
	if ok {
		l.mu.Lock()
		l.token = token
		l.mu.Unlock()
	}
	return ok, nil
}

// Unlock deletes the key only if this instance still owns it.
func (l *RedisLock) Unlock(ctx context.Context) error {
	l.mu.Lock()
	token := l.token
	l.token = ""
	l.mu.Unlock()

	if token == "" {
		return ErrLockNotHeld
	}

	result, err := unlockScript.Run(ctx, l.client, []string{l.key}, token).Int()
	if err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	return nil
}
