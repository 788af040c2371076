package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"standup-tracker/internal/domain"
	"standup-tracker/internal/infra/metrics"
)

const lockPrefix = "standup:lock:"

// Снимаем блокировку, только если она всё ещё принадлежит нам.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker реализует domain.Locker через SET NX PX.
type RedisLocker struct {
	client *redis.Client
}

var _ domain.Locker = (*RedisLocker)(nil)

// NewRedisLocker создаёт межпроцессную блокировку.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

// TryLock пытается захватить ключ на ttl. Возвращённый unlock безопасно вызывать несколько раз.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if ttl <= 0 {
		return nil, false, errors.New("redis lock: ttl must be positive")
	}
	token := uuid.NewString()
	fullKey := lockPrefix + key

	start := time.Now()
	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	metrics.ObserveNetworkRequest("redis", "lock", "generation", start, err)
	if err != nil {
		return nil, false, fmt.Errorf("redis lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	released := false
	unlock := func() {
		if released {
			return
		}
		released = true
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		start := time.Now()
		err := releaseScript.Run(releaseCtx, l.client, []string{fullKey}, token).Err()
		if errors.Is(err, redis.Nil) {
			err = nil
		}
		metrics.ObserveNetworkRequest("redis", "unlock", "generation", start, err)
	}
	return unlock, true, nil
}
