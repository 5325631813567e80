// cache содержит кэш отозванных сессий на Redis.
// Сессия (jti токена) помечается отозванной при logout и хранится
// до естественного истечения токена, после чего ключ удаляется по TTL.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionCache — минимальный контракт кэша отозванных сессий.
type SessionCache interface {
	// Revoke помечает сессию отозванной на ttl.
	Revoke(ctx context.Context, id string, ttl time.Duration) error
	// IsRevoked сообщает, отозвана ли сессия.
	IsRevoked(ctx context.Context, id string) (bool, error)
	// Close закрывает клиент Redis.
	Close() error
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "um:sess:".
func NewRedisCache(ctx context.Context, redisURL, prefix string) (SessionCache, error) {
	if prefix == "" {
		prefix = "um:sess:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return &redisCache{rdb: rdb, prefix: prefix}, nil
}

func (c *redisCache) key(id string) string { return c.prefix + id }

// Revoke: ttl <= 0 означает, что токен уже истёк и хранить нечего.
func (c *redisCache) Revoke(ctx context.Context, id string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	return c.rdb.Set(ctx, c.key(id), "1", ttl).Err()
}

func (c *redisCache) IsRevoked(ctx context.Context, id string) (bool, error) {
	err := c.rdb.Get(ctx, c.key(id)).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, err
	}
}

func (c *redisCache) Close() error { return c.rdb.Close() }
