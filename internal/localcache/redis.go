package localcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sysu-ecnc-dev/shift-board/backend/internal/config"
)

// RedisCache 把本地缓存放到 Redis 中
type RedisCache struct {
	client  *redis.Client
	timeout time.Duration
}

func NewRedisCache(cfg *config.Config) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	return &RedisCache{
		client:  rdb,
		timeout: time.Duration(cfg.Redis.OperationTimeout) * time.Second,
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	value, err := c.client.Get(ctx, c.cacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return value, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// 内容没有变化时跳过写入
	old, err := c.client.Get(ctx, c.cacheKey(key)).Bytes()
	if err == nil && bytes.Equal(old, value) {
		return nil
	}

	return c.client.Set(ctx, c.cacheKey(key), value, 0).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) cacheKey(key string) string {
	return "shift_board_cache_" + key
}
