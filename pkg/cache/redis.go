package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements Store on a single Redis node.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects and pings the server.
func NewRedisCache(ctx context.Context, opts ...RedisOption) (*RedisCache, error) {
	cfg := defaultRedisConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	ro := &redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	}
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("redis url: %w", err)
		}
		parsed.PoolSize = cfg.PoolSize
		parsed.DialTimeout = cfg.DialTimeout
		ro = parsed
	}
	client := redis.NewClient(ro)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", ro.Addr, err)
	}

	return &RedisCache{client: client, prefix: cfg.Prefix}, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetMany reads all keys with one MGET.
func (c *RedisCache) GetMany(ctx context.Context, keys ...string) ([][]byte, error) {
	vals, err := c.client.MGet(ctx, c.wrap(keys)...).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			return nil, ErrCacheMiss
		}
		out[i] = []byte(s)
	}
	return out, nil
}

// SetMany writes all entries in one MULTI/EXEC so readers never see half a group.
func (c *RedisCache) SetMany(ctx context.Context, entries map[string][]byte, expiration time.Duration) error {
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for k, v := range entries {
			p.Set(ctx, Key(c.prefix, k), v, expiration)
		}
		return nil
	})
	return err
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Unlink(ctx, c.wrap(keys)...).Err()
}

func (c *RedisCache) wrap(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = Key(c.prefix, k)
	}
	return out
}
