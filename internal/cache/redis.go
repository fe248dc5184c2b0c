package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Belphemur/HlsGrab/internal/config"
	"github.com/redis/go-redis/v9"
)

// redisOpTimeout bounds every individual Redis command.
const redisOpTimeout = 2 * time.Second

func init() {
	Register(ProviderRedis, newRedisCache)
}

// redisCache stores each entry as a plain string key with a server-side TTL.
// Capacity is left to the server's maxmemory policy; Size is ignored.
type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func newRedisCache(cfg ProviderConfig) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &redisCache{client: client, ttl: cfg.TTL, prefix: cfg.KeyPrefix}, nil
}

func (r *redisCache) key(k string) string {
	return r.prefix + k
}

func (r *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger := config.GetLogger()
			logger.Error().Err(err).Str("key", key).Msg("Redis cache Get failed")
		}
		return nil, false
	}
	return val, true
}

func (r *redisCache) Set(ctx context.Context, key string, value []byte) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	if err := r.client.Set(ctx, r.key(key), value, r.ttl).Err(); err != nil {
		logger := config.GetLogger()
		logger.Error().Err(err).Str("key", key).Msg("Redis cache Set failed")
	}
}

func (r *redisCache) Contains(ctx context.Context, key string) bool {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	n, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		logger := config.GetLogger()
		logger.Error().Err(err).Str("key", key).Msg("Redis cache Contains failed")
		return false
	}
	return n > 0
}

// Len counts keys under the cache prefix with SCAN.
func (r *redisCache) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	count := 0
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		logger := config.GetLogger()
		logger.Error().Err(err).Msg("Redis cache Len failed")
		return 0
	}
	return count
}

func (r *redisCache) Close() error {
	return r.client.Close()
}
