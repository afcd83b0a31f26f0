package eligibility

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisLookupKeyPrefix = "trialgate:lookup:"

// RedisCache persists lookup results in Redis with TTL-based eviction,
// sharing the cache across replicas.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache constructs a Redis-backed lookup cache.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

// Get loads a cached lookup result. Redis failures degrade to a miss.
func (c *RedisCache) Get(ctx context.Context, ip string) (*LookupResult, bool) {
	data, err := c.client.Get(ctx, redisLookupKeyPrefix+ip).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("lookup cache read failed", "ip", ip, "error", err)
		}
		return nil, false
	}
	var result LookupResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn("lookup cache entry undecodable", "ip", ip, "error", err)
		return nil, false
	}
	return &result, true
}

// Set writes a lookup result with TTL eviction. Failures are logged and
// dropped; the cache is an optimization, not a source of truth.
func (c *RedisCache) Set(ctx context.Context, ip string, result *LookupResult) {
	if result == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("lookup cache encode failed", "ip", ip, "error", err)
		return
	}
	if err := c.client.Set(ctx, redisLookupKeyPrefix+ip, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("lookup cache write failed", "ip", ip, "error", err)
	}
}
