package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/you/branchauth/domain"
	"github.com/you/branchauth/internal/config"
)

// RedisLimiter implements domain.RateLimiter with a fixed window per
// (purpose, origin, identity) key. It fails open on Redis errors.
type RedisLimiter struct {
	client *redis.Client
	limits map[string]config.Limit
	logger *zap.Logger
}

// NewRedisLimiter creates a new fixed-window rate limiter
func NewRedisLimiter(client *redis.Client, limits map[string]config.Limit, logger *zap.Logger) domain.RateLimiter {
	return &RedisLimiter{
		client: client,
		limits: limits,
		logger: logger,
	}
}

// Allow implements domain.RateLimiter
func (l *RedisLimiter) Allow(ctx context.Context, purpose, origin, identity string) (bool, time.Duration, error) {
	limit, ok := l.limits[purpose]
	if !ok || limit.Count <= 0 {
		return true, 0, nil
	}

	key := fmt.Sprintf("rl:%s:%s:%s", purpose, origin, strings.ToLower(identity))

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.logger.Error("rate limiter unavailable, allowing request",
			zap.String("purpose", purpose), zap.Error(err))
		return true, 0, nil
	}

	if count == 1 {
		if err := l.client.Expire(ctx, key, limit.Window).Err(); err != nil {
			l.logger.Error("failed to set rate limit window", zap.String("key", key), zap.Error(err))
		}
	}

	if count <= int64(limit.Count) {
		return true, 0, nil
	}

	ttl, err := l.client.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		// A key without a TTL would deny forever. Re-arm the window so
		// the denial expires with it.
		if err := l.client.Expire(ctx, key, limit.Window).Err(); err != nil {
			l.logger.Error("failed to repair rate limit window", zap.String("key", key), zap.Error(err))
		}
		ttl = limit.Window
	}
	return false, ttl, nil
}
