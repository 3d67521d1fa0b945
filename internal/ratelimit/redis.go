package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter implements Limiter on a Redis sorted set per key, scored by
// attempt time, so multiple server replicas share one window. Callers should
// treat a returned error as "store unreachable" and degrade locally rather
// than failing the request.
type RedisLimiter struct {
	client *redis.Client
	cfg    Config
	now    func() time.Time
}

// NewRedisLimiter creates a sliding-window limiter backed by Redis.
func NewRedisLimiter(client *redis.Client, cfg Config) *RedisLimiter {
	return &RedisLimiter{client: client, cfg: cfg, now: time.Now}
}

// Allow prunes entries older than the trailing window, records the attempt
// as a provisional member, and counts the result, all in one MULTI pipeline
// so concurrent checks on the same key serialize in Redis. When the count
// including the provisional member exceeds MaxAttempts the member is removed
// again; the removal happening after the pipeline can only make a later
// concurrent check stricter, never admit past the limit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now()
	cutoff := now.Add(-l.cfg.Window)
	member := uuid.NewString()

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff.UnixNano(), 10))
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: member,
	})
	countCmd := pipe.ZCard(ctx, key)
	oldestCmd := pipe.ZRangeWithScores(ctx, key, 0, 0)
	pipe.Expire(ctx, key, l.cfg.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	count := int(countCmd.Val())
	if count > l.cfg.MaxAttempts {
		if err := l.client.ZRem(ctx, key, member).Err(); err != nil {
			return Result{}, err
		}
		retryAfter := l.cfg.Window
		if oldest := oldestCmd.Val(); len(oldest) > 0 {
			oldestAt := time.Unix(0, int64(oldest[0].Score))
			retryAfter = oldestAt.Add(l.cfg.Window).Sub(now)
		}
		return Result{Allowed: false, Remaining: 0, RetryAfter: retryAfter}, nil
	}

	return Result{Allowed: true, Remaining: l.cfg.MaxAttempts - count}, nil
}

var _ Limiter = (*RedisLimiter)(nil)
