package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SlidingWindow implements a sliding window rate limiter backed by Redis
// sorted sets, shared by every API replica.
type SlidingWindow struct {
	Client *redis.Client
	Prefix string
}

// Allow registers an event for the given key and returns whether it is within the limit.
func (l SlidingWindow) Allow(ctx context.Context, key string, window time.Duration, max int) (allowed bool, remaining int, reset time.Time, err error) {
	if l.Client == nil || max <= 0 || window <= 0 {
		return true, max, time.Now().Add(window), nil
	}

	now := time.Now()
	cutoff := now.Add(-window).UnixMicro()

	redisKey := l.Prefix + key
	member := fmt.Sprintf("%d:%s", now.UnixMicro(), uuid.NewString())

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", strconv.FormatInt(cutoff, 10))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixMicro()), Member: member})
	countCmd := pipe.ZCard(ctx, redisKey)
	oldestCmd := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	pipe.PExpire(ctx, redisKey, window)
	if _, err = pipe.Exec(ctx); err != nil {
		return false, 0, now.Add(window), err
	}

	reset = now.Add(window)
	if oldest := oldestCmd.Val(); len(oldest) > 0 {
		reset = time.UnixMicro(int64(oldest[0].Score)).Add(window)
	}
	current := int(countCmd.Val())
	if current > max {
		// rejected hits must not extend the caller's penalty
		if err := l.Client.ZRem(ctx, redisKey, member).Err(); err != nil {
			return false, 0, reset, err
		}
		return false, 0, reset, nil
	}
	return true, max - current, reset, nil
}
