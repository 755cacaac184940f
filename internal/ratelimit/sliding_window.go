package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// slidingWindowScript keeps one sorted-set entry per accepted request and
// answers {allowed, remaining, retry_after_ms}.
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local counter_key = KEYS[2]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_size_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local count = redis.call('ZCARD', key)

	if count < limit then
		local counter = redis.call('INCR', counter_key)
		redis.call('ZADD', key, now, now .. ':' .. counter)
		redis.call('PEXPIRE', key, window_size_ms)
		redis.call('PEXPIRE', counter_key, window_size_ms)
		return {1, limit - count - 1, 0}
	else
		local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
		local retry_after = 0
		if #oldest >= 2 then
			retry_after = oldest[2] + window_size_ms - now
		end
		return {0, 0, retry_after}
	end
`)

type SlidingWindowLimiter struct {
	client *redis.Client
	config Config
	prefix string
}

func NewSlidingWindowLimiter(client *redis.Client, config Config, prefix string) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{client: client, config: config, prefix: prefix}
}

func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	now := time.Now()
	redisKey := l.prefix + key

	result, err := slidingWindowScript.Run(ctx, l.client, []string{redisKey, redisKey + ":counter"},
		now.UnixMilli(),
		now.Add(-l.config.WindowSize).UnixMilli(),
		l.config.RequestsPerWindow,
		l.config.WindowSize.Milliseconds(),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	if len(result) < 3 {
		return nil, fmt.Errorf("unexpected result length: %d", len(result))
	}

	allowed, ok := result[0].(int64)
	if !ok {
		return nil, fmt.Errorf("unexpected type for allowed: %T", result[0])
	}
	remaining, ok := result[1].(int64)
	if !ok {
		return nil, fmt.Errorf("unexpected type for remaining: %T", result[1])
	}
	retryAfterMs, ok := result[2].(int64)
	if !ok {
		return nil, fmt.Errorf("unexpected type for retry_after: %T", result[2])
	}

	res := &Result{
		Allowed:   allowed == 1,
		Remaining: int(remaining),
		ResetAt:   now.Add(l.config.WindowSize),
	}
	if !res.Allowed && retryAfterMs > 0 {
		res.RetryAfter = time.Duration(retryAfterMs) * time.Millisecond
	}
	return res, nil
}
