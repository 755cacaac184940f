// Package ratelimit provides a Redis-backed sliding window rate limiter.
package ratelimit

import (
	"context"
	"time"
)

type Config struct {
	RequestsPerWindow int
	WindowSize        time.Duration
}

type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}
