package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is the single-process sliding window used when no Redis is
// configured. It keeps the accepted request times of each key and drops
// idle keys once per window.
type MemoryLimiter struct {
	config Config
	now    func() time.Time

	mu        sync.Mutex
	hits      map[string][]time.Time
	nextSweep time.Time
}

func NewMemoryLimiter(config Config) *MemoryLimiter {
	return &MemoryLimiter{config: config, now: time.Now, hits: make(map[string][]time.Time)}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (*Result, error) {
	now := l.now()
	windowStart := now.Add(-l.config.WindowSize)

	l.mu.Lock()
	defer l.mu.Unlock()

	if !now.Before(l.nextSweep) {
		l.sweep(windowStart)
		l.nextSweep = now.Add(l.config.WindowSize)
	}

	hits := l.hits[key]
	i := 0
	for i < len(hits) && !hits[i].After(windowStart) {
		i++
	}
	hits = hits[i:]

	res := &Result{ResetAt: now.Add(l.config.WindowSize)}
	if len(hits) < l.config.RequestsPerWindow {
		hits = append(hits, now)
		res.Allowed = true
		res.Remaining = l.config.RequestsPerWindow - len(hits)
	} else {
		res.RetryAfter = hits[0].Add(l.config.WindowSize).Sub(now)
	}

	if len(hits) == 0 {
		delete(l.hits, key)
	} else {
		l.hits[key] = hits
	}
	return res, nil
}

// sweep forgets every key with no hit inside the current window.
func (l *MemoryLimiter) sweep(windowStart time.Time) {
	for key, hits := range l.hits {
		if len(hits) == 0 || !hits[len(hits)-1].After(windowStart) {
			delete(l.hits, key)
		}
	}
}
