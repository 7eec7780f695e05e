package handlers

import (
	"strings"
	"sync"
	"time"
)

type rateLimiter interface {
	Allow(key string) bool
}

// windowLimiter allows limit hits per key inside a fixed window. State is
// per instance, so each replica throttles on its own.
type windowLimiter struct {
	limit     int
	window    time.Duration
	clock     func() time.Time
	mu        sync.Mutex
	hits      map[string]windowHits
	lastPrune time.Time
}

type windowHits struct {
	count   int
	resetAt time.Time
}

func newSimpleRateLimiter(limit int, window time.Duration, clock func() time.Time) rateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &windowLimiter{
		limit:  limit,
		window: window,
		clock:  clock,
		hits:   make(map[string]windowHits),
	}
}

func (l *windowLimiter) Allow(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		key = "unknown"
	}
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastPrune) >= l.window {
		for k, h := range l.hits {
			if !now.Before(h.resetAt) {
				delete(l.hits, k)
			}
		}
		l.lastPrune = now
	}

	h, ok := l.hits[key]
	if !ok || !now.Before(h.resetAt) {
		l.hits[key] = windowHits{count: 1, resetAt: now.Add(l.window)}
		return true
	}
	if h.count >= l.limit {
		return false
	}
	h.count++
	l.hits[key] = h
	return true
}
