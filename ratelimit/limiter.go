// Package ratelimit paces deliveries per destination webhook so that one
// burst of domain events cannot flood a subscriber.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key. A zero Limiter rate means
// unlimited and every call returns immediately.
type Limiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// New creates a limiter allowing perSecond events per key with the given
// burst. perSecond <= 0 disables limiting. burst < 1 defaults to
// ceil(perSecond).
func New(perSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = int(perSecond)
		if float64(burst) < perSecond {
			burst++
		}
		if burst < 1 {
			burst = 1
		}
	}
	return &Limiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		buckets: make(map[string]*rate.Limiter),
	}
}

// Unlimited reports whether the limiter never blocks.
func (l *Limiter) Unlimited() bool {
	return l == nil || l.limit <= 0
}

// Allow consumes a token for key if one is available.
func (l *Limiter) Allow(key string) bool {
	if l.Unlimited() {
		return true
	}
	return l.bucket(key).Allow()
}

// Wait blocks until key may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	if l.Unlimited() {
		return nil
	}
	return l.bucket(key).Wait(ctx)
}

// Forget drops the bucket for key, e.g. after its webhook is deleted.
func (l *Limiter) Forget(key string) {
	if l.Unlimited() {
		return
	}
	l.mu.Lock()
	delete(l.buckets, key)
	l.mu.Unlock()
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = b
	}
	return b
}
