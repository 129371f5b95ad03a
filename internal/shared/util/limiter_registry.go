package util

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LimiterRegistry throttles requests per key (the remote address of a browser
// tab posting devtools class usage) with one token bucket each. Buckets idle
// for longer than ttl are dropped.
type LimiterRegistry struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	ttl     time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewLimiterRegistry allows r requests per second per key with bursts of b.
// Idle buckets are swept until ctx ends.
func NewLimiterRegistry(ctx context.Context, r float64, b int, ttl time.Duration) *LimiterRegistry {
	reg := &LimiterRegistry{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(r),
		burst:   b,
		ttl:     ttl,
	}
	go reg.cleanupLoop(ctx)
	return reg
}

// Allow takes one token from the bucket of key.
func (r *LimiterRegistry) Allow(key string) bool {
	return r.get(key).Allow()
}

func (r *LimiterRegistry) get(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.buckets[key] = b
	}
	b.lastUsed = time.Now()
	return b.limiter
}

// Len returns the number of live buckets.
func (r *LimiterRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buckets)
}

func (r *LimiterRegistry) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(r.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(time.Now())
		}
	}
}

func (r *LimiterRegistry) sweep(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, b := range r.buckets {
		if now.Sub(b.lastUsed) > r.ttl {
			delete(r.buckets, key)
		}
	}
}
