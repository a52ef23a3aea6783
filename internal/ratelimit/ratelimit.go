// Package ratelimit paces outbound directory and search requests so the
// pipeline behaves like a polite crawler rather than a burst client.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter combines a token bucket with randomized inter-request jitter.
// The bucket caps sustained throughput while the jitter spreads requests
// inside each window so they do not land on source sites at fixed
// intervals.
type Limiter struct {
	bucket *rate.Limiter

	mu       sync.Mutex
	rng      *rand.Rand
	minDelay time.Duration
	maxDelay time.Duration
}

// New builds a Limiter whose sustained rate is one request per maxDelay
// with small bursts allowed. minDelay and maxDelay bound the random pause
// inserted before each request; maxDelay is raised to minDelay when the
// caller passes an inverted range.
func New(minDelay, maxDelay time.Duration) *Limiter {
	if minDelay < 0 {
		minDelay = 0
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	interval := maxDelay
	if interval <= 0 {
		interval = time.Millisecond
	}
	return &Limiter{
		bucket:   rate.NewLimiter(rate.Every(interval), 2),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

// Wait blocks for a jittered delay in [minDelay, maxDelay] and then for
// bucket admission. It returns early with the context error when ctx is
// cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.sleep(ctx, l.jitter()); err != nil {
		return err
	}
	return l.bucket.Wait(ctx)
}

// Backoff sleeps for an exponentially growing delay used between retry
// attempts: base jitter doubled per attempt, capped at eight times the
// configured maximum. attempt is zero-based.
func (l *Limiter) Backoff(ctx context.Context, attempt int) error {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 3 {
		attempt = 3
	}
	d := l.jitter() * (1 << uint(attempt))
	cap := l.maxDelay * 8
	if cap > 0 && d > cap {
		d = cap
	}
	return l.sleep(ctx, d)
}

func (l *Limiter) jitter() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	span := l.maxDelay - l.minDelay
	if span <= 0 {
		return l.minDelay
	}
	return l.minDelay + time.Duration(l.rng.Int63n(int64(span)))
}

func (l *Limiter) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
