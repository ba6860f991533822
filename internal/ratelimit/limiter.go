// Package ratelimit serializes outbound provider calls with a minimum interval.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Clock is the time source the limiter reserves against and sleeps on.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Limiter wraps rate.Limiter with a name for logging/debugging.
type Limiter struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	limit    rate.Limit
	name     string
	interval time.Duration
	clock    Clock
}

// Option is a functional option for configuring the Limiter.
type Option func(*Limiter)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(l *Limiter) {
		if c != nil {
			l.clock = c
		}
	}
}

// New creates a limiter that lets one call through per interval. The first
// call never waits. A non-positive interval disables throttling.
func New(name string, interval time.Duration, opts ...Option) *Limiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	l := &Limiter{
		limiter:  rate.NewLimiter(limit, 1),
		limit:    limit,
		name:     name,
		interval: interval,
		clock:    realClock{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Wait blocks until at least the interval has passed since the previous
// call was let through, or since it finished if Done was called. Returns an
// error if the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	now := l.clock.Now()
	l.mu.Lock()
	r := l.limiter.ReserveN(now, 1)
	l.mu.Unlock()
	if !r.OK() {
		return fmt.Errorf("rate limit wait for %s: reservation refused", l.name)
	}

	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}

	slog.Debug("Throttling provider call", "limiter", l.name, "delay", delay)
	if err := l.clock.Sleep(ctx, delay); err != nil {
		r.CancelAt(l.clock.Now())
		return fmt.Errorf("rate limit wait for %s: %w", l.name, err)
	}
	return nil
}

// Done marks the end of the call let through by the last Wait. The next call
// waits a full interval from now, so slow calls do not eat into the spacing.
func (l *Limiter) Done() {
	if l.limit == rate.Inf {
		return
	}
	now := l.clock.Now()
	fresh := rate.NewLimiter(l.limit, 1)
	fresh.ReserveN(now, 1)

	l.mu.Lock()
	l.limiter = fresh
	l.mu.Unlock()
}

// Name returns the name of this rate limiter.
func (l *Limiter) Name() string {
	return l.name
}

// Interval returns the configured minimum spacing between calls.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}
