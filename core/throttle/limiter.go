// Package throttle provides the token bucket shared by every worker for outbound calls
// to the profiling and indexing services.
package throttle

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// Config holds rate limit settings.
type Config struct {
	// RequestsPerSecond is the sustained rate (tokens added per second). Zero disables limiting.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" default:"10"`
	// Burst is the bucket size.
	Burst int `mapstructure:"burst" default:"5"`
}

// Limiter gates remote calls. It is safe for concurrent use.
type Limiter struct {
	bucket   *rate.Limiter
	inFlight atomic.Int64
	peak     atomic.Int64
	total    atomic.Int64
}

// New creates a limiter from cfg.
func New(cfg Config) *Limiter {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{bucket: rate.NewLimiter(limit, burst)}
}

// Unlimited returns a limiter that never waits but still tracks in-flight calls.
func Unlimited() *Limiter {
	return New(Config{})
}

// Do waits for a token, then runs fn while counting it as in flight.
func (l *Limiter) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := l.bucket.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	n := l.inFlight.Add(1)
	defer l.inFlight.Add(-1)
	l.total.Add(1)
	for {
		p := l.peak.Load()
		if n <= p || l.peak.CompareAndSwap(p, n) {
			break
		}
	}

	return fn(ctx)
}

// Call is Do for calls returning a value.
func Call[T any](ctx context.Context, l *Limiter, fn func(context.Context) (T, error)) (T, error) {
	var res T
	err := l.Do(ctx, func(ctx context.Context) error {
		var err error
		res, err = fn(ctx)
		return err
	})
	return res, err
}

// InFlight returns the number of calls currently running.
func (l *Limiter) InFlight() int64 { return l.inFlight.Load() }

// Peak returns the highest number of simultaneous calls observed.
func (l *Limiter) Peak() int64 { return l.peak.Load() }

// Total returns the number of calls started.
func (l *Limiter) Total() int64 { return l.total.Load() }
