package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy describes how a remote call is retried.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	// BaseDelay is the delay before the second attempt.
	BaseDelay time.Duration
	// MaxDelay caps the delay between attempts.
	MaxDelay time.Duration
	// Jitter is the randomization factor applied to every delay (0..1).
	Jitter float64
	// Retryable decides whether an error is retried. Defaults to IsTransient.
	Retryable func(error) bool
	// OnRetry is called before sleeping between attempts.
	OnRetry func(err error, wait time.Duration)
}

// Config is the configurable part of a Policy.
type Config struct {
	MaxAttempts int           `mapstructure:"max_attempts" default:"3"`
	BaseDelay   time.Duration `mapstructure:"base_delay" default:"200ms"`
	MaxDelay    time.Duration `mapstructure:"max_delay" default:"5s"`
	Jitter      float64       `mapstructure:"jitter" default:"0.2"`
}

// Policy returns a policy retrying transient errors as configured.
// Zero fields fall back to DefaultPolicy.
func (c Config) Policy() Policy {
	p := DefaultPolicy()
	if c.MaxAttempts > 0 {
		p.MaxAttempts = c.MaxAttempts
	}
	if c.BaseDelay > 0 {
		p.BaseDelay = c.BaseDelay
	}
	if c.MaxDelay > 0 {
		p.MaxDelay = c.MaxDelay
	}
	if c.Jitter > 0 && c.Jitter <= 1 {
		p.Jitter = c.Jitter
	}
	return p
}

// DefaultPolicy retries transient errors three times with exponential backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Jitter:      0.2,
		Retryable:   IsTransient,
	}
}

// BackOff builds the exponential backoff described by the policy.
func (p Policy) BackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if p.BaseDelay > 0 {
		b.InitialInterval = p.BaseDelay
	}
	if p.MaxDelay > 0 {
		b.MaxInterval = p.MaxDelay
	}
	b.RandomizationFactor = p.Jitter
	b.Multiplier = 2
	return b
}

// Run executes op until it succeeds, returns a non-retryable error, or attempts run out.
// The error of the last attempt is returned unchanged so its Kind survives.
func Run[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(p.BackOff()),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithMaxElapsedTime(0),
	}
	if p.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(p.OnRetry))
	}

	return backoff.Retry(ctx, func() (T, error) {
		res, err := op()
		if err != nil && !retryable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}, opts...)
}

// Do is Run for operations without a result.
func Do(ctx context.Context, p Policy, op func() error) error {
	_, err := Run(ctx, p, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}
