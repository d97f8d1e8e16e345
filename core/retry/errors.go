package retry

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an error for retry and reporting purposes.
type Kind string

const (
	KindConfig    Kind = "config"
	KindTransient Kind = "transient"
	KindPermanent Kind = "permanent"
)

// Error attaches a Kind to an underlying error.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Transient marks err as retryable.
func Transient(err error) error { return wrap(KindTransient, err) }

// Permanent marks err as not retryable.
func Permanent(err error) error { return wrap(KindPermanent, err) }

// ConfigError marks err as a configuration error.
func ConfigError(err error) error { return wrap(KindConfig, err) }

// KindOf returns the kind of err. Context errors are permanent, unknown errors transient.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindPermanent
	}
	return KindTransient
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool { return KindOf(err) == KindTransient }

// IsPermanent reports whether err must not be retried.
func IsPermanent(err error) bool { return KindOf(err) == KindPermanent }

// IsConfig reports whether err is a configuration error.
func IsConfig(err error) bool { return KindOf(err) == KindConfig }
