// Package retry retries upstream calls that failed transiently.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy configures Do.
type Policy struct {
	// BaseDelay is the wait before the second attempt; it doubles after
	// every further attempt.
	BaseDelay time.Duration
	// MaxAttempts counts the first call.
	MaxAttempts int
}

const (
	// MaxAttempts caps Policy.MaxAttempts.
	MaxAttempts = 10
	// MaxDelay caps the wait between two attempts.
	MaxDelay = 5 * time.Minute
)

// DefaultPolicy waits 1s then 2s, for three attempts in total.
func DefaultPolicy() Policy {
	return Policy{BaseDelay: time.Second, MaxAttempts: 3}
}

// StatusError is an unexpected HTTP status from an upstream API.
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error { return e.Err }

// IsTransient reports whether err is worth retrying: a 5xx or 429 status.
func IsTransient(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
}

// Do calls op until it succeeds, fails with a non-transient error, the
// attempts are used up or ctx is done. The last error is returned.
func Do(ctx context.Context, p Policy, op func() error) error {
	p = p.clamped()
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.BaseDelay
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxInterval = p.longestWait()
	eb.MaxElapsedTime = 0
	eb.Reset()

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.MaxAttempts-1)), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

func (p Policy) clamped() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.MaxAttempts > MaxAttempts {
		p.MaxAttempts = MaxAttempts
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.BaseDelay > MaxDelay {
		p.BaseDelay = MaxDelay
	}
	return p
}

// longestWait is the wait before the last attempt, capped at MaxDelay.
func (p Policy) longestWait() time.Duration {
	d := p.BaseDelay
	for i := 2; i < p.MaxAttempts; i++ {
		if d >= MaxDelay/2 {
			return MaxDelay
		}
		d *= 2
	}
	return d
}

// Value is Do for operations that return a result.
func Value[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	var v T
	err := Do(ctx, p, func() error {
		var err error
		v, err = op()
		return err
	})
	return v, err
}
