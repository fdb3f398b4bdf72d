package resilience

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy bounds how often and how patiently an operation is retried.
type RetryPolicy struct {
	Attempts   int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// DefaultRetryPolicy makes three attempts, doubling from 250ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Backoff: 250 * time.Millisecond, MaxBackoff: 5 * time.Second}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err, or an error it wraps, was marked Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Retry runs fn until it succeeds, returns a Permanent error, the attempts
// are used up or ctx is done. The last error from fn is returned.
func Retry(ctx context.Context, op string, p RetryPolicy, fn func(context.Context) error) error {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	delay := p.Backoff

	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil || IsPermanent(err) || ctx.Err() != nil || attempt >= p.Attempts {
			return err
		}

		zap.L().Warn("resilience: retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}

		delay *= 2
		if p.MaxBackoff > 0 && delay > p.MaxBackoff {
			delay = p.MaxBackoff
		}
	}
}
