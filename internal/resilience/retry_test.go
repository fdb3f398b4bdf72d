package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{Attempts: attempts, Backoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "insert batch", fastPolicy(3), func(context.Context) error {
		calls++
		if calls < 3 {
			return errLookup
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_GivesUp(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "ping", fastPolicy(2), func(context.Context) error {
		calls++
		return errLookup
	})
	assert.ErrorIs(t, err, errLookup)
	assert.Equal(t, 2, calls)
}

func TestRetry_PermanentStops(t *testing.T) {
	calls := 0
	bad := errors.New("constraint violation")
	err := Retry(context.Background(), "insert batch", fastPolicy(5), func(context.Context) error {
		calls++
		return Permanent(bad)
	})
	assert.ErrorIs(t, err, bad)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, "ping", RetryPolicy{Attempts: 5, Backoff: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return errLookup
	})
	assert.ErrorIs(t, err, errLookup)
	assert.Equal(t, 1, calls)
}

func TestRetry_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = Retry(context.Background(), "ping", RetryPolicy{}, func(context.Context) error {
		calls++
		return errLookup
	})
	assert.Equal(t, 1, calls)
}

func TestPermanent_Nil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
	assert.False(t, IsPermanent(errLookup))
}
