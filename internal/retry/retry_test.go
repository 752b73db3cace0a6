package retry_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/gitpulse/internal/domain"
	"github.com/waabox/gitpulse/internal/retry"
)

var fast = retry.Policy{BaseDelay: time.Millisecond, MaxAttempts: 3}

func TestIsTransient(t *testing.T) {
	assert.True(t, retry.IsTransient(&retry.StatusError{StatusCode: http.StatusBadGateway}))
	assert.True(t, retry.IsTransient(&retry.StatusError{StatusCode: http.StatusTooManyRequests}))
	assert.True(t, retry.IsTransient(fmt.Errorf("listing runs: %w", &retry.StatusError{StatusCode: 503})))
	assert.False(t, retry.IsTransient(&retry.StatusError{StatusCode: http.StatusNotFound}))
	assert.False(t, retry.IsTransient(errors.New("boom")))
}

func TestDo_RetriesTransientUntilSuccess(t *testing.T) {
	calls := 0

	err := retry.Do(context.Background(), fast, func() error {
		calls++
		if calls < 3 {
			return &retry.StatusError{StatusCode: 502}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0

	err := retry.Do(context.Background(), fast, func() error {
		calls++
		return &retry.StatusError{StatusCode: 500}
	})

	require.Error(t, err)
	assert.True(t, retry.IsTransient(err))
	assert.Equal(t, 3, calls)
}

func TestDo_DoesNotRetryOtherErrors(t *testing.T) {
	calls := 0

	err := retry.Do(context.Background(), fast, func() error {
		calls++
		return fmt.Errorf("fetching: %w", domain.ErrUnauthorized)
	})

	require.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, 1, calls)
}

func TestDo_CapsAttempts(t *testing.T) {
	calls := 0

	err := retry.Do(context.Background(), retry.Policy{BaseDelay: time.Microsecond, MaxAttempts: 1000}, func() error {
		calls++
		return &retry.StatusError{StatusCode: 503}
	})

	require.Error(t, err)
	assert.Equal(t, retry.MaxAttempts, calls)
}

func TestDo_HugePolicyStillHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := retry.Do(ctx, retry.Policy{BaseDelay: 1000 * time.Hour, MaxAttempts: 64}, func() error {
		calls++
		cancel()
		return &retry.StatusError{StatusCode: 503}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_NonPositiveDelayRetriesWithoutWaiting(t *testing.T) {
	calls := 0

	err := retry.Do(context.Background(), retry.Policy{BaseDelay: -time.Second, MaxAttempts: 2}, func() error {
		calls++
		if calls == 1 {
			return &retry.StatusError{StatusCode: 500}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestValue_ReturnsResult(t *testing.T) {
	calls := 0

	v, err := retry.Value(context.Background(), fast, func() (string, error) {
		calls++
		if calls == 1 {
			return "", &retry.StatusError{StatusCode: 429}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestStatusError_Unwraps(t *testing.T) {
	err := &retry.StatusError{StatusCode: 401, Err: domain.ErrUnauthorized}

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, "unexpected status 401: unauthorized", err.Error())
}
