package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryOptions {
	return RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

func TestWithRetry(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		wantErr   error
		failures  []error
		name      string
		wantCalls int
	}{
		{name: "succeeds first time", wantCalls: 1},
		{name: "recovers after transient failure", failures: []error{errBoom}, wantCalls: 2},
		{name: "rate limit then success", failures: []error{ErrRateLimit}, wantCalls: 2},
		{name: "gives up", failures: []error{errBoom, errBoom, errBoom}, wantCalls: 3, wantErr: ErrMaxRetries},
		{name: "permanent stops", failures: []error{Permanent(errBoom)}, wantCalls: 1, wantErr: errBoom},
		{name: "canceled stops", failures: []error{context.Canceled}, wantCalls: 1, wantErr: context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := WithRetry(context.Background(), func() error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			}, fastRetry())

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestWithRetry_ContextCanceledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opts := RetryOptions{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour}

	calls := 0
	err := WithRetry(ctx, func() error {
		calls++
		cancel()
		return errors.New("flaky")
	}, opts)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_HonorsRetryAfter(t *testing.T) {
	opts := RetryOptions{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Hour}

	start := time.Now()
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		if calls == 1 {
			return Throttled(5 * time.Millisecond)
		}
		return nil
	}, opts)

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Less(t, time.Since(start), time.Minute, "Retry-After replaces MaxDelay")
}

func TestRetryOptions_Wait(t *testing.T) {
	opts := RetryOptions{MaxDelay: 10 * time.Second}

	assert.Equal(t, time.Second, opts.wait(errors.New("503"), time.Second))
	assert.Equal(t, 10*time.Second, opts.wait(ErrRateLimit, time.Second))
	assert.Equal(t, 10*time.Second, opts.wait(Throttled(0), time.Second))
	assert.Equal(t, 3*time.Second, opts.wait(Throttled(3*time.Second), time.Second))
	assert.Equal(t, 10*time.Second, opts.wait(Throttled(time.Minute), time.Second), "capped at MaxDelay")
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 7*time.Second, ParseRetryAfter("7", now))
	assert.Equal(t, 90*time.Second, ParseRetryAfter(now.Add(90*time.Second).Format(http.TimeFormat), now))
	assert.Zero(t, ParseRetryAfter("", now))
	assert.Zero(t, ParseRetryAfter("0", now))
	assert.Zero(t, ParseRetryAfter("-3", now))
	assert.Zero(t, ParseRetryAfter("soon", now))
	assert.Zero(t, ParseRetryAfter(now.Add(-time.Minute).Format(http.TimeFormat), now))
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(ErrRateLimit))
	assert.True(t, IsRetryable(Throttled(time.Second)))
	assert.True(t, IsRetryable(Transient(errors.New("503"))))
	assert.False(t, IsRetryable(Permanent(errors.New("404"))))
	assert.False(t, IsRetryable(context.Canceled))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
}

func TestUserError(t *testing.T) {
	inner := fmt.Errorf("plaid: %w", ErrMissingConfig)
	err := NewUserError("Plaid is not configured; set plaid.client_id", inner)

	assert.Equal(t, "Plaid is not configured; set plaid.client_id: plaid: missing configuration", err.Error())
	assert.ErrorIs(t, err, ErrMissingConfig)
	assert.Equal(t, "Plaid is not configured; set plaid.client_id", Hint(err))
	assert.Equal(t, "Plaid is not configured; set plaid.client_id", Hint(fmt.Errorf("classify: %w", err)))

	assert.Equal(t, "plaid: missing configuration", Hint(inner))
	assert.NoError(t, NewUserError("unused", nil))
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", lvl.String())

	_, err = ParseLevel("loud")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
