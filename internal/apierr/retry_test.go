package apierr_test

// Notes:
// - Exact backoff timing is not tested, only observable behavior
//   (attempt counts, delays reported to OnRetry, cancellation).

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/alnah/go-chunkscribe/internal/apierr"
)

func alwaysRetry(error) bool { return true }

func TestRetryWithBackoff(t *testing.T) {
	t.Parallel()

	fast := apierr.RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

	t.Run("success on first try", func(t *testing.T) {
		t.Parallel()

		calls := 0
		got, err := apierr.RetryWithBackoff(context.Background(), fast, func() (string, error) {
			calls++
			return "ok", nil
		}, alwaysRetry)
		if err != nil || got != "ok" {
			t.Errorf("RetryWithBackoff() = %q, %v; want ok, nil", got, err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("succeeds after transient failures", func(t *testing.T) {
		t.Parallel()

		calls := 0
		got, err := apierr.RetryWithBackoff(context.Background(), fast, func() (int, error) {
			calls++
			if calls < 3 {
				return 0, apierr.ErrRateLimit
			}
			return 42, nil
		}, apierr.IsRetryable)
		if err != nil || got != 42 {
			t.Errorf("RetryWithBackoff() = %d, %v; want 42, nil", got, err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("non-retryable stops immediately", func(t *testing.T) {
		t.Parallel()

		calls := 0
		_, err := apierr.RetryWithBackoff(context.Background(), fast, func() (string, error) {
			calls++
			return "", apierr.ErrAuthFailed
		}, apierr.IsRetryable)
		if !errors.Is(err, apierr.ErrAuthFailed) {
			t.Errorf("error = %v, want ErrAuthFailed", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("max retries exceeded wraps last error", func(t *testing.T) {
		t.Parallel()

		calls := 0
		_, err := apierr.RetryWithBackoff(context.Background(), fast, func() (string, error) {
			calls++
			return "", apierr.ErrServer
		}, alwaysRetry)
		if !errors.Is(err, apierr.ErrServer) {
			t.Errorf("error = %v, want wrapped ErrServer", err)
		}
		if calls != 4 {
			t.Errorf("calls = %d, want 4 (1 + 3 retries)", calls)
		}
	})

	t.Run("negative MaxRetries means single attempt", func(t *testing.T) {
		t.Parallel()

		calls := 0
		_, _ = apierr.RetryWithBackoff(context.Background(), apierr.RetryConfig{MaxRetries: -1},
			func() (string, error) {
				calls++
				return "", apierr.ErrTimeout
			}, alwaysRetry)
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("context cancellation stops waiting", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cfg := apierr.RetryConfig{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}

		calls := 0
		_, err := apierr.RetryWithBackoff(ctx, cfg, func() (string, error) {
			calls++
			cancel()
			return "", apierr.ErrTimeout
		}, alwaysRetry)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})
}

func TestRetryWithBackoff_OnRetry(t *testing.T) {
	t.Parallel()

	var attempts []int
	var delays []time.Duration
	cfg := apierr.RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   3 * time.Millisecond,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			attempts = append(attempts, attempt)
			delays = append(delays, delay)
		},
	}

	_, _ = apierr.RetryWithBackoff(context.Background(), cfg, func() (string, error) {
		return "", apierr.ErrRateLimit
	}, alwaysRetry)

	if want := []int{1, 2, 3}; !slices.Equal(attempts, want) {
		t.Errorf("attempts = %v, want %v", attempts, want)
	}
	if want := []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond}; !slices.Equal(delays, want) {
		t.Errorf("delays = %v, want %v (doubling, capped)", delays, want)
	}
}
