package apierr

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig holds retry parameters for exponential backoff.
//
// Invalid values are normalized:
//   - MaxRetries < 0 becomes 0 (single attempt)
//   - BaseDelay <= 0 becomes 1ms
//   - MaxDelay <= 0 becomes BaseDelay
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// OnRetry, if set, is called before each wait with the 1-based attempt
	// that failed, its error and the upcoming delay.
	OnRetry func(attempt int, err error, delay time.Duration)
}

func (c *RetryConfig) normalize() {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = c.BaseDelay
	}
}

// RetryWithBackoff calls fn until it succeeds, shouldRetry rejects its
// error, ctx is done, or MaxRetries retries are spent. Delays double from
// BaseDelay up to MaxDelay.
func RetryWithBackoff[T any](
	ctx context.Context,
	cfg RetryConfig,
	fn func() (T, error),
	shouldRetry func(error) bool,
) (T, error) {
	cfg.normalize()

	var zero T
	delay := cfg.BaseDelay

	for attempt := 1; ; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !shouldRetry(err) {
			return zero, err
		}
		if attempt > cfg.MaxRetries {
			return zero, fmt.Errorf("max retries (%d) exceeded: %w", cfg.MaxRetries, err)
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, cfg.MaxDelay)
	}
}
