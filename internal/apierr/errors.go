// Package apierr classifies failures of HTTP transcription backends into
// shared sentinels and retries the transient ones with backoff.
//
// Backends map provider errors with FromStatus at the adapter boundary.
// Callers check with errors.Is(err, apierr.ErrRateLimit) etc.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for API interaction failures.
var (
	// ErrRateLimit indicates the API rate limit was exceeded (temporary, retryable).
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrQuotaExceeded indicates the API quota was exceeded (billing issue, not retryable).
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrTimeout indicates a request timed out.
	ErrTimeout = errors.New("request timeout")

	// ErrServer indicates a 5xx response (retryable).
	ErrServer = errors.New("server error")

	// ErrAuthFailed indicates API authentication failed (invalid key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrBadRequest indicates a client error (4xx) that is not otherwise classified.
	ErrBadRequest = errors.New("bad request")
)

// FromStatus wraps msg in the sentinel matching an HTTP status code.
// Unknown codes produce a plain error carrying the code.
func FromStatus(status int, msg string) error {
	switch status {
	case http.StatusTooManyRequests:
		// Quota exhaustion shares 429 with rate limiting but needs user action.
		if strings.Contains(msg, "quota") || strings.Contains(msg, "billing") {
			return fmt.Errorf("%s: %w", msg, ErrQuotaExceeded)
		}
		return fmt.Errorf("%s: %w", msg, ErrRateLimit)
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", msg, ErrAuthFailed)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return fmt.Errorf("%s: %w", msg, ErrTimeout)
	case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%s: %w", msg, ErrBadRequest)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return fmt.Errorf("%s: %w", msg, ErrServer)
	default:
		return fmt.Errorf("HTTP %d: %s", status, msg)
	}
}

// IsRetryable reports whether err is transient: rate limits, timeouts,
// server errors and deadline expiry. Cancellation is never retried.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServer) ||
		errors.Is(err, context.DeadlineExceeded)
}
