package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/ZanzyTHEbar/sos2a-intake/internal/errors"
)

// RetryConfig holds configuration for retry behavior
type RetryConfig struct {
	MaxAttempts     int              `json:"max_attempts" toml:"max_attempts"`
	InitialDelay    time.Duration    `json:"initial_delay" toml:"initial_delay"`
	MaxDelay        time.Duration    `json:"max_delay" toml:"max_delay"`
	BackoffFactor   float64          `json:"backoff_factor" toml:"backoff_factor"`
	JitterEnabled   bool             `json:"jitter_enabled" toml:"jitter_enabled"`
	RetryableErrors func(error) bool `json:"-" toml:"-"`
}

// DefaultRetryConfig returns the policy used for agent API calls
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		BackoffFactor:   2.0,
		JitterEnabled:   true,
		RetryableErrors: errors.IsRetryableError,
	}
}

// RetryableFunc represents a function that can be retried
type RetryableFunc func() error

// RetryWithConfig executes fn until it succeeds, returns a non-retryable
// error, runs out of attempts or the context ends.
func RetryWithConfig(ctx context.Context, config RetryConfig, fn RetryableFunc) error {
	var lastErr error

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if config.RetryableErrors != nil && !config.RetryableErrors(err) {
			break
		}
		if attempt == config.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(calculateDelay(config, attempt)):
		}
	}

	return lastErr
}

func calculateDelay(config RetryConfig, attempt int) time.Duration {
	delay := time.Duration(float64(config.InitialDelay) * math.Pow(config.BackoffFactor, float64(attempt)))
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}

	// up to 10% jitter
	if config.JitterEnabled && delay >= 10 {
		delay += time.Duration(rand.Int63n(int64(delay / 10)))
	}

	return delay
}

// RetryableHTTPFunc represents an HTTP call that can be retried
type RetryableHTTPFunc func() (*http.Response, error)

// RetryHTTP runs an HTTP call with retry. Retryable status codes (408, 429
// and 5xx gateway errors) are retried; any other response is returned as is.
func RetryHTTP(ctx context.Context, config RetryConfig, fn RetryableHTTPFunc) (*http.Response, error) {
	var resp *http.Response

	err := RetryWithConfig(ctx, config, func() error {
		r, err := fn()
		if err != nil {
			return errors.NewNetworkError("request failed", err)
		}
		if isRetryableHTTPStatus(r.StatusCode) {
			r.Body.Close()
			return NewHTTPError(r.StatusCode, r.Status)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// HTTPError is a retryable upstream status
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("upstream returned %s", e.Status)
}

// NewHTTPError wraps an upstream status as an external API error
func NewHTTPError(statusCode int, status string) error {
	return errors.NewExternalAPIError("upstream", &HTTPError{StatusCode: statusCode, Status: status})
}
