package resilience

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/ZanzyTHEbar/sos2a-intake/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerTransitions(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Minute})
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return clock }

	fail := func() error { return fmt.Errorf("down") }
	ok := func() error { return nil }

	assert.Error(t, cb.Call(fail))
	assert.Equal(t, StateClosed, cb.State())
	assert.Error(t, cb.Call(fail))
	assert.Equal(t, StateOpen, cb.State())

	err := cb.Call(ok)
	assert.ErrorIs(t, err, ErrCircuitOpen)

	clock = clock.Add(2 * time.Minute)
	require.NoError(t, cb.Call(ok))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Second})
	clock := time.Now()
	cb.now = func() time.Time { return clock }

	_ = cb.Call(func() error { return fmt.Errorf("x") })
	clock = clock.Add(2 * time.Second)
	_ = cb.Call(func() error { return fmt.Errorf("still down") })
	assert.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, "closed", cb.Stats()["state"])
}

func TestRetryWithConfig(t *testing.T) {
	config := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffFactor: 1, RetryableErrors: apperrors.IsRetryableError}

	t.Run("retries retryable errors", func(t *testing.T) {
		var calls int
		err := RetryWithConfig(context.Background(), config, func() error {
			calls++
			if calls < 3 {
				return apperrors.NewNetworkError("flaky", nil)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on non-retryable errors", func(t *testing.T) {
		var calls int
		err := RetryWithConfig(context.Background(), config, func() error {
			calls++
			return apperrors.NewValidationError("bad")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("honours cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := RetryWithConfig(ctx, config, func() error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRetryHTTP(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	config := DefaultRetryConfig()
	config.InitialDelay = time.Millisecond

	resp, err := RetryHTTP(context.Background(), config, func() (*http.Response, error) {
		return http.Get(srv.URL)
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestPooledClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewPooledClient(PoolConfig{Timeout: 2 * time.Second})
	for i := 0; i < 3; i++ {
		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	}

	stats := PoolStats(client)
	assert.Equal(t, int64(2000), stats["timeout_ms"])
	assert.Equal(t, DefaultPoolConfig().MaxIdle, stats["max_idle"])
	assert.Equal(t, DefaultPoolConfig().MaxActive, stats["max_active"])
}
