package main

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoint_Integration(t *testing.T) {
	_, r := newTestServer(t)

	w := do(r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, serviceName, body["service"])
	assert.Equal(t, serviceVersion, body["version"])

	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "ok", checks["database"])
	assert.Equal(t, "disabled", checks["wazuh"])
}

func TestHealthEndpoint_DatabaseDown(t *testing.T) {
	s, r := newTestServer(t)
	require.NoError(t, s.db.Close())

	w := do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", decode(t, w)["status"])
}

func TestHealthEndpoint_MethodNotAllowed(t *testing.T) {
	_, r := newTestServer(t)

	for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
		t.Run("method_"+method+"_not_allowed", func(t *testing.T) {
			w := do(r, method, "/health", nil)
			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}
}

func TestHealthEndpoint_ConcurrentRequests(t *testing.T) {
	_, r := newTestServer(t)

	var wg sync.WaitGroup
	codes := make(chan int, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			codes <- w.Code
		}()
	}
	wg.Wait()
	close(codes)

	for code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
}

func TestHealthEndpoint_WithQueryAndHeaders(t *testing.T) {
	_, r := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health?param=value&another=test", nil)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}
