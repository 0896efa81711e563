package errors

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessages(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		message  string
		category ErrorCategory
		status   int
	}{
		{"validation", NewValidationError("bad input", "field"), "[VALIDATION_ERROR] bad input", CategoryValidation, http.StatusBadRequest},
		{"not found", NewNotFoundError("assessment", "abc"), "[NOT_FOUND] assessment not found", CategoryNotFound, http.StatusNotFound},
		{"conflict", NewConflictError("already submitted"), "[CONFLICT] already submitted", CategoryConflict, http.StatusConflict},
		{"unauthorized", NewUnauthorizedError("invalid receipt", nil), "[UNAUTHORIZED] invalid receipt", CategoryUnauthorized, http.StatusUnauthorized},
		{"rate limit", NewRateLimitError("60s"), "[RATE_LIMIT_EXCEEDED] Rate limit exceeded", CategoryRateLimit, http.StatusTooManyRequests},
		{"external", NewExternalAPIError("wazuh", fmt.Errorf("boom")), "[NETWORK_ERROR] wazuh API error", CategoryExternalAPI, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.message, tt.err.Error())
			assert.Equal(t, tt.category, tt.err.Category)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
		})
	}
}

func TestValidationResponseFields(t *testing.T) {
	resp := NewValidationErrorWithMap(map[string]string{
		"contacts.primary_email": "must be a valid email",
	}).Response()
	assert.Equal(t, "must be a valid email", resp.Fields["contacts.primary_email"])
	assert.Equal(t, CategoryValidation, resp.Category)

	resp = NewValidationError("invalid request body", "EOF").Response()
	assert.Equal(t, "EOF", resp.Detail)
	assert.Empty(t, resp.Fields)
}

func TestToAppError(t *testing.T) {
	assert.Nil(t, ToAppError(nil))

	orig := NewConflictError("x")
	assert.Same(t, orig, ToAppError(fmt.Errorf("wrapped: %w", orig)))

	assert.Equal(t, CategoryNotFound, ToAppError(fmt.Errorf("assessment 42: %w", ErrNotFound)).Category)
	assert.Equal(t, CategoryConflict, ToAppError(fmt.Errorf("submitted: %w", ErrConflict)).Category)
	assert.Equal(t, CategoryTimeout, ToAppError(context.DeadlineExceeded).Category)
	assert.Equal(t, CategoryNetwork, ToAppError(fmt.Errorf("dial tcp: connection refused")).Category)
	assert.Equal(t, CategoryInternal, ToAppError(fmt.Errorf("something odd")).Category)
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(NewNetworkError("down", nil)))
	assert.True(t, IsRetryableError(NewRateLimitError("1s")))
	assert.False(t, IsRetryableError(NewValidationError("bad")))
	assert.False(t, IsRetryableError(fmt.Errorf("x: %w", ErrNotFound)))
}

func TestErrorHandlerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler(), RecoveryHandler())
	r.GET("/missing", func(c *gin.Context) {
		_ = c.Error(fmt.Errorf("lookup: %w", ErrNotFound))
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("kaboom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"category":"not_found"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"category":"internal"`)
}
