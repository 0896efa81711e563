package security

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(m *Middleware, handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/health", ok)
	r.GET("/swagger/*any", ok)
	r.POST("/upload", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})
	r.GET("/deadline", func(c *gin.Context) {
		if _, ok := c.Request.Context().Deadline(); ok {
			c.Status(http.StatusOK)
			return
		}
		c.Status(http.StatusInternalServerError)
	})
	return r
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Contains(t, cfg.AllowedOrigins, "http://localhost:3000")
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, int64(10<<20), cfg.MaxBodyBytes)
}

func TestSecurityHeaders(t *testing.T) {
	m := NewMiddleware(DefaultConfig())
	r := newRouter(m, m.SecurityHeaders)

	tests := []struct {
		path string
		csp  string
	}{
		{"/health", apiCSP},
		{"/swagger/index.html", swaggerCSP},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
			assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
			assert.Equal(t, tt.csp, w.Header().Get("Content-Security-Policy"))
			assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
		})
	}

	hsts := NewMiddleware(Config{EnableHSTS: true})
	w := httptest.NewRecorder()
	newRouter(hsts, hsts.SecurityHeaders).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestCORS(t *testing.T) {
	m := NewMiddleware(DefaultConfig())
	r := newRouter(m, m.CORS())

	req := httptest.NewRequest(http.MethodOptions, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestValidateContentType(t *testing.T) {
	m := NewMiddleware(DefaultConfig())
	r := newRouter(m, m.ValidateContentType)

	tests := []struct {
		contentType string
		want        int
	}{
		{"", http.StatusOK},
		{"application/json; charset=utf-8", http.StatusOK},
		{"text/csv", http.StatusOK},
		{"multipart/form-data; boundary=x", http.StatusOK},
		{"application/xml", http.StatusUnsupportedMediaType},
	}
	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("x"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestLimitBody(t *testing.T) {
	m := NewMiddleware(Config{MaxBodyBytes: 16})
	r := newRouter(m, m.LimitBody)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(strings.Repeat("x", 100))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRequestTimeout(t *testing.T) {
	m := NewMiddleware(Config{RequestTimeout: 5 * time.Second})
	r := newRouter(m, m.RequestTimeout)

	req := httptest.NewRequest(http.MethodGet, "/deadline", nil).WithContext(context.Background())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5", w.Header().Get("X-Timeout"))
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Acme Dental", "Acme Dental"},
		{"trim and collapse", "  Acme \n\t Dental  ", "Acme Dental"},
		{"script removed", "Acme<script>alert(1)</script> Dental", "Acme Dental"},
		{"tags removed", "<b>Acme</b>", "Acme"},
		{"control chars removed", "Ac\x00me\x07", "Acme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeText(tt.input))
		})
	}
}

func TestValidateText(t *testing.T) {
	require.NoError(t, ValidateText("name", "Jane Doe", 10))
	assert.ErrorContains(t, ValidateText("name", strings.Repeat("a", 11), 10), "maximum length")
	assert.ErrorContains(t, ValidateText("name", "a\x00b", 10), "invalid characters")
	assert.ErrorContains(t, ValidateText("name", "\xff\xfe", 10), "invalid UTF-8")
	assert.NoError(t, ValidateText("name", "ünïcødé", 7))
}
