package security

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	apperrors "github.com/ZanzyTHEbar/sos2a-intake/internal/errors"
)

// Config holds security configuration
type Config struct {
	AllowedOrigins []string      `toml:"allowed_origins"`
	RequestTimeout time.Duration `toml:"-"`
	MaxBodyBytes   int64         `toml:"max_body_bytes"`
	EnableHSTS     bool          `toml:"enable_hsts"`
}

// DefaultConfig returns secure defaults
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		RequestTimeout: 30 * time.Second,
		MaxBodyBytes:   10 << 20,
	}
}

// Middleware bundles the security middleware for one configuration
type Middleware struct {
	config Config
}

// NewMiddleware creates the security middleware
func NewMiddleware(config Config) *Middleware {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 30 * time.Second
	}
	return &Middleware{config: config}
}

const (
	apiCSP     = "default-src 'none'; frame-ancestors 'none'"
	swaggerCSP = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; frame-ancestors 'none'"
)

// SecurityHeaders adds security headers to responses. The swagger UI gets a
// CSP that allows its inline bootstrap script.
func (m *Middleware) SecurityHeaders(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
	c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
	c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

	if strings.HasPrefix(c.Request.URL.Path, "/swagger/") {
		c.Header("Content-Security-Policy", swaggerCSP)
	} else {
		c.Header("Content-Security-Policy", apiCSP)
	}

	if m.config.EnableHSTS || c.Request.TLS != nil {
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}

	c.Next()
}

// CORS returns the gin-contrib CORS handler for the configured origins
func (m *Middleware) CORS() gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins:     m.config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Disposition", "X-Cache", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowOrigins = DefaultConfig().AllowedOrigins
	}
	return cors.New(cfg)
}

var allowedContentTypes = []string{
	"application/json",
	"application/x-www-form-urlencoded",
	"multipart/form-data",
	"text/csv",
	"text/plain",
}

// ValidateContentType rejects bodies of unsupported media types
func (m *Middleware) ValidateContentType(c *gin.Context) {
	contentType := strings.ToLower(c.GetHeader("Content-Type"))
	if contentType == "" {
		c.Next()
		return
	}

	for _, allowed := range allowedContentTypes {
		if strings.HasPrefix(contentType, allowed) {
			c.Next()
			return
		}
	}

	appErr := apperrors.NewValidationError("unsupported content type", contentType)
	appErr.HTTPStatus = http.StatusUnsupportedMediaType
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.Response())
}

// LimitBody caps request bodies at MaxBodyBytes
func (m *Middleware) LimitBody(c *gin.Context) {
	if m.config.MaxBodyBytes > 0 && c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, m.config.MaxBodyBytes)
	}
	c.Next()
}

// RequestTimeout bounds the request context
func (m *Middleware) RequestTimeout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), m.config.RequestTimeout)
	defer cancel()

	c.Request = c.Request.WithContext(ctx)
	c.Header("X-Timeout", strconv.Itoa(int(m.config.RequestTimeout.Seconds())))

	c.Next()
}

var (
	scriptPattern  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	htmlTagPattern = regexp.MustCompile(`<[^>]+>`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// SanitizeText strips markup and control characters from free-text form
// input and collapses whitespace.
func SanitizeText(input string) string {
	input = scriptPattern.ReplaceAllString(input, "")
	input = htmlTagPattern.ReplaceAllString(input, "")
	input = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, input)
	return strings.TrimSpace(spacePattern.ReplaceAllString(input, " "))
}

// ValidateText checks length and encoding of a single form value
func ValidateText(field, input string, maxLen int) error {
	if !utf8.ValidString(input) {
		return fmt.Errorf("%s contains invalid UTF-8", field)
	}
	if strings.ContainsRune(input, 0) {
		return fmt.Errorf("%s contains invalid characters", field)
	}
	if maxLen > 0 && utf8.RuneCountInString(input) > maxLen {
		return fmt.Errorf("%s exceeds maximum length of %d characters", field, maxLen)
	}
	return nil
}
