package monitoring

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, slog.LevelInfo)

	logger.ImportLogger("devices", "a-1", 10, 8, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "CSV Import", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, float64(2), entry["rejected"])
	assert.Contains(t, entry, "timestamp")
}

func TestLoggerRotatingFile(t *testing.T) {
	path := t.TempDir() + "/sos2a.log"
	logger := NewLogger(LogOptions{Level: "info", File: path})
	logger.SystemLogger("startup", "test")
	require.NoError(t, logger.Close())
	assert.FileExists(t, path)
}

func TestMetricsStats(t *testing.T) {
	m := NewMetrics()
	m.IncrementRequest()
	m.IncrementRequest()
	m.IncrementError()
	m.IncrementCacheHit()
	m.IncrementCacheMiss()
	m.RecordImport(4, 1)
	m.RecordResponseTime(10 * time.Millisecond)
	m.RecordResponseTime(30 * time.Millisecond)
	m.RecordRequestByStatus(200)
	m.RecordRequestByStatus(200)
	m.RecordExternalAPIRequest("wazuh", false)

	stats := m.GetStats()
	assert.Equal(t, int64(2), stats["total_requests"])
	assert.Equal(t, float64(50), stats["error_rate_percent"])
	assert.Equal(t, float64(50), stats["cache_hit_rate_percent"])
	assert.Equal(t, float64(20), stats["avg_response_time_ms"])
	assert.Equal(t, int64(4), stats["csv_rows_imported"])
	assert.Equal(t, map[int]int64{200: 2}, stats["status_code_distribution"])
	assert.Equal(t, 30*time.Millisecond, m.GetPercentileResponseTime(100))
}

func TestResponseTimeSampleIsBounded(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < responseSampleSize+10; i++ {
		m.RecordResponseTime(time.Duration(i) * time.Millisecond)
	}
	assert.Len(t, m.responseTimes, responseSampleSize)
	assert.Equal(t, time.Duration(responseSampleSize+9)*time.Millisecond, m.GetPercentileResponseTime(100))
	assert.Equal(t, 10*time.Millisecond, m.GetPercentileResponseTime(0))
}

func TestPrometheusCollectors(t *testing.T) {
	p := NewPrometheus()
	p.ObserveHeatmap(42, false)
	p.ObserveHeatmap(42, true)
	p.ObserveImport("devices", 3, 1)
	p.AssessmentEvent("submitted")

	assert.Equal(t, float64(1), testutil.ToFloat64(p.heatmapCalculations.WithLabelValues("hit")))
	assert.Equal(t, float64(3), testutil.ToFloat64(p.csvRows.WithLabelValues("devices", "imported")))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.assessments.WithLabelValues("submitted")))

	w := httptest.NewRecorder()
	p.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sos2a_csv_rows_total")
}

func TestMonitoringMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	metrics := NewMetrics()
	prom := NewPrometheus()

	r := gin.New()
	r.Use(MonitoringMiddleware(metrics, NewWriterLogger(&buf, slog.LevelInfo), prom))
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/7", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, int64(1), metrics.RequestCount)
	assert.Equal(t, int64(1), metrics.ErrorCount)
	assert.Equal(t, float64(1), testutil.ToFloat64(prom.httpRequests.WithLabelValues("GET", "/items/:id", "404")))
	assert.Contains(t, buf.String(), `"path":"/items/7"`)
}

func TestSecurityMonitoringMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		target    string
		userAgent string
		flagged   bool
	}{
		{"clean request", "/health", "curl/8.0", false},
		{"encoded sql injection", "/assessments?status=x%27%20UNION%20SELECT%20*", "curl/8.0", true},
		{"scanner agent", "/health", "sqlmap/1.7", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			r := gin.New()
			r.Use(SecurityMonitoringMiddleware(NewWriterLogger(&buf, slog.LevelInfo)))
			r.GET("/*path", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			req.Header.Set("User-Agent", tt.userAgent)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.flagged, strings.Contains(buf.String(), "suspicious_activity_detected"))
		})
	}
}
