package main

import (
	"context"
	"log/slog"
	"net/http/pprof"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/ZanzyTHEbar/sos2a-intake/docs"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/cache"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/config"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/database"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/devicerisk"
	apperrors "github.com/ZanzyTHEbar/sos2a-intake/internal/errors"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/middleware"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/monitoring"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/ratelimit"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/security"
)

const (
	serviceName    = "sos2a-intake"
	serviceVersion = "1.0.0"
)

// server bundles the dependencies shared by the HTTP handlers
type server struct {
	cfg         config.Config
	db          *database.DB
	svc         *database.AssessmentService
	wazuh       *devicerisk.WazuhClient
	limiter     *ratelimit.RateLimiter
	cache       *cache.Cache
	compression *middleware.CompressionMiddleware
	metrics     *monitoring.Metrics
	prom        *monitoring.Prometheus
	logger      *monitoring.Logger
	now         func() time.Time
}

// newServer wires the services for one database. redis may be nil.
func newServer(cfg config.Config, db *database.DB, redis *ratelimit.RedisClient, logger *monitoring.Logger) *server {
	metrics := monitoring.NewMetrics()
	prom := monitoring.NewPrometheus()
	wazuh := devicerisk.NewWazuhClient(cfg.WazuhClient())

	svc := database.NewAssessmentService(database.NewRepository(db), cfg.Server.JWTSecret, wazuh)
	svc.SetScoreObserver(prom)

	return &server{
		cfg:         cfg,
		db:          db,
		svc:         svc,
		wazuh:       wazuh,
		limiter:     ratelimit.NewRateLimiter(redis, cfg.RateLimit, metrics),
		cache:       cache.NewCache(cfg.Cache.TTL.Duration, cfg.Cache.MaxItems),
		compression: middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig()),
		metrics:     metrics,
		prom:        prom,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Close stops background work owned by the server
func (s *server) Close() {
	s.limiter.Close()
	s.cache.Close()
}

// startBackground runs the draft retention sweep until ctx ends
func (s *server) startBackground(ctx context.Context) {
	if s.cfg.Retention.Interval.Duration <= 0 || s.cfg.Retention.Drafts.Duration <= 0 {
		return
	}
	s.svc.StartRetentionWorker(ctx, s.cfg.Retention.Interval.Duration, s.cfg.Retention.Drafts.Duration)
}

// profileHandler dispatches to net/http/pprof; gin cannot mix the catch-all
// route with fixed siblings.
func profileHandler(c *gin.Context) {
	switch strings.TrimPrefix(c.Param("name"), "/") {
	case "cmdline":
		pprof.Cmdline(c.Writer, c.Request)
	case "profile":
		pprof.Profile(c.Writer, c.Request)
	case "symbol":
		pprof.Symbol(c.Writer, c.Request)
	case "trace":
		pprof.Trace(c.Writer, c.Request)
	default:
		pprof.Index(c.Writer, c.Request)
	}
}

// heatmapCacheRecorder counts cache outcomes for the heatmap route in both
// metric sinks.
type heatmapCacheRecorder struct {
	metrics *monitoring.Metrics
	prom    *monitoring.Prometheus
}

func (r heatmapCacheRecorder) IncrementCacheHit() {
	r.metrics.IncrementCacheHit()
	r.metrics.IncrementHeatmapCalculation()
	r.prom.ObserveHeatmap(0, true)
}

func (r heatmapCacheRecorder) IncrementCacheMiss() {
	r.metrics.IncrementCacheMiss()
}

func setupRouter(s *server) *gin.Engine {
	r := gin.New()

	sec := security.NewMiddleware(s.cfg.Security())
	limits := s.limiter.Config()

	r.Use(monitoring.MonitoringMiddleware(s.metrics, s.logger, s.prom))
	r.Use(monitoring.SecurityMonitoringMiddleware(s.logger))
	r.Use(apperrors.ErrorHandler())
	r.Use(apperrors.RecoveryHandler())
	r.Use(sec.CORS())
	r.Use(sec.SecurityHeaders)
	r.Use(sec.RequestTimeout)
	r.Use(sec.ValidateContentType)
	r.Use(sec.LimitBody)
	r.Use(s.limiter.IPRateLimitMiddleware())
	r.Use(s.compression.Handler())
	r.Use(s.cache.Middleware(heatmapCacheRecorder{s.metrics, s.prom}, "/heatmap/calculate"))

	r.GET("/health", s.health)
	r.GET("/metrics", s.metricsStats)
	r.GET("/metrics/prometheus", gin.WrapH(s.prom.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.POST("/heatmap/calculate", s.calculateHeatmap)
	r.GET("/heatmap/defaults", s.heatmapDefaults)
	r.GET("/heatmap/matrix", s.heatmapMatrix)
	r.GET("/heatmap/report", s.heatmapReport)

	r.POST("/devices/score", s.scoreDevice)
	r.GET("/devices/taxonomy", s.deviceTaxonomy)
	r.POST("/uwa", s.generateUWA)
	r.GET("/identity/matrix", s.identityMatrix)

	r.GET("/templates/devices.csv", s.deviceTemplate)
	r.GET("/templates/identities.csv", s.identityTemplate)
	r.GET("/compliance/frameworks", s.complianceFrameworks)
	r.POST("/receipts/verify", s.verifyReceipt)

	a := r.Group("/assessments")
	{
		a.POST("", s.createAssessment)
		a.GET("", s.listAssessments)
		a.GET("/:id", s.getAssessment)
		a.PUT("/:id", s.updateAssessment)
		a.DELETE("/:id", s.deleteAssessment)
		a.GET("/:id/review", s.reviewAssessment)
		a.GET("/:id/report", s.assessmentReport)
		a.POST("/:id/submit",
			s.limiter.EndpointRateLimitMiddleware("submit", ratelimit.PerHour(limits.SubmitLimit)),
			s.submitAssessment)
		a.GET("/:id/revisions", s.listRevisions)
		a.GET("/:id/diff", s.diffRevisions)
		a.POST("/:id/identity-matrix/toggle", s.toggleIdentityMatrix)

		importLimit := s.limiter.EndpointRateLimitMiddleware("import", ratelimit.PerMinute(limits.ImportLimit))

		a.POST("/:id/devices/import", importLimit, s.importDevices)
		a.GET("/:id/devices/export", s.exportDevices)
		a.POST("/:id/devices", s.createDevice)
		a.GET("/:id/devices", s.listDevices)
		a.GET("/:id/devices/:deviceID", s.getDevice)
		a.PUT("/:id/devices/:deviceID", s.updateDevice)
		a.DELETE("/:id/devices/:deviceID", s.deleteDevice)

		a.POST("/:id/identities/import", importLimit, s.importIdentities)
		a.GET("/:id/identities/export", s.exportIdentities)
		a.POST("/:id/identities", s.createIdentity)
		a.GET("/:id/identities", s.listIdentities)
		a.PUT("/:id/identities/:identityID", s.updateIdentity)
		a.DELETE("/:id/identities/:identityID", s.deleteIdentity)
	}

	if s.cfg.Server.EnablePprof {
		slog.Info("Enabling performance profiling endpoints")
		r.GET("/debug/pprof/*name", profileHandler)
	}

	return r
}
