package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sos2a"

// Prometheus owns a dedicated registry with the HTTP and domain collectors
type Prometheus struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
	heatmapCalculations *prometheus.CounterVec
	heatmapCBF          prometheus.Histogram
	assessments         *prometheus.CounterVec
	csvRows             *prometheus.CounterVec
	deviceScores        *prometheus.CounterVec
	externalRequests    *prometheus.CounterVec
}

// NewPrometheus registers the collectors, plus the Go runtime and process
// collectors, on a fresh registry.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	p := &Prometheus{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		heatmapCalculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heatmap_calculations_total",
			Help:      "Heatmap calculations by cache outcome.",
		}, []string{"cache"}),
		heatmapCBF: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "heatmap_cbf_score",
			Help:      "Distribution of computed cost-benefit scores.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_total",
			Help:      "Assessment lifecycle events.",
		}, []string{"event"}),
		csvRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "csv_rows_total",
			Help:      "Imported CSV rows by kind and outcome.",
		}, []string{"kind", "outcome"}),
		deviceScores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_scores_total",
			Help:      "Scored devices by risk level and score source.",
		}, []string{"level", "source"}),
		externalRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_requests_total",
			Help:      "Calls to external services by outcome.",
		}, []string{"service", "outcome"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.httpRequests,
		p.httpDuration,
		p.heatmapCalculations,
		p.heatmapCBF,
		p.assessments,
		p.csvRows,
		p.deviceScores,
		p.externalRequests,
	)
	return p
}

// Registry exposes the registry for tests
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the exposition format
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// ObserveRequest records one HTTP request
func (p *Prometheus) ObserveRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveHeatmap records one calculation
func (p *Prometheus) ObserveHeatmap(cbf float64, cacheHit bool) {
	outcome := "miss"
	if cacheHit {
		outcome = "hit"
	}
	p.heatmapCalculations.WithLabelValues(outcome).Inc()
	if !cacheHit {
		p.heatmapCBF.Observe(cbf)
	}
}

// AssessmentEvent counts created, updated, submitted and deleted events
func (p *Prometheus) AssessmentEvent(event string) {
	p.assessments.WithLabelValues(event).Inc()
}

// ObserveImport records the rows of one CSV import
func (p *Prometheus) ObserveImport(kind string, imported, rejected int) {
	p.csvRows.WithLabelValues(kind, "imported").Add(float64(imported))
	p.csvRows.WithLabelValues(kind, "rejected").Add(float64(rejected))
}

// ObserveDeviceScore records one scored device
func (p *Prometheus) ObserveDeviceScore(level, source string) {
	p.deviceScores.WithLabelValues(level, source).Inc()
}

// ObserveExternal records a call to an external service
func (p *Prometheus) ObserveExternal(service string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	p.externalRequests.WithLabelValues(service, outcome).Inc()
}
