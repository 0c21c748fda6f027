package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Histogram bucket definitions.
var (
	httpDurationBuckets     = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	upstreamDurationBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
)

// Metrics holds all Prometheus metric instruments for the editor service.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Publish metrics
	PublishTotal   *prometheus.CounterVec
	GroupSyncTotal *prometheus.CounterVec

	// Upstream metrics
	UpstreamRequestsTotal   *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec

	// Cache metrics
	SnapshotHitsTotal   *prometheus.CounterVec
	SnapshotMissesTotal *prometheus.CounterVec

	// Document metrics
	DocumentMutationsTotal *prometheus.CounterVec

	// Catalog metrics
	WidgetTypesLoaded  prometheus.Gauge
	CatalogReloadTotal *prometheus.CounterVec
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		// HTTP
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appcanvas_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "appcanvas_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),

		// Publish
		PublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appcanvas_publish_total",
			Help: "Total number of publish attempts.",
		}, []string{"distro", "status"}),
		GroupSyncTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appcanvas_publish_group_sync_total",
			Help: "Total number of per-group rule syncs.",
		}, []string{"group", "status"}),

		// Upstream
		UpstreamRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appcanvas_upstream_requests_total",
			Help: "Total number of upstream configuration backend requests.",
		}, []string{"endpoint", "status"}),
		UpstreamRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "appcanvas_upstream_request_duration_seconds",
			Help:    "Upstream request duration in seconds.",
			Buckets: upstreamDurationBuckets,
		}, []string{"endpoint"}),

		// Cache
		SnapshotHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appcanvas_snapshot_hits_total",
			Help: "Total snapshot cache hits.",
		}, []string{"entity"}),
		SnapshotMissesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appcanvas_snapshot_misses_total",
			Help: "Total snapshot cache misses.",
		}, []string{"entity"}),

		// Document
		DocumentMutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appcanvas_document_mutations_total",
			Help: "Total document store mutations.",
		}, []string{"operation"}),

		// Catalog
		WidgetTypesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "appcanvas_widget_types_loaded",
			Help: "Number of loaded widget type definitions.",
		}),
		CatalogReloadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appcanvas_catalog_reload_total",
			Help: "Total widget catalog reloads.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PublishTotal,
		m.GroupSyncTotal,
		m.UpstreamRequestsTotal,
		m.UpstreamRequestDuration,
		m.SnapshotHitsTotal,
		m.SnapshotMissesTotal,
		m.DocumentMutationsTotal,
		m.WidgetTypesLoaded,
		m.CatalogReloadTotal,
	)

	return m
}

// --- Recording helpers ---

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, pathPattern string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(duration.Seconds())
}

// PublishOutcome records the result of one publish attempt.
func (m *Metrics) PublishOutcome(distroName string, success bool) {
	status := "ok"
	if !success {
		status = "failed"
	}
	m.PublishTotal.WithLabelValues(distroName, status).Inc()
}

// GroupOutcome records the result of one feature-group sync.
func (m *Metrics) GroupOutcome(group, status string) {
	m.GroupSyncTotal.WithLabelValues(group, status).Inc()
}

// RecordUpstreamRequest records an upstream backend request.
func (m *Metrics) RecordUpstreamRequest(endpoint string, status int, duration time.Duration) {
	m.UpstreamRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordSnapshotHit records a snapshot cache hit.
func (m *Metrics) RecordSnapshotHit(entity string) {
	m.SnapshotHitsTotal.WithLabelValues(entity).Inc()
}

// RecordSnapshotMiss records a snapshot cache miss.
func (m *Metrics) RecordSnapshotMiss(entity string) {
	m.SnapshotMissesTotal.WithLabelValues(entity).Inc()
}

// RecordDocumentMutation records one document store mutation.
func (m *Metrics) RecordDocumentMutation(operation string) {
	m.DocumentMutationsTotal.WithLabelValues(operation).Inc()
}

// SetWidgetTypesLoaded sets the number of loaded widget type definitions.
func (m *Metrics) SetWidgetTypesLoaded(count float64) {
	m.WidgetTypesLoaded.Set(count)
}

// RecordCatalogReload records a widget catalog reload.
func (m *Metrics) RecordCatalogReload(status string) {
	m.CatalogReloadTotal.WithLabelValues(status).Inc()
}

// --- HTTP Middleware ---

// MetricsMiddleware returns HTTP middleware that records request metrics using
// chi's route pattern (not the actual URL path) to avoid label cardinality
// explosion.
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &metricsResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		m.RecordHTTPRequest(r.Method, routePattern(r), sw.status, time.Since(start))
	})
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// routePattern extracts chi's route pattern from the request context.
// Falls back to the raw URL path if no pattern is found.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	pattern := strings.Join(rctx.RoutePatterns, "")
	// chi route patterns have trailing /*, remove it.
	pattern = strings.TrimSuffix(pattern, "/*")
	if pattern == "" {
		return r.URL.Path
	}
	return pattern
}

// metricsResponseWriter wraps http.ResponseWriter to capture the status code.
type metricsResponseWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *metricsResponseWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}
