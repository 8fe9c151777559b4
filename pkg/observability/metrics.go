package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Login step metrics
	LoginStepOutcomesTotal *prometheus.CounterVec

	// Mapping store metrics
	MappingLookupDuration    *prometheus.HistogramVec
	MappingLookupErrorsTotal *prometheus.CounterVec
	MappingCacheHitsTotal    prometheus.Counter
	MappingCacheMissesTotal  prometheus.Counter
	DomainMappingsEnabled    prometheus.Gauge

	// Session store metrics
	SessionStoreErrorsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idp_redirect_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "idp_redirect_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		LoginStepOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idp_redirect_login_step_outcomes_total",
				Help: "Completion signals reported by the domain redirect login step",
			},
			[]string{"signal", "reason"},
		),
		MappingLookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "idp_redirect_mapping_lookup_duration_seconds",
				Help:    "Domain mapping lookup duration in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"backend"},
		),
		MappingLookupErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idp_redirect_mapping_lookup_errors_total",
				Help: "Domain mapping lookups that failed for reasons other than no match",
			},
			[]string{"backend"},
		),
		MappingCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "idp_redirect_mapping_cache_hits_total",
				Help: "Domain mapping cache hits",
			},
		),
		MappingCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "idp_redirect_mapping_cache_misses_total",
				Help: "Domain mapping cache misses",
			},
		),
		DomainMappingsEnabled: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "idp_redirect_domain_mappings_enabled",
				Help: "Number of enabled domain to IdP mappings",
			},
		),
		SessionStoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idp_redirect_session_store_errors_total",
				Help: "Authentication session store failures",
			},
			[]string{"operation"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginStepOutcomesTotal,
		m.MappingLookupDuration,
		m.MappingLookupErrorsTotal,
		m.MappingCacheHitsTotal,
		m.MappingCacheMissesTotal,
		m.DomainMappingsEnabled,
		m.SessionStoreErrorsTotal,
	)

	return m
}

// ObserveLookup records the duration and failure of one mapping lookup.
// Safe to call on a nil receiver.
func (m *Metrics) ObserveLookup(backend string, start time.Time, failed bool) {
	if m == nil {
		return
	}
	m.MappingLookupDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	if failed {
		m.MappingLookupErrorsTotal.WithLabelValues(backend).Inc()
	}
}

// ObserveOutcome counts one login step completion signal. Safe to call on a nil receiver.
func (m *Metrics) ObserveOutcome(signal, reason string) {
	if m == nil {
		return
	}
	m.LoginStepOutcomesTotal.WithLabelValues(signal, reason).Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// routeLabel returns the matched mux route template so path parameters
// such as realm names and domains do not explode label cardinality.
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := routeLabel(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(router *mux.Router, registry *prometheus.Registry) {
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}
