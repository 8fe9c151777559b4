package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics_Registers(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.ObserveOutcome("challenge", "invalid_email")
	metrics.ObserveLookup("sql", time.Now(), true)

	if got := testutil.ToFloat64(metrics.LoginStepOutcomesTotal.WithLabelValues("challenge", "invalid_email")); got != 1 {
		t.Errorf("Expected 1 outcome, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.MappingLookupErrorsTotal.WithLabelValues("sql")); got != 1 {
		t.Errorf("Expected 1 lookup error, got %v", got)
	}
}

func TestMetrics_NilReceiver(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveOutcome("continue", "hint_present")
	metrics.ObserveLookup("sql", time.Now(), false)
}

func TestHTTPMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	router := mux.NewRouter()
	router.Use(HTTPMetricsMiddleware(metrics))
	router.HandleFunc("/realms/{realm}/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	RegisterMetricsEndpoint(router, registry)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/realms/acme/ping", nil))

	got := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/realms/{realm}/ping", "418"))
	if got != 1 {
		t.Errorf("Expected 1 request recorded against route template, got %v", got)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rr.Body.String(), "idp_redirect_http_requests_total") {
		t.Error("Expected /metrics to expose idp_redirect_http_requests_total")
	}
}
