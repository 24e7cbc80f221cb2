package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareCountsRequests(t *testing.T) {
	m := New()
	h := m.Middleware("balanco", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	}

	if got := testutil.ToFloat64(m.requests.WithLabelValues("balanco", "GET", "418")); got != 3 {
		t.Errorf("requests = %v, want 3", got)
	}
}

func TestObserveReport(t *testing.T) {
	m := New()
	m.ObserveReport("anexo2", "html", 42, 10*time.Millisecond, nil)
	m.ObserveReport("anexo2", "html", 0, time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(m.reports.WithLabelValues("anexo2", "html", "ok")); got != 1 {
		t.Errorf("ok = %v", got)
	}
	if got := testutil.ToFloat64(m.reports.WithLabelValues("anexo2", "html", "error")); got != 1 {
		t.Errorf("error = %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.RateLimited()
	m.CacheInvalidated("amqp")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{"orcamento_http_rate_limited_total 1", `orcamento_cache_invalidations_total{trigger="amqp"} 1`, "go_goroutines"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.RateLimited()
	m.ObserveReport("x", "y", 1, time.Second, nil)
	h := m.Middleware("r", http.NotFoundHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}
