package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestMetricsMiddleware_EmitsRequestCounters verifies that wrapping a handler
// with MetricsMiddleware results in request metrics being exposed via the
// Prometheus /metrics handler.
func TestMetricsMiddleware_EmitsRequestCounters(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	rr := httptest.NewRecorder()
	MetricsMiddleware(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	mrr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(mrr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if mrr.Code != http.StatusOK {
		t.Fatalf("/metrics status=%d", mrr.Code)
	}
	if !bytes.Contains(mrr.Body.Bytes(), []byte("modelsync_http_requests_total")) {
		t.Fatalf("expected to find modelsync_http_requests_total in metrics")
	}
}

func TestIncrementRejection_IncrementsCounter(t *testing.T) {
	baseline := testutil.ToFloat64(rejectionsTotal.WithLabelValues("in_flight"))
	IncrementRejection("in_flight")
	IncrementRejection("in_flight")
	if got := testutil.ToFloat64(rejectionsTotal.WithLabelValues("in_flight")); got < baseline+2 {
		t.Fatalf("expected rejection counter >= %v, got %v", baseline+2, got)
	}

	before := testutil.ToFloat64(rejectionsTotal.WithLabelValues("unspecified"))
	IncrementRejection("")
	if after := testutil.ToFloat64(rejectionsTotal.WithLabelValues("unspecified")); after < before+1 {
		t.Fatalf("expected unspecified reason to increment: before=%v after=%v", before, after)
	}
}
