package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRequest(t *testing.T) {
	c := NewCollector()
	c.ObserveRequest(TransportHTTP, "/opt_cls", http.StatusOK, 5*time.Millisecond)
	c.ObserveRequest(TransportHTTP, "/opt_cls", http.StatusOK, 7*time.Millisecond)
	c.ObserveRequest(TransportHTTP, "/opt_cls", http.StatusBadRequest, time.Millisecond)

	if got := testutil.ToFloat64(c.requests.WithLabelValues(TransportHTTP, "/opt_cls", "200")); got != 2 {
		t.Fatalf("expected 2 successful requests, got %v", got)
	}
	if got := testutil.ToFloat64(c.requests.WithLabelValues(TransportHTTP, "/opt_cls", "400")); got != 1 {
		t.Fatalf("expected 1 failed request, got %v", got)
	}
}

func TestRunMetrics(t *testing.T) {
	c := NewCollector()

	done := c.RunStarted()
	if got := testutil.ToFloat64(c.runsInFlight); got != 1 {
		t.Fatalf("expected 1 run in flight, got %v", got)
	}
	done()
	if got := testutil.ToFloat64(c.runsInFlight); got != 0 {
		t.Fatalf("expected no run in flight, got %v", got)
	}

	RecordRunSuccess(c, "GA", time.Second, 300, 0.75)
	RecordRunFailure(c, "GA", OutcomeInvalid, time.Millisecond)

	if got := testutil.ToFloat64(c.runs.WithLabelValues("GA", OutcomeOK)); got != 1 {
		t.Fatalf("expected 1 ok run, got %v", got)
	}
	if got := testutil.ToFloat64(c.runs.WithLabelValues("GA", OutcomeInvalid)); got != 1 {
		t.Fatalf("expected 1 invalid run, got %v", got)
	}
	if got := testutil.ToFloat64(c.runAlignment.WithLabelValues("GA")); got != 0.75 {
		t.Fatalf("expected last alignment 0.75, got %v", got)
	}
}

func TestCollectorsAreIsolated(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	a.ObserveMutation("path_length")

	if got := testutil.ToFloat64(b.configChanges.WithLabelValues("path_length")); got != 0 {
		t.Fatalf("expected independent registries, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector()
	c.ObserveMutation("opt_kwargs")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `normd_config_mutations_total{field="opt_kwargs"} 1`) {
		t.Fatalf("expected mutation counter in exposition, got:\n%s", body)
	}
}
