package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandler_nilMetrics(t *testing.T) {
	var m *Metrics
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	m.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if got := rr.Body.String(); !strings.Contains(got, "metrics unavailable") {
		t.Fatalf("expected body to mention metrics unavailable, got %q", got)
	}
}

func TestHandler_exposesRegisteredMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTPRequest(http.MethodGet, "/readyz", http.StatusOK, 12*time.Millisecond)
	m.IncStoreLoad("ok")
	m.IncStoreMutation("create_node", "ok")
	m.ObserveAggregation(3 * time.Millisecond)
	m.IncArchiveRun()
	m.ObserveArchiveRunDuration(2 * time.Second)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	m.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	body := rr.Body.String()
	if !strings.Contains(body, "daraya_http_requests_total{method=\"GET\",path=\"/readyz\",status=\"200\"} 1") {
		t.Fatalf("expected labeled request counter to be incremented; body=%s", body)
	}
	if !strings.Contains(body, "daraya_graph_store_loads_total{outcome=\"ok\"} 1") {
		t.Fatalf("expected store load counter to be incremented; body=%s", body)
	}
	if !strings.Contains(body, "daraya_graph_store_mutations_total{op=\"create_node\",outcome=\"ok\"} 1") {
		t.Fatalf("expected store mutation counter to be incremented; body=%s", body)
	}
	if !strings.Contains(body, "daraya_status_aggregation_duration_seconds_count 1") {
		t.Fatalf("expected aggregation histogram to have one observation; body=%s", body)
	}
	if !strings.Contains(body, "daraya_report_archive_runs_total 1") {
		t.Fatalf("expected archive runs counter to be incremented; body=%s", body)
	}
}
