package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mini-httpd/ratelimit/domain"
	"mini-httpd/ratelimit/infra"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRouter_Healthz(t *testing.T) {
	h := NewRouter(prometheus.NewRegistry(), nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("unexpected response %d %q", rr.Code, rr.Body.String())
	}
}

func TestRouter_MetricsExposesObserverCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.Request("GET", 200, time.Millisecond)

	rr := httptest.NewRecorder()
	NewRouter(reg, nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `mini_httpd_request_count{method="GET",status="200"} 1`) {
		t.Fatalf("request counter missing from /metrics:\n%s", rr.Body.String())
	}
}

func TestRouter_Stats(t *testing.T) {
	stats := infra.NewMemoryStatsStore()
	_ = stats.Record(context.Background(), domain.StatsEvent{Key: "1.2.3.4", Allowed: true, Method: "GET", Path: "/", Status: 200})
	_ = stats.Record(context.Background(), domain.StatsEvent{Key: "1.2.3.4", Allowed: false, Status: 429})

	rr := httptest.NewRecorder()
	NewRouter(prometheus.NewRegistry(), stats).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stats", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var snap infra.StatsSnapshot
	if err := json.NewDecoder(rr.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Total.Allowed != 1 || snap.Total.Denied != 1 {
		t.Fatalf("unexpected totals %+v", snap.Total)
	}
	if snap.ByStatus["429"] != 1 || snap.ByRoute["GET /"].Allowed != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestRouter_StatsDisabled(t *testing.T) {
	rr := httptest.NewRecorder()
	NewRouter(prometheus.NewRegistry(), nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
