package telemetry

import (
	"testing"
	"time"

	"mini-httpd/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ server.Observer = (*Metrics)(nil)

func TestMetrics_ObserverEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.ConnOpened()
	m.ConnOpened()
	m.ConnClosed(20*time.Millisecond, "ok")
	m.ConnRefused("capacity")
	m.Decision(true)
	m.Decision(false)
	m.Request("GET", 200, time.Millisecond)
	m.Request("PATCH", 405, time.Millisecond)
	m.Request("", 429, time.Millisecond)

	if got := testutil.ToFloat64(m.connOpened); got != 2 {
		t.Fatalf("opened = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.connActive); got != 1 {
		t.Fatalf("active = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.connClosed.WithLabelValues("ok")); got != 1 {
		t.Fatalf("closed{ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.connRefused.WithLabelValues("capacity")); got != 1 {
		t.Fatalf("refused{capacity} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.decisions.WithLabelValues("denied")); got != 1 {
		t.Fatalf("decisions{denied} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("other", "405")); got != 1 {
		t.Fatalf("requests{other,405} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("-", "429")); got != 1 {
		t.Fatalf("requests{-,429} = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.latency); got != 3 {
		t.Fatalf("latency series = %d, want 3", got)
	}
}

func TestMetrics_Gauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	keys := 7
	if err := m.Gauge("ratelimit", "keys", "Tracked client identities", func() float64 { return float64(keys) }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == "mini_httpd_ratelimit_keys" {
			if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 7 {
				t.Fatalf("keys gauge = %v, want 7", got)
			}
			return
		}
	}
	t.Fatalf("keys gauge not gathered")
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewMetrics(reg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewMetrics(reg); err == nil {
		t.Fatalf("expected error registering twice")
	}
}
