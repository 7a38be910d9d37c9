package telemetry

import (
	"encoding/json"
	"net/http"
	"time"

	"mini-httpd/ratelimit/infra"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsSource é quem fornece o snapshot servido em /stats (MemoryStatsStore).
type StatsSource interface {
	Snapshot() infra.StatsSnapshot
}

// NewRouter monta as rotas do listener de telemetria. stats nil responde 404 em /stats.
func NewRouter(gatherer prometheus.Gatherer, stats StatsSource) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		if stats == nil {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(stats.Snapshot())
	})
	return r
}

// NewHTTPServer devolve o http.Server do listener de telemetria.
func NewHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
