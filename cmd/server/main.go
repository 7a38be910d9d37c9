package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"mini-httpd/ratelimit/application"
	"mini-httpd/ratelimit/domain"
	"mini-httpd/ratelimit/infra"
	"mini-httpd/server"
	"mini-httpd/telemetry"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

func main() {
	// .env é opcional; variáveis já exportadas têm prioridade.
	_ = godotenv.Load()

	cfg, err := readConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		limiter *infra.SlidingWindow
		decider server.Decider
	)
	if cfg.rateEnabled {
		limiter = newLimiter(cfg)
		limiter.StartJanitor(ctx)
		decider = application.Service{Limiter: limiter}
	}

	memStats := infra.NewMemoryStatsStore(infra.WithTrackKeys(cfg.rateStatsTrackKeys))
	stats := domain.StatsStore(memStats)
	if cfg.rateStatsEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.rateStatsRedisAddr,
			Password: cfg.rateStatsRedisPassword,
			DB:       cfg.rateStatsRedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			log.Fatalf("redis stats ping error: %v", err)
		}

		redisStats := infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.rateStatsPrefix),
			infra.WithStatsTTL(cfg.rateStatsTTL),
			infra.WithStatsBucket(cfg.rateStatsBucket),
			infra.WithStatsTrackKeys(cfg.rateStatsTrackKeys),
		)
		totalsCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if prev, err := redisStats.Totals(totalsCtx); err != nil {
			log.Printf("rate-stats: could not read previous totals: %v", err)
		} else {
			log.Printf("rate-stats: previous totals allowed=%d denied=%d", prev.Allowed, prev.Denied)
		}
		cancel()
		stats = infra.NewMultiStatsStore(memStats, redisStats)
	}

	concurrency := application.ConcurrencyService{
		Pool:           infra.NewChanPool(cfg.concurrencyMax),
		AcquireTimeout: cfg.concurrencyTimeout,
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := telemetry.NewMetrics(reg)
	if err != nil {
		log.Fatalf("metrics error: %v", err)
	}
	if limiter != nil {
		if err := metrics.Gauge("ratelimit", "keys", "Client identities tracked by the limiter", func() float64 {
			return float64(limiter.Keys())
		}); err != nil {
			log.Fatalf("metrics error: %v", err)
		}
	}
	if err := metrics.Gauge("conn", "slots_in_use", "Worker slots currently held", func() float64 {
		return float64(concurrency.InUse())
	}); err != nil {
		log.Fatalf("metrics error: %v", err)
	}

	srv := &server.Server{
		Addr: cfg.listenAddr,
		Handler: &server.Handler{
			Decider:      decider,
			Scope:        cfg.rateScope,
			Stats:        stats,
			Observer:     metrics,
			LogRequests:  cfg.logRequests,
			ReadTimeout:  cfg.readTimeout,
			IdleTimeout:  cfg.idleTimeout,
			WriteTimeout: cfg.writeTimeout,
			MaxLineBytes: cfg.maxLineBytes,
		},
		Concurrency:  concurrency,
		Observer:     metrics,
		WriteTimeout: cfg.writeTimeout,
	}
	if cfg.acceptRPS > 0 {
		srv.AcceptLimiter = rate.NewLimiter(rate.Limit(cfg.acceptRPS), cfg.acceptBurst)
	}

	var admin *http.Server
	if cfg.telemetryAddr != "" {
		admin = telemetry.NewHTTPServer(cfg.telemetryAddr, telemetry.NewRouter(reg, memStats))
		go func() {
			log.Printf("telemetry listening on %s", cfg.telemetryAddr)
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("telemetry error: %v", err)
			}
		}()
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v (connections force-closed)", err)
		}
		if admin != nil {
			_ = admin.Shutdown(shutdownCtx)
		}
	}()

	log.Printf("mini-httpd listening on %s", cfg.listenAddr)
	log.Printf("rate: enabled=%v max=%d window=%s scope=%s shards=%d idleTTL=%s cleanupEvery=%s maxKeys=%d",
		cfg.rateEnabled, cfg.rateMaxRequests, cfg.rateWindow, cfg.rateScope, cfg.rateShards, cfg.rateIdleTTL, cfg.rateCleanupEvery, cfg.rateMaxKeys)
	log.Printf("rate-stats: enabled=%v redisAddr=%q bucket=%q ttl=%s trackKeys=%v", cfg.rateStatsEnabled, cfg.rateStatsRedisAddr, cfg.rateStatsBucket, cfg.rateStatsTTL, cfg.rateStatsTrackKeys)
	log.Printf("concurrency: max=%d acquireTimeout=%s acceptRPS=%.3f acceptBurst=%d", cfg.concurrencyMax, cfg.concurrencyTimeout, cfg.acceptRPS, cfg.acceptBurst)
	log.Printf("timeouts: read=%s idle=%s write=%s maxLine=%d", cfg.readTimeout, cfg.idleTimeout, cfg.writeTimeout, cfg.maxLineBytes)

	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, server.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
	<-stopped
	log.Printf("mini-httpd stopped")
}

func newLimiter(cfg config) *infra.SlidingWindow {
	opts := []infra.WindowOption{
		infra.WithShards(cfg.rateShards),
		infra.WithCleanupEvery(cfg.rateCleanupEvery),
		infra.WithMaxKeys(cfg.rateMaxKeys),
	}
	if cfg.rateIdleTTL > 0 {
		opts = append(opts, infra.WithIdleTTL(cfg.rateIdleTTL))
	}
	return infra.NewSlidingWindow(cfg.rateMaxRequests, cfg.rateWindow, opts...)
}
