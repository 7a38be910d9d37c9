package main

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"mini-httpd/server"
)

type config struct {
	listenAddr    string
	telemetryAddr string
	logRequests   bool

	rateEnabled      bool
	rateMaxRequests  int
	rateWindow       time.Duration
	rateScope        server.Scope
	rateShards       int
	rateIdleTTL      time.Duration
	rateCleanupEvery time.Duration
	rateMaxKeys      int

	concurrencyMax     int
	concurrencyTimeout time.Duration
	acceptRPS          float64
	acceptBurst        int

	readTimeout     time.Duration
	idleTimeout     time.Duration
	writeTimeout    time.Duration
	maxLineBytes    int
	shutdownTimeout time.Duration

	rateStatsEnabled       bool
	rateStatsRedisAddr     string
	rateStatsRedisPassword string
	rateStatsRedisDB       int
	rateStatsPrefix        string
	rateStatsTTL           time.Duration
	rateStatsBucket        string
	rateStatsTrackKeys     bool
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", "127.0.0.1:8080")
	cfg.telemetryAddr = os.Getenv("TELEMETRY_ADDR")
	cfg.logRequests = getenvBoolDefault("LOG_REQUESTS", false)

	cfg.rateEnabled = getenvBoolDefault("RATE_ENABLED", true)
	cfg.rateMaxRequests = getenvIntDefault("RATE_MAX_REQUESTS", 5)
	cfg.rateWindow = getenvDurationDefault("RATE_WINDOW", 60*time.Second)
	scope, err := server.ParseScope(os.Getenv("RATE_LIMIT_SCOPE"))
	if err != nil {
		return config{}, err
	}
	cfg.rateScope = scope
	cfg.rateShards = getenvIntDefault("RATE_SHARDS", 32)
	// 0 = padrão do limiter (2x a janela)
	cfg.rateIdleTTL = getenvDurationDefault("RATE_IDLE_TTL", 0)
	cfg.rateCleanupEvery = getenvDurationDefault("RATE_CLEANUP_EVERY", time.Minute)
	cfg.rateMaxKeys = getenvIntDefault("RATE_MAX_KEYS", 0)

	cfg.concurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 1024)
	cfg.concurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)
	cfg.acceptRPS = getenvFloatDefault("ACCEPT_RPS", 0)
	cfg.acceptBurst = getenvIntDefault("ACCEPT_BURST", 1)

	cfg.readTimeout = getenvDurationDefault("READ_TIMEOUT", 10*time.Second)
	cfg.idleTimeout = getenvDurationDefault("IDLE_TIMEOUT", 60*time.Second)
	cfg.writeTimeout = getenvDurationDefault("WRITE_TIMEOUT", 10*time.Second)
	cfg.maxLineBytes = getenvIntDefault("MAX_LINE_BYTES", 8192)
	cfg.shutdownTimeout = getenvDurationDefault("SHUTDOWN_TIMEOUT", 10*time.Second)

	cfg.rateStatsEnabled = getenvBoolDefault("RATE_STATS_ENABLED", false)
	cfg.rateStatsRedisAddr = getenvDefault("RATE_STATS_REDIS_ADDR", "")
	cfg.rateStatsRedisPassword = os.Getenv("RATE_STATS_REDIS_PASSWORD")
	cfg.rateStatsRedisDB = getenvIntDefault("RATE_STATS_REDIS_DB", 0)
	cfg.rateStatsPrefix = getenvDefault("RATE_STATS_PREFIX", "ratelimit:stats")
	cfg.rateStatsTTL = getenvDurationDefault("RATE_STATS_TTL", 24*time.Hour)
	cfg.rateStatsBucket = getenvDefault("RATE_STATS_BUCKET", "minute")
	cfg.rateStatsTrackKeys = getenvBoolDefault("RATE_STATS_TRACK_KEYS", false)

	if cfg.rateStatsEnabled && strings.TrimSpace(cfg.rateStatsRedisAddr) == "" {
		return config{}, errors.New("RATE_STATS_REDIS_ADDR is required when RATE_STATS_ENABLED=true")
	}
	if cfg.rateEnabled {
		if cfg.rateMaxRequests <= 0 {
			return config{}, errors.New("RATE_MAX_REQUESTS must be > 0")
		}
		if cfg.rateWindow <= 0 {
			return config{}, errors.New("RATE_WINDOW must be > 0")
		}
		if cfg.rateShards <= 0 {
			return config{}, errors.New("RATE_SHARDS must be > 0")
		}
	}
	if cfg.concurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	if cfg.acceptRPS < 0 {
		return config{}, errors.New("ACCEPT_RPS must be >= 0")
	}
	if cfg.acceptRPS > 0 && cfg.acceptBurst <= 0 {
		return config{}, errors.New("ACCEPT_BURST must be > 0")
	}
	if cfg.maxLineBytes <= 0 {
		return config{}, errors.New("MAX_LINE_BYTES must be > 0")
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
