// Package telemetry expõe as métricas prometheus do servidor e o listener
// auxiliar de observabilidade (/metrics, /stats, /healthz).
package telemetry

import (
	"strconv"
	"time"

	"mini-httpd/protocol"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mini_httpd"

// Nomes dos labels.
const (
	FieldMethod = "method"
	FieldReason = "reason"
	FieldResult = "result"
	FieldStatus = "status"
)

// BucketsRequest cobre latências de uma requisição em segundos.
var BucketsRequest = []float64{
	.0001,
	.00025,
	.0005,
	.001,
	.0025,
	.005,
	.01,
	.025,
	.05,
	.1,
	.25,
}

// BucketsConn cobre o tempo de vida de uma conexão em segundos.
var BucketsConn = []float64{.001, .01, .1, .5, 1, 5, 15, 30, 60, 120}

// Metrics implementa server.Observer sobre client_golang.
type Metrics struct {
	reg prometheus.Registerer

	connOpened   prometheus.Counter
	connActive   prometheus.Gauge
	connClosed   *prometheus.CounterVec
	connLifetime prometheus.Histogram
	connRefused  *prometheus.CounterVec
	decisions    *prometheus.CounterVec
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// NewMetrics cria e registra os coletores em reg. Registrar duas vezes no mesmo
// registry retorna erro.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		reg: reg,
		connOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conn",
			Name:      "opened_total",
			Help:      "Number of connections handed to a handler",
		}),
		connActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "conn",
			Name:      "active",
			Help:      "Connections currently being served",
		}),
		connClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conn",
			Name:      "closed_total",
			Help:      "Number of closed connections by termination reason",
		}, []string{FieldReason}),
		connLifetime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "conn",
			Name:      "lifetime_seconds",
			Help:      "Distribution of connection lifetime in seconds",
			Buckets:   BucketsConn,
		}),
		connRefused: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conn",
			Name:      "refused_total",
			Help:      "Number of accepted connections closed without a handler",
		}, []string{FieldReason}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Number of rate limit decisions by result",
		}, []string{FieldResult}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "request",
			Name:      "count",
			Help:      "Number of responses written by method and status",
		}, []string{FieldMethod, FieldStatus}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "request",
			Name:      "latency_seconds",
			Help:      "Distribution of request handling duration in seconds",
			Buckets:   BucketsRequest,
		}, []string{FieldMethod}),
	}

	for _, c := range []prometheus.Collector{
		m.connOpened,
		m.connActive,
		m.connClosed,
		m.connLifetime,
		m.connRefused,
		m.decisions,
		m.requests,
		m.latency,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Gauge registra um gauge calculado na hora da coleta (chaves do limiter,
// vagas ocupadas, ...).
func (m *Metrics) Gauge(subsystem, name, help string, fn func() float64) error {
	return m.reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, fn))
}

func (m *Metrics) ConnOpened() {
	m.connOpened.Inc()
	m.connActive.Inc()
}

func (m *Metrics) ConnClosed(lifetime time.Duration, reason string) {
	m.connActive.Dec()
	m.connClosed.WithLabelValues(reason).Inc()
	m.connLifetime.Observe(lifetime.Seconds())
}

func (m *Metrics) ConnRefused(reason string) {
	m.connRefused.WithLabelValues(reason).Inc()
}

func (m *Metrics) Decision(allowed bool) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	m.decisions.WithLabelValues(result).Inc()
}

// Request agrupa métodos fora do conjunto atendido em "other" para limitar a
// cardinalidade; method vazio (429 antes da leitura, linha inválida) vira "-".
func (m *Metrics) Request(method string, status int, elapsed time.Duration) {
	switch {
	case method == "":
		method = "-"
	case !protocol.Method(method).Supported():
		method = "other"
	}
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method).Observe(elapsed.Seconds())
}
