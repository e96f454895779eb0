package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const promNamespace = "aideas_relay"

// Collector holds the Prometheus instruments exposed on /metrics
type Collector struct {
	generationsTotal   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec

	providerRequestsTotal   *prometheus.CounterVec
	providerRequestDuration *prometheus.HistogramVec
	providerTokensUsed      *prometheus.CounterVec

	activeConnections prometheus.Gauge
	socketEventsTotal *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewCollector registers all instruments with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		generationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: promNamespace,
				Subsystem: "generation",
				Name:      "requests_total",
				Help:      "Total number of music generation requests",
			},
			[]string{"kind", "backend", "status"},
		),
		generationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: promNamespace,
				Subsystem: "generation",
				Name:      "duration_seconds",
				Help:      "Music generation duration in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"kind", "backend"},
		),
		providerRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: promNamespace,
				Subsystem: "provider",
				Name:      "requests_total",
				Help:      "Total number of LLM provider calls",
			},
			[]string{"provider", "model", "status"},
		),
		providerRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: promNamespace,
				Subsystem: "provider",
				Name:      "request_duration_seconds",
				Help:      "LLM provider call duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),
		providerTokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: promNamespace,
				Subsystem: "provider",
				Name:      "tokens_used_total",
				Help:      "Total number of tokens reported by providers",
			},
			[]string{"provider", "model", "type"}, // type: input, output
		),
		activeConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: promNamespace,
				Subsystem: "socket",
				Name:      "active_connections",
				Help:      "Number of open WebSocket connections",
			},
		),
		socketEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: promNamespace,
				Subsystem: "socket",
				Name:      "events_total",
				Help:      "Total number of inbound socket events",
			},
			[]string{"event"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: promNamespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: promNamespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
	}
}

// ConnectionOpened increments the live connection gauge
func (c *Collector) ConnectionOpened() {
	c.activeConnections.Inc()
}

// ConnectionClosed decrements the live connection gauge
func (c *Collector) ConnectionClosed() {
	c.activeConnections.Dec()
}

// SocketEvent counts one inbound frame by event name
func (c *Collector) SocketEvent(event string) {
	c.socketEventsTotal.WithLabelValues(event).Inc()
}

// ObserveGeneration records the outcome and latency of one music request
func (c *Collector) ObserveGeneration(kind, backend string, duration time.Duration, success bool) {
	c.generationsTotal.WithLabelValues(kind, backend, statusLabel(success)).Inc()
	c.generationDuration.WithLabelValues(kind, backend).Observe(duration.Seconds())
}

// ObserveProviderCall records one LLM call and the tokens it reported
func (c *Collector) ObserveProviderCall(provider, model string, duration time.Duration, inputTokens, outputTokens int64, success bool) {
	c.providerRequestsTotal.WithLabelValues(provider, model, statusLabel(success)).Inc()
	c.providerRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	if inputTokens > 0 {
		c.providerTokensUsed.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		c.providerTokensUsed.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
	}
}

// ObserveHTTPRequest records one HTTP request
func (c *Collector) ObserveHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
