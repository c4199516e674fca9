package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Upstream service labels
const (
	ServiceMealDB = "mealdb"
	ServiceChat   = "chat_completion"
)

// MetricsCollector handles Prometheus metrics collection.
// Every collector owns its registry, so several can live in one process.
type MetricsCollector struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Page operations
	recipeFetchesTotal *prometheus.CounterVec
	recipeRemixesTotal *prometheus.CounterVec

	// Upstream calls
	upstreamRequestsTotal   *prometheus.CounterVec
	upstreamRequestDuration *prometheus.HistogramVec
	chatTokensTotal         *prometheus.CounterVec

	activeSessions prometheus.Gauge
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(logger *zap.Logger) *MetricsCollector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &MetricsCollector{
		logger:   logger.Named("metrics"),
		registry: registry,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		recipeFetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipe_fetches_total",
				Help: "Random recipe loads by outcome",
			},
			[]string{"outcome"},
		),
		recipeRemixesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipe_remixes_total",
				Help: "Recipe remix attempts by outcome",
			},
			[]string{"outcome"},
		),

		upstreamRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_requests_total",
				Help: "Requests sent to upstream services",
			},
			[]string{"service", "status"},
		),
		upstreamRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "upstream_request_duration_seconds",
				Help:    "Upstream request duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
			},
			[]string{"service"},
		),
		chatTokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_completion_tokens_total",
				Help: "Tokens reported by the chat completion provider",
			},
			[]string{"kind"},
		),

		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "page_sessions_active",
				Help: "Number of live page sessions",
			},
		),
	}
}

// Registry exposes the underlying registry for additional exporters
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// Register adds an extra collector to the registry
func (m *MetricsCollector) Register(c prometheus.Collector) error {
	if m == nil {
		return nil
	}
	return m.registry.Register(c)
}

// Handler serves the Prometheus exposition format
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveHTTP records one served request
func (m *MetricsCollector) ObserveHTTP(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecipeFetch records the outcome of a random recipe load
func (m *MetricsCollector) RecipeFetch(outcome string) {
	if m == nil {
		return
	}
	m.recipeFetchesTotal.WithLabelValues(outcome).Inc()
}

// RecipeRemix records the outcome of a remix
func (m *MetricsCollector) RecipeRemix(outcome string) {
	if m == nil {
		return
	}
	m.recipeRemixesTotal.WithLabelValues(outcome).Inc()
}

// UpstreamRequest records one upstream call. status is the HTTP status code,
// or zero when the request never got a response.
func (m *MetricsCollector) UpstreamRequest(service string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status != 0 {
		label = strconv.Itoa(status)
	}
	m.upstreamRequestsTotal.WithLabelValues(service, label).Inc()
	m.upstreamRequestDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// ChatTokens records token usage reported by the provider
func (m *MetricsCollector) ChatTokens(prompt, completion int) {
	if m == nil {
		return
	}
	m.chatTokensTotal.WithLabelValues("prompt").Add(float64(prompt))
	m.chatTokensTotal.WithLabelValues("completion").Add(float64(completion))
}

// SetActiveSessions updates the live session gauge
func (m *MetricsCollector) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
