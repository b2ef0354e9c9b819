package metrics

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Config labels every series with service identity.
type Config struct {
	ServiceName string
	Environment string
}

// Metrics captures engine health signals. One singleton per process,
// registered against the default prometheus registerer.
type Metrics struct {
	pricesComputed   *prometheus.CounterVec
	claimTransitions *prometheus.CounterVec
	anomalies        *prometheus.CounterVec
	settlements      *prometheus.CounterVec
	outboxPublished  prometheus.Counter
	jobRuns          *prometheus.CounterVec
	jobErrors        *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

// Default returns the singleton metrics registry.
func Default() *Metrics {
	return WithConfig(Config{})
}

// WithConfig returns the singleton metrics registry using config labels.
func WithConfig(cfg Config) *Metrics {
	metricsOnce.Do(func() {
		metrics = newMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return metrics
}

// ResetForTest resets the metrics singleton for tests.
func ResetForTest() {
	metricsOnce = sync.Once{}
	metrics = nil
}

func newMetrics(registerer prometheus.Registerer, cfg Config) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "pumpline"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &Metrics{
		pricesComputed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pumpline_prices_computed_total",
			Help:        "Price breakdown computations by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		claimTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pumpline_claim_transitions_total",
			Help:        "Claim state transitions by source and target state.",
			ConstLabels: constLabels,
		}, []string{"from", "to"}),
		anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pumpline_claim_anomalies_total",
			Help:        "Anomalies attached to claims by type and severity.",
			ConstLabels: constLabels,
		}, []string{"type", "severity"}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pumpline_settlements_total",
			Help:        "Settlement runs by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		outboxPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "pumpline_outbox_published_total",
			Help:        "Outbox events published to the event channel.",
			ConstLabels: constLabels,
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pumpline_scheduler_job_runs_total",
			Help:        "Scheduler job executions.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pumpline_scheduler_job_errors_total",
			Help:        "Scheduler job failures.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "pumpline_scheduler_job_duration_seconds",
			Help:        "Scheduler job duration.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"job"}),
	}

	registerer.MustRegister(
		m.pricesComputed,
		m.claimTransitions,
		m.anomalies,
		m.settlements,
		m.outboxPublished,
		m.jobRuns,
		m.jobErrors,
		m.jobDuration,
	)

	return m
}

func (m *Metrics) IncPriceComputed(outcome string) {
	if m == nil {
		return
	}
	m.pricesComputed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncClaimTransition(from, to string) {
	if m == nil {
		return
	}
	m.claimTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) IncAnomaly(anomalyType, severity string) {
	if m == nil {
		return
	}
	m.anomalies.WithLabelValues(anomalyType, severity).Inc()
}

func (m *Metrics) IncSettlement(outcome string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddOutboxPublished(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.outboxPublished.Add(float64(n))
}

func (m *Metrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *Metrics) IncJobError(job string) {
	if m == nil {
		return
	}
	m.jobErrors.WithLabelValues(job).Inc()
}

func (m *Metrics) ObserveJobDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

// HTTPMetrics instruments inbound HTTP traffic.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics(cfg Config) *HTTPMetrics {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "pumpline"
	}
	constLabels := prometheus.Labels{"service": serviceName}

	h := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pumpline_http_requests_total",
			Help:        "HTTP requests by route, method and status.",
			ConstLabels: constLabels,
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "pumpline_http_request_duration_seconds",
			Help:        "HTTP request duration.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	prometheus.MustRegister(h.requests, h.duration)
	return h
}

// GinMiddleware records request counts and latency.
func GinMiddleware(h *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		h.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		h.duration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
