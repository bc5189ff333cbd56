package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	registry *prometheus.Registry

	checkoutSessions    *prometheus.CounterVec
	reconcileRuns       *prometheus.CounterVec
	purchasesCreated    prometheus.Counter
	certificatesIssued  prometheus.Counter
	renderFailures      prometheus.Counter
	rateLimitDecisions  *prometheus.CounterVec
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New configures the domain metrics instruments on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	m := &Metrics{
		registry: registry,
		checkoutSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rewild_checkout_sessions_total",
			Help: "Hosted payment sessions created, by checkout kind.",
		}, []string{"kind"}),
		reconcileRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rewild_reconcile_runs_total",
			Help: "Reconciliation runs, by terminal payment status.",
		}, []string{"status"}),
		purchasesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rewild_purchases_materialized_total",
			Help: "Purchases materialized from paid payment intents.",
		}),
		certificatesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rewild_certificates_issued_total",
			Help: "Certificates issued.",
		}),
		renderFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rewild_certificate_render_failures_total",
			Help: "Certificate document render or publish failures.",
		}),
		rateLimitDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rewild_rate_limit_decisions_total",
			Help: "Rate limiter decisions on public endpoints.",
		}, []string{"endpoint", "decision"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rewild_http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status_code"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rewild_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	registry.MustRegister(
		m.checkoutSessions,
		m.reconcileRuns,
		m.purchasesCreated,
		m.certificatesIssued,
		m.renderFailures,
		m.rateLimitDecisions,
		m.httpRequests,
		m.httpRequestDuration,
	)
	return m
}

// RecordCheckoutSession increments hosted session counts.
func (m *Metrics) RecordCheckoutSession(kind string) {
	if m == nil {
		return
	}
	m.checkoutSessions.WithLabelValues(strings.TrimSpace(kind)).Inc()
}

// RecordReconcileRun increments reconciliation run counts.
func (m *Metrics) RecordReconcileRun(status string) {
	if m == nil {
		return
	}
	m.reconcileRuns.WithLabelValues(strings.TrimSpace(status)).Inc()
}

// RecordPurchaseMaterialized increments purchase creation counts.
func (m *Metrics) RecordPurchaseMaterialized() {
	if m == nil {
		return
	}
	m.purchasesCreated.Inc()
}

// RecordCertificateIssued increments certificate issuance counts.
func (m *Metrics) RecordCertificateIssued() {
	if m == nil {
		return
	}
	m.certificatesIssued.Inc()
}

// RecordRenderFailure increments render/publish failure counts.
func (m *Metrics) RecordRenderFailure() {
	if m == nil {
		return
	}
	m.renderFailures.Inc()
}

// RecordRateLimit increments rate limiter decision counts.
func (m *Metrics) RecordRateLimit(endpoint string, allowed bool) {
	if m == nil {
		return
	}
	decision := "allowed"
	if !allowed {
		decision = "denied"
	}
	m.rateLimitDecisions.WithLabelValues(strings.TrimSpace(endpoint), decision).Inc()
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// GinMiddleware records request counts and latency per route.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpRequestDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
