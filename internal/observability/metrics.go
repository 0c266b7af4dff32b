package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "inventory"

// Metrics holds Prometheus metrics for authentication and authorization.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	loginTotal           *prometheus.CounterVec
	loginDuration        prometheus.Histogram
	tokenValidationTotal *prometheus.CounterVec
	authorizationTotal   *prometheus.CounterVec
	tokensIssuedTotal    *prometheus.CounterVec
	registry             *prometheus.Registry
}

// NewMetrics creates a new Metrics instance on its own registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.loginTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_total",
			Help:      "Total number of login attempts by outcome",
		},
		[]string{"outcome"},
	)

	m.loginDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_duration_seconds",
			Help:      "Login request duration in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	m.tokenValidationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "token_validation_total",
			Help:      "Total number of bearer token validations by result",
		},
		[]string{"result"},
	)

	m.authorizationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "authorization_total",
			Help:      "Total number of authorization decisions",
		},
		[]string{"decision"},
	)

	m.tokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "tokens_issued_total",
			Help:      "Total number of tokens issued by kind",
		},
		[]string{"kind"},
	)

	m.registry.MustRegister(
		m.loginTotal,
		m.loginDuration,
		m.tokenValidationTotal,
		m.authorizationTotal,
		m.tokensIssuedTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// RecordLogin records a login attempt.
func (m *Metrics) RecordLogin(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.loginTotal.WithLabelValues(outcome).Inc()
	m.loginDuration.Observe(duration.Seconds())
}

// RecordTokenValidation records the result of resolving a bearer token.
func (m *Metrics) RecordTokenValidation(result string) {
	if m == nil {
		return
	}
	m.tokenValidationTotal.WithLabelValues(result).Inc()
}

// RecordAuthorization records a gate decision.
func (m *Metrics) RecordAuthorization(decision string) {
	if m == nil {
		return
	}
	m.authorizationTotal.WithLabelValues(decision).Inc()
}

// RecordTokenIssued records an issued token; kind is "login" or "refresh".
func (m *Metrics) RecordTokenIssued(kind string) {
	if m == nil {
		return
	}
	m.tokensIssuedTotal.WithLabelValues(kind).Inc()
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
