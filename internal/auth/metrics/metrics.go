// Package metrics exposes the authorization server's Prometheus counters.
// A nil *Metrics is valid and records nothing, so services and tests can
// leave it unset.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "identity"

type Metrics struct {
	registry *prometheus.Registry

	tokensIssued     *prometheus.CounterVec
	outboxPublished  prometheus.Counter
	outboxRetried    prometheus.Counter
	outboxFailed     prometheus.Counter
	webauthnFailures *prometheus.CounterVec
	mfaCodesSent     *prometheus.CounterVec
	mfaVerifications *prometheus.CounterVec
}

// New registers every collector on a fresh registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Access tokens issued by grant type.",
		}, []string{"grant_type"}),
		outboxPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_published_total",
			Help:      "Outbox messages confirmed by the event bus.",
		}),
		outboxRetried: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_retried_total",
			Help:      "Outbox deliveries scheduled for another attempt.",
		}),
		outboxFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_failed_total",
			Help:      "Outbox messages parked permanently.",
		}),
		webauthnFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webauthn_failures_total",
			Help:      "Rejected WebAuthn ceremonies by low-cardinality reason.",
		}, []string{"reason"}),
		mfaCodesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mfa_codes_sent_total",
			Help:      "MFA codes generated and handed to a sender.",
		}, []string{"provider"}),
		mfaVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mfa_verifications_total",
			Help:      "MFA code verifications by provider and result.",
		}, []string{"provider", "result"}),
	}

	reg.MustRegister(
		m.tokensIssued,
		m.outboxPublished,
		m.outboxRetried,
		m.outboxFailed,
		m.webauthnFailures,
		m.mfaCodesSent,
		m.mfaVerifications,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) TokenIssued(grantType string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(grantType).Inc()
}

func (m *Metrics) OutboxPublished() {
	if m == nil {
		return
	}
	m.outboxPublished.Inc()
}

func (m *Metrics) OutboxRetried() {
	if m == nil {
		return
	}
	m.outboxRetried.Inc()
}

func (m *Metrics) OutboxFailed() {
	if m == nil {
		return
	}
	m.outboxFailed.Inc()
}

func (m *Metrics) WebAuthnFailure(reason string) {
	if m == nil {
		return
	}
	m.webauthnFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) MFACodeSent(provider string) {
	if m == nil {
		return
	}
	m.mfaCodesSent.WithLabelValues(provider).Inc()
}

func (m *Metrics) MFAVerified(provider string, ok bool) {
	if m == nil {
		return
	}
	result := "invalid"
	if ok {
		result = "valid"
	}
	m.mfaVerifications.WithLabelValues(provider, result).Inc()
}
