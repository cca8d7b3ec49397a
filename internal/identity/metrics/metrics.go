// Package metrics holds the Prometheus counters exported by the identity
// service. Every method is safe to call on a nil *Metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "identity"

// Metrics is a private registry plus the service counters.
type Metrics struct {
	Registry *prometheus.Registry

	signIn    *prometheus.CounterVec
	otp       *prometheus.CounterVec
	refresh   *prometheus.CounterVec
	authorize *prometheus.CounterVec
}

// New registers the counters and the Go/process collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry:  reg,
		signIn:    counter("signin_total", "Sign-in attempts by outcome."),
		otp:       counter("otp_total", "One-time code verifications by outcome."),
		refresh:   counter("refresh_total", "Access token refreshes by outcome."),
		authorize: counter("authorize_total", "Authorization guard decisions by outcome."),
	}
	reg.MustRegister(m.signIn, m.otp, m.refresh, m.authorize)
	return m
}

func counter(name, help string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, []string{"outcome"})
}

func (m *Metrics) SignIn(outcome string) {
	if m != nil {
		m.signIn.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) OTP(outcome string) {
	if m != nil {
		m.otp.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Refresh(outcome string) {
	if m != nil {
		m.refresh.WithLabelValues(outcome).Inc()
	}
}

// Authorize is shaped to plug into httpx.Guard.Observe.
func (m *Metrics) Authorize(outcome string) {
	if m != nil {
		m.authorize.WithLabelValues(outcome).Inc()
	}
}

// Handler serves the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
