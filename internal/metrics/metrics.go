package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the client-side collectors. A nil *Metrics is valid and
// records nothing, so components can be built without instrumentation.
type Metrics struct {
	gatewayCalls    *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
	otpTransitions  *prometheus.CounterVec
	ledgerAppends   prometheus.Counter
	sessionChanges  *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		gatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pharmachain",
			Subsystem: "gateway",
			Name:      "calls_total",
			Help:      "Backend gateway calls by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		gatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pharmachain",
			Subsystem: "gateway",
			Name:      "call_duration_seconds",
			Help:      "Backend gateway round trip latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		otpTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pharmachain",
			Subsystem: "registration",
			Name:      "transitions_total",
			Help:      "Registration flow state transitions.",
		}, []string{"state"}),
		ledgerAppends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pharmachain",
			Subsystem: "ledger",
			Name:      "appends_total",
			Help:      "Transactions appended to the local ledger.",
		}),
		sessionChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pharmachain",
			Subsystem: "session",
			Name:      "changes_total",
			Help:      "Session token changes by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.gatewayCalls, m.gatewayDuration, m.otpTransitions, m.ledgerAppends, m.sessionChanges)
	return m
}

// ObserveGatewayCall records one backend round trip.
func (m *Metrics) ObserveGatewayCall(endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.gatewayCalls.WithLabelValues(endpoint, outcome).Inc()
	m.gatewayDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// RegistrationTransition counts entry into a registration state.
func (m *Metrics) RegistrationTransition(state string) {
	if m == nil {
		return
	}
	m.otpTransitions.WithLabelValues(state).Inc()
}

// LedgerAppend counts one appended transaction.
func (m *Metrics) LedgerAppend() {
	if m == nil {
		return
	}
	m.ledgerAppends.Inc()
}

// SessionChange counts a token change (login, logout, rejected).
func (m *Metrics) SessionChange(kind string) {
	if m == nil {
		return
	}
	m.sessionChanges.WithLabelValues(kind).Inc()
}
