// Package metrics exposes Prometheus instrumentation for the server core.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ConnectionsAccepted counts accepted TCP connections.
	ConnectionsAccepted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "networksocket_connections_accepted_total",
			Help: "Accepted connections",
		},
	)

	// SessionsActive tracks currently open sessions.
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "networksocket_sessions_active",
			Help: "Active sessions",
		},
	)

	// RequestsTotal counts dispatched requests by protocol and outcome.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "networksocket_requests_total",
			Help: "Dispatched requests",
		},
		[]string{"protocol", "status"},
	)

	// HandshakeFailures counts TLS handshakes that never produced a session.
	HandshakeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "networksocket_tls_handshake_failures_total",
			Help: "Failed TLS handshakes",
		},
	)

	// UnrecognizedProtocols counts connections closed because no handler
	// claimed them.
	UnrecognizedProtocols = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "networksocket_unrecognized_protocols_total",
			Help: "Connections with no matching protocol handler",
		},
	)
)

// Register registers all collectors with r.
func Register(r prometheus.Registerer) {
	r.MustRegister(
		ConnectionsAccepted,
		SessionsActive,
		RequestsTotal,
		HandshakeFailures,
		UnrecognizedProtocols,
	)
}

var defaultOnce sync.Once

// RegisterDefault registers the collectors with the default Prometheus
// registry. Idempotent, so multiple App instances in one process do not
// trip the duplicate-registration panic.
func RegisterDefault() {
	defaultOnce.Do(func() {
		Register(prometheus.DefaultRegisterer)
	})
}
