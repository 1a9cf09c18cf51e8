package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ScansTotal counts scan passes, labelled by kind (networks/clients).
	ScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aircap",
			Name:      "scans_total",
			Help:      "Total number of scan passes executed",
		},
		[]string{"kind"},
	)

	// DeauthAttemptsTotal counts per-client deauthentication attempts.
	DeauthAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aircap",
			Name:      "deauth_attempts_total",
			Help:      "Total number of per-client deauthentication attempts",
		},
		[]string{"outcome"},
	)

	// HandshakesCaptured counts captures that observed the handshake marker.
	HandshakesCaptured = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "aircap",
			Name:      "handshakes_captured_total",
			Help:      "Total number of captured WPA handshakes",
		},
	)

	// CrackAttemptsTotal counts passphrase recovery runs by outcome.
	CrackAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aircap",
			Name:      "crack_attempts_total",
			Help:      "Total number of passphrase recovery runs",
		},
		[]string{"outcome"},
	)

	// ToolFailuresTotal counts external tool faults (missing binaries,
	// unexpected exits).
	ToolFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aircap",
			Name:      "tool_failures_total",
			Help:      "Total number of external tool failures",
		},
		[]string{"tool"},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry.
// This function is idempotent and can be called multiple times safely.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(ScansTotal)
		prometheus.DefaultRegisterer.Register(DeauthAttemptsTotal)
		prometheus.DefaultRegisterer.Register(HandshakesCaptured)
		prometheus.DefaultRegisterer.Register(CrackAttemptsTotal)
		prometheus.DefaultRegisterer.Register(ToolFailuresTotal)
	})
}
