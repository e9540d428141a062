package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	protectionRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_protection_requests_total",
		Help: "Total number of requests evaluated by the protection pipeline",
	})
	protectionDeniedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_protection_denied_total",
		Help: "Total number of requests denied by the protection pipeline, by rule",
	}, []string{"rule"})
	protectionMonitoredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_protection_monitored_total",
		Help: "Total number of requests flagged but not blocked (monitor mode), by rule",
	}, []string{"rule"})
	sessionsIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_sessions_issued_total",
		Help: "Total number of sessions issued by sign-up and sign-in",
	})
	sessionsRevokedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_sessions_revoked_total",
		Help: "Total number of sessions revoked by sign-out",
	})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(
		protectionRequestsTotal,
		protectionDeniedTotal,
		protectionMonitoredTotal,
		sessionsIssuedTotal,
		sessionsRevokedTotal,
	)
}

// IncProtectionRequest increments the evaluated requests counter.
func IncProtectionRequest() { protectionRequestsTotal.Inc() }

// IncProtectionDenied increments the denied requests counter for a rule.
func IncProtectionDenied(rule string) { protectionDeniedTotal.WithLabelValues(rule).Inc() }

// IncProtectionMonitored increments the monitored requests counter for a rule.
func IncProtectionMonitored(rule string) { protectionMonitoredTotal.WithLabelValues(rule).Inc() }

// IncSessionIssued increments the issued sessions counter.
func IncSessionIssued() { sessionsIssuedTotal.Inc() }

// IncSessionRevoked increments the revoked sessions counter.
func IncSessionRevoked() { sessionsRevokedTotal.Inc() }
