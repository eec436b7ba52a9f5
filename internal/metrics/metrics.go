package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsEvaluated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_requests_evaluated_total",
		Help: "Total number of requests evaluated by the threat engine",
	})
	threatsDetected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_threats_detected_total",
		Help: "Total number of threat tags detected, by tag",
	}, []string{"tag"})
	ipsBlocked = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_ips_blocked_total",
		Help: "Total number of IP blocks written, by reason",
	}, []string{"reason"})
	notificationsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_notifications_total",
		Help: "Total number of security-team notifications emitted",
	})
	storageErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_storage_errors_total",
		Help: "Total number of storage backend failures absorbed fail-open",
	})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(requestsEvaluated, threatsDetected, ipsBlocked, notificationsSent, storageErrors)
}

// IncRequestEvaluated increments the evaluated requests counter.
func IncRequestEvaluated() { requestsEvaluated.Inc() }

// IncThreatDetected increments the detected threats counter for a tag.
func IncThreatDetected(tag string) { threatsDetected.WithLabelValues(tag).Inc() }

// IncIPBlocked increments the block counter for a reason.
func IncIPBlocked(reason string) { ipsBlocked.WithLabelValues(reason).Inc() }

// IncNotification increments the notification counter.
func IncNotification() { notificationsSent.Inc() }

// IncStorageError increments the absorbed storage failure counter.
func IncStorageError() { storageErrors.Inc() }
