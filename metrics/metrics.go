package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studx",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "studx",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Messaging metrics
var (
	ConversationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "studx",
			Subsystem: "messaging",
			Name:      "conversations_created_total",
			Help:      "Total number of conversations created",
		},
	)

	ConversationsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "studx",
			Subsystem: "messaging",
			Name:      "conversations_deleted_total",
			Help:      "Total number of conversations deleted",
		},
	)

	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "studx",
			Subsystem: "messaging",
			Name:      "messages_sent_total",
			Help:      "Total number of messages sent",
		},
	)

	MessagesMarkedRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "studx",
			Subsystem: "messaging",
			Name:      "messages_marked_read_total",
			Help:      "Total number of messages transitioned to read",
		},
	)

	PushNotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studx",
			Subsystem: "notify",
			Name:      "push_notifications_total",
			Help:      "Web push delivery attempts by result",
		},
		[]string{"result"},
	)
)

// RecordRequest records a completed HTTP request.
func RecordRequest(method, route, status string, seconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}
