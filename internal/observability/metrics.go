package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_http_requests_total",
			Help: "Total number of HTTP requests processed by the relay.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_ws_active_connections",
			Help: "Number of open websocket channels.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_ws_events_total",
			Help: "Total number of websocket lifecycle events.",
		},
		[]string{"event"},
	)
	envelopesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_envelopes_total",
			Help: "Inbound envelopes by type and outcome.",
		},
		[]string{"type", "outcome"},
	)
	undeliverableTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_undeliverable_total",
			Help: "Forwards addressed to an identity with no open channel.",
		},
		[]string{"type"},
	)
	presenceUsers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_presence_users",
			Help: "Presence records currently held.",
		},
	)
	cleanupPassesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_cleanup_passes_total",
			Help: "Cleanup passes by result.",
		},
		[]string{"result"},
	)
	cleanupRemovedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_cleanup_removed_total",
			Help: "Records removed by cleanup passes.",
		},
		[]string{"kind"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		envelopesTotal,
		undeliverableTotal,
		presenceUsers,
		cleanupPassesTotal,
		cleanupRemovedTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

// Envelope outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeMalformed = "malformed"
	OutcomeUnknown   = "unknown"
	OutcomePanic     = "panic"
	OutcomeError     = "error"
)

func IncEnvelope(typ, outcome string) {
	envelopesTotal.WithLabelValues(typ, outcome).Inc()
}

func IncUndeliverable(typ string) {
	undeliverableTotal.WithLabelValues(typ).Inc()
}

func SetPresenceUsers(n int) {
	presenceUsers.Set(float64(n))
}

func IncCleanupPass(result string) {
	cleanupPassesTotal.WithLabelValues(result).Inc()
}

func AddCleanupRemoved(kind string, n int) {
	cleanupRemovedTotal.WithLabelValues(kind).Add(float64(n))
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
