// Package metrics provides Prometheus metrics for HTTP traffic and reply mail.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// NotificationsEnqueued counts reply notifications written to the outbox.
	NotificationsEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reply_notifications_enqueued_total",
			Help: "Reply notifications written to the outbox",
		},
	)

	// NotificationsSent counts reply notifications accepted by the transport.
	NotificationsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reply_notifications_sent_total",
			Help: "Reply notifications accepted by the mail transport",
		},
	)

	// NotificationsFailed counts failed notification attempts by reason.
	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reply_notifications_failed_total",
			Help: "Failed reply notification attempts",
		},
		[]string{"reason"},
	)
)

// Middleware records request counters and latency, labelled by gin route pattern.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
