package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plugin_http_requests_total",
			Help: "Plugin protocol requests by path and status code.",
		},
		[]string{"path", "status"},
	)

	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plugin_upstream_request_duration_seconds",
			Help:    "Latency of calls to the upstream provider.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, upstreamDuration)
}

// MetricsMiddleware counts every protocol request by path and status.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		requestsTotal.WithLabelValues(
			c.FullPath(),
			strconv.Itoa(c.Writer.Status()),
		).Inc()
	}
}

// observeUpstream records the latency of one upstream provider call.
func observeUpstream(operation string, d time.Duration) {
	upstreamDuration.WithLabelValues(operation).Observe(d.Seconds())
}
