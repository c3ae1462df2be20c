package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tallyup_http_request_duration_seconds",
			Help:    "HTTP request latency by route, method, and status.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)
	requestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tallyup_http_requests_in_flight",
			Help: "Requests currently being served.",
		},
	)
)

// Metrics records a latency histogram and an in-flight gauge for every
// request. Routes are labeled by template, not raw path, so IDs don't
// explode label cardinality.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestsInFlight.Inc()

		c.Next()

		requestsInFlight.Dec()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestDuration.WithLabelValues(
			route,
			c.Request.Method,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}
