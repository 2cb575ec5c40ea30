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

const namespace = "resumate"

var (
	httpInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "in_flight_requests",
		Help:      "Requests currently being served.",
	})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Request latency by route template.",
		// generate-resume waits on the model and the browser, so the tail is long.
		Buckets: []float64{.005, .025, .1, .25, .5, 1, 2.5, 5, 15, 30, 90},
	}, []string{"method", "route", "code"})

	httpResponseBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "Response body size by route template.",
		Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
	}, []string{"method", "route"})
)

// routeLabel keeps label cardinality bounded: unmatched paths collapse to one value.
func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}

// GinMiddleware records latency, response size and concurrency per route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		httpInFlight.Inc()
		started := time.Now()
		defer httpInFlight.Dec()

		c.Next()

		method, route := c.Request.Method, routeLabel(c)
		code := strconv.Itoa(c.Writer.Status())
		httpLatency.WithLabelValues(method, route, code).Observe(time.Since(started).Seconds())
		if size := c.Writer.Size(); size > 0 {
			httpResponseBytes.WithLabelValues(method, route).Observe(float64(size))
		}
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
