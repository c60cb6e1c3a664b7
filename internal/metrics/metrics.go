package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SagaOperations counts confirm/cancel outcomes by result.
	SagaOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_saga_operations_total",
		Help: "Booking saga operations by operation and outcome.",
	}, []string{"operation", "outcome"})

	// Compensations counts compensating actions issued after a saga step
	// partially failed. A failed compensation is the signal an operator
	// must reconcile manually.
	Compensations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_saga_compensations_total",
		Help: "Compensating actions by operation and outcome.",
	}, []string{"operation", "outcome"})

	// SeatReservationConflicts counts lost conditional writes against the
	// flight service.
	SeatReservationConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_seat_reservation_conflicts_total",
		Help: "Conditional seat writes lost to a concurrent coordinator.",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_http_requests_total",
		Help: "HTTP requests by method, path and status.",
	}, []string{"method", "path", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "booking_http_request_duration_seconds",
		Help:    "HTTP request latency by method and path.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Handler exposes the default registry for GET /metrics.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Middleware records per-request counters and latency. The route
// template is used instead of the raw path to keep cardinality bounded.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		httpRequests.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).
			Observe(time.Since(start).Seconds())
	}
}
