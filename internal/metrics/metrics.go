// Package metrics exposes Prometheus collectors for HTTP traffic and the
// attempt lifecycle.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	AttemptsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exam_attempts_started_total",
			Help: "Start requests by outcome (start, resume, reject)",
		},
		[]string{"outcome"},
	)

	AttemptsFinalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exam_attempts_finalized_total",
			Help: "Attempts that reached a terminal status",
		},
		[]string{"status"},
	)

	EligibilityRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exam_eligibility_rejections_total",
			Help: "Eligibility rejections by reason",
		},
		[]string{"reason"},
	)

	Materializations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "question_paper_materializations_total",
			Help: "Random paper generations by result",
		},
		[]string{"result"},
	)

	ScoringDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "exam_scoring_duration_seconds",
			Help:    "Time spent scoring one attempt",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)
)

var registerOnce sync.Once

// Register adds all collectors to the default registry. It is safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			AttemptsStarted,
			AttemptsFinalized,
			EligibilityRejections,
			Materializations,
			ScoringDuration,
		)
	})
}

// Middleware records request counts and latencies per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		RequestCounter.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the Prometheus exposition format.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
