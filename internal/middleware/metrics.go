package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	votesCastTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "consensus_votes_cast_total",
			Help: "Total number of votes cast or overwritten",
		},
	)

	// source: vote, finalize or shortcut
	commitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consensus_commits_total",
			Help: "Total number of committed consensus records",
		},
		[]string{"source"},
	)

	chainSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consensus_chain_submissions_total",
			Help: "Total number of chain submissions by outcome",
		},
		[]string{"status"},
	)

	sessionStatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consensus_session_status_changes_total",
			Help: "Session status transitions by target status",
		},
		[]string{"status"},
	)

	proposerCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "proposer_call_duration_seconds",
			Help:    "Chain proposer call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"outcome"},
	)
)

// MetricsMiddleware collects Prometheus metrics for HTTP requests.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpRequestsInFlight.Inc()

		// route pattern keeps session ids out of the label set
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}

		c.Next()

		httpRequestsInFlight.Dec()

		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

func RecordVoteCast() {
	votesCastTotal.Inc()
}

func RecordCommit(source string) {
	commitsTotal.WithLabelValues(source).Inc()
}

// RecordChainSubmission counts a submission outcome ("submitted" or "failed").
func RecordChainSubmission(status string) {
	chainSubmissionsTotal.WithLabelValues(status).Inc()
}

func RecordStatusChange(status int) {
	sessionStatusChanges.WithLabelValues(strconv.Itoa(status)).Inc()
}

// RecordProposerCall matches client.ProposerConfig.Observe.
func RecordProposerCall(outcome string, elapsed time.Duration) {
	proposerCallDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}
