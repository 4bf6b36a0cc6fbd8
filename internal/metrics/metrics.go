package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
	AuthRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_rejections_total",
			Help: "Total number of rejected admin requests",
		},
		[]string{"reason"},
	)

	ScoreSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civle_score_submissions_total",
			Help: "Score submissions by outcome",
		},
		[]string{"outcome"},
	)
	WinnerScreenshots = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civle_winner_screenshots_total",
			Help: "Winner screenshot operations by op and result",
		},
		[]string{"op", "result"},
	)
	RetentionDeleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civle_retention_deleted_total",
			Help: "Files removed by the retention sweeper",
		},
		[]string{"kind"},
	)
	RetentionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civle_retention_errors_total",
			Help: "Files the retention sweeper failed to remove",
		},
		[]string{"kind"},
	)
)

// Outcome labels for ScoreSubmissions.
const (
	OutcomeAccepted = "accepted"
	OutcomeMerged   = "merged"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Register adds every collector to reg. Call once from main.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AuthRejections,
		ScoreSubmissions,
		WinnerScreenshots,
		RetentionDeleted,
		RetentionErrors,
	)
}
