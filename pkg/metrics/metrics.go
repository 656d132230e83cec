package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InvitationEvents counts lifecycle transitions by event (created|accepted|declined|resent|cancelled)
	// and result (success|failure).
	InvitationEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamseats_invitation_events_total",
			Help: "Total number of invitation lifecycle events",
		},
		[]string{"event", "result"},
	)

	// InvitationRejections counts create and resolve attempts refused by policy, labelled by error code.
	InvitationRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamseats_invitation_rejections_total",
			Help: "Total number of invitation operations rejected by policy",
		},
		[]string{"code"},
	)

	// DispatchFailures counts notification deliveries that failed.
	DispatchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "teamseats_dispatch_failures_total",
			Help: "Total number of invitation emails that could not be delivered",
		},
	)

	// QuotaRejections counts simulated usage refused because the quota would be exceeded.
	QuotaRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamseats_quota_rejections_total",
			Help: "Total number of usage increments rejected by quota",
		},
		[]string{"kind"},
	)

	// DashboardCommands counts dashboard commands by name and outcome (confirmed|reconciled).
	DashboardCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamseats_dashboard_commands_total",
			Help: "Total number of dashboard commands applied",
		},
		[]string{"command", "outcome"},
	)

	// RequestsInFlight tracks HTTP requests currently being served.
	RequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "teamseats_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// RateLimited counts requests refused by the rate limiter, labelled by route.
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamseats_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"path"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "teamseats_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
