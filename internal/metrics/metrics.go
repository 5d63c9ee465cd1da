package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Number of currently active HTTP requests",
		},
	)

	MessagesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chats_messages_created_total",
			Help: "Messages stored by the create operation",
		},
	)

	MessagesConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chats_messages_consumed_total",
			Help: "Messages marked expired because their recipient listed them",
		},
	)

	UsersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chats_users_created_total",
			Help: "Users created implicitly by the first message addressed to them",
		},
	)

	MessagesPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chats_messages_purged_total",
			Help: "Expired messages deleted by the retention sweeper",
		},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chats_cache_lookups_total",
			Help: "By-id cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)
)
