package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderAPICalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandwach_provider_api_calls_total",
			Help: "Total weather provider API calls",
		},
		[]string{"endpoint", "status"},
	)

	ProviderAPILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sandwach_provider_api_latency_seconds",
			Help:    "Weather provider API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	StaleServes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sandwach_cache_stale_serves_total",
			Help: "Snapshots served from a stale cache entry after a fetch failure",
		},
	)

	Evaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandwach_evaluations_total",
			Help: "Decision engine evaluations by window and resulting action",
		},
		[]string{"window", "action"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandwach_notifications_sent_total",
			Help: "Notification delivery attempts by channel and status",
		},
		[]string{"channel", "status"},
	)

	NotificationsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sandwach_notifications_suppressed_total",
			Help: "Deliveries skipped because the (window, day) was already recorded",
		},
	)
)
