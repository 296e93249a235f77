package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the notification service
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Replan pipeline metrics
	ReplansTotal       *prometheus.CounterVec
	PlanDuration       prometheus.Histogram
	EntriesScheduled   prometheus.Counter
	EntriesSkipped     prometheus.Counter
	EntriesFailed      prometheus.Counter
	StaleEntriesCancel prometheus.Counter

	// Realtime metrics
	ChangeEventsTotal *prometheus.CounterVec

	// Push fallback metrics
	PushDeliveriesTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics for the given service
func NewMetrics(serviceName string) *Metrics {
	labels := prometheus.Labels{"service": serviceName}

	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: labels,
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "path"}),

		ReplansTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "notification_replans_total",
			Help:        "Replan pipeline runs by outcome (planned, unchanged, error)",
			ConstLabels: labels,
		}, []string{"outcome"}),

		PlanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:        "notification_plan_duration_seconds",
			Help:        "Time spent computing and issuing a schedule plan",
			ConstLabels: labels,
			Buckets:     []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}),

		EntriesScheduled: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "notification_entries_scheduled_total",
			Help:        "Notification entries scheduled on the device port",
			ConstLabels: labels,
		}),

		EntriesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "notification_entries_skipped_total",
			Help:        "Notification entries skipped (disabled category or quiet hours)",
			ConstLabels: labels,
		}),

		EntriesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "notification_entries_failed_total",
			Help:        "Notification entries that failed to schedule",
			ConstLabels: labels,
		}),

		StaleEntriesCancel: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "notification_stale_entries_cancelled_total",
			Help:        "Previously scheduled entries cancelled because their config disappeared",
			ConstLabels: labels,
		}),

		ChangeEventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "notification_change_events_total",
			Help:        "Realtime config/preference change events received",
			ConstLabels: labels,
		}, []string{"source"}),

		PushDeliveriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "notification_push_deliveries_total",
			Help:        "Push fallback deliveries by result",
			ConstLabels: labels,
		}, []string{"result"}),
	}
}
