// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const prefix = "catalogdesk"

// Feed names used as the "feed" label.
const (
	FeedOrders    = "orders"
	FeedSuppliers = "suppliers"
)

// Results used as the "result" label.
const (
	ResultOK         = "ok"
	ResultError      = "error"
	ResultParseError = "parse_error"
	ResultSuperseded = "superseded"
	ResultDeadLetter = "dead_letter"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Feed metrics
	FeedRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_feed_refresh_total",
			Help: "Feed refresh attempts by feed and result",
		},
		[]string{"feed", "result"},
	)

	OrdersCached = promauto.NewGauge(prometheus.GaugeOpts{
		Name: prefix + "_orders_cached",
		Help: "Orders in the current cached snapshot",
	})

	OrdersDropped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: prefix + "_orders_dropped",
		Help: "Rows dropped from the last order feed for lacking a placed date",
	})

	OrdersRefreshedAt = promauto.NewGauge(prometheus.GaugeOpts{
		Name: prefix + "_orders_refreshed_timestamp_seconds",
		Help: "Unix time of the last stored order snapshot",
	})

	// Outbound and background work
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name"},
	)

	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_jobs_processed_total",
			Help: "Background jobs by queue and result",
		},
		[]string{"queue", "result"},
	)
)

// RecordFeedRefresh increments the refresh counter for feed.
func RecordFeedRefresh(feed, result string) {
	FeedRefreshTotal.WithLabelValues(feed, result).Inc()
}

// SetOrderSnapshot publishes the size and age of a stored order snapshot.
func SetOrderSnapshot(count, dropped int, at time.Time) {
	OrdersCached.Set(float64(count))
	OrdersDropped.Set(float64(dropped))
	OrdersRefreshedAt.Set(float64(at.Unix()))
}

func SetBreakerState(name string, state int) {
	BreakerState.WithLabelValues(name).Set(float64(state))
}

func RecordJob(queue, result string) {
	JobsProcessed.WithLabelValues(queue, result).Inc()
}
