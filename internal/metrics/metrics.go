package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AccountsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "user_service_accounts",
			Help: "Number of accounts currently held in memory",
		},
	)

	AccountMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_service_account_mutations_total",
			Help: "Account lifecycle operations by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	OrdersRecordedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "user_service_orders_recorded_total",
			Help: "Total number of orders recorded against usage counters",
		},
	)

	UsageResetsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "user_service_usage_resets_total",
			Help: "Total number of monthly usage resets",
		},
	)

	OrderLimitFallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_service_order_limit_fallback_total",
			Help: "Order limit lookups that missed the limit table and used the fallback",
		},
		[]string{"role", "tier"},
	)

	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_service_auth_attempts_total",
			Help: "Authentication attempts by outcome",
		},
		[]string{"outcome"},
	)

	CredentialHashSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "user_service_credential_hash_seconds",
			Help:    "Time spent hashing or comparing credentials, including pool wait",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"op"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "user_service_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordMutation counts a lifecycle operation; err decides the outcome label.
func RecordMutation(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	AccountMutationsTotal.WithLabelValues(op, outcome).Inc()
}

// ObserveHash records how long a credential operation took since start.
func ObserveHash(op string, start time.Time) {
	CredentialHashSeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
