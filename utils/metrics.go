package utils

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cppla/pulso/models"
)

var (
	// Registry holds the application collectors exposed on /metrics.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pulso",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pulso",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	coinsAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pulso",
			Subsystem: "ledger",
			Name:      "coins_awarded_total",
			Help:      "Coins credited by committed ledger entries.",
		},
		[]string{"source", "convertible"},
	)

	coinsSpent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pulso",
			Subsystem: "ledger",
			Name:      "coins_spent_total",
			Help:      "Coins debited by committed ledger entries.",
		},
		[]string{"source"},
	)

	ledgerEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pulso",
			Subsystem: "ledger",
			Name:      "entries_total",
			Help:      "Committed ledger entries.",
		},
		[]string{"source"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		coinsAwarded,
		coinsSpent,
		ledgerEntries,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// MetricsHandler exposes Registry in the Prometheus text format.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished HTTP request. route is the matched
// gin route template so ids do not explode label cardinality.
func ObserveRequest(method, route string, status int, seconds float64) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(seconds)
}

// LedgerMetrics feeds committed ledger entries into the coin counters.
type LedgerMetrics struct{}

func (LedgerMetrics) ObserveEntry(e models.LedgerEntry) {
	source := string(e.SourceType)
	ledgerEntries.WithLabelValues(source).Inc()
	if e.Amount > 0 {
		coinsAwarded.WithLabelValues(source, strconv.FormatBool(e.IsConvertible)).Add(float64(e.Amount))
		return
	}
	coinsSpent.WithLabelValues(source).Add(float64(-e.Amount))
}
