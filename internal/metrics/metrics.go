package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	httpRequestDuration *prometheus.HistogramVec
	httpRequestTotal    *prometheus.CounterVec
	billingOutcomes     *prometheus.CounterVec
	billingLatency      *prometheus.HistogramVec
	subscriptionEvents  *prometheus.CounterVec
	wsConnections       prometheus.Gauge
)

func initMetrics() {
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vas",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration observed at the API layer.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route", "status"},
	)

	httpRequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vas",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the API.",
		},
		[]string{"method", "route", "status"},
	)

	billingOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vas",
			Subsystem: "billing",
			Name:      "operations_total",
			Help:      "Simulated telco billing operations by provider and outcome.",
		},
		[]string{"provider", "operation", "outcome"},
	)

	billingLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vas",
			Subsystem: "billing",
			Name:      "operation_duration_seconds",
			Help:      "Time spent waiting on the simulated telco.",
			Buckets:   []float64{0.25, 0.5, 0.75, 1, 2},
		},
		[]string{"provider", "operation"},
	)

	subscriptionEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vas",
			Subsystem: "subscriptions",
			Name:      "events_total",
			Help:      "Subscription lifecycle transitions.",
		},
		[]string{"event"},
	)

	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vas",
			Subsystem: "websocket",
			Name:      "connections",
			Help:      "Open websocket connections.",
		},
	)

	prometheus.MustRegister(
		httpRequestDuration,
		httpRequestTotal,
		billingOutcomes,
		billingLatency,
		subscriptionEvents,
		wsConnections,
	)
}

func RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	metricsOnce.Do(initMetrics)

	statusCode := strconv.Itoa(status)
	httpRequestDuration.WithLabelValues(method, route, statusCode).Observe(elapsed.Seconds())
	httpRequestTotal.WithLabelValues(method, route, statusCode).Inc()
}

func RecordBilling(provider, operation string, success bool, elapsed time.Duration) {
	metricsOnce.Do(initMetrics)

	outcome := "failure"
	if success {
		outcome = "success"
	}
	billingOutcomes.WithLabelValues(provider, operation, outcome).Inc()
	billingLatency.WithLabelValues(provider, operation).Observe(elapsed.Seconds())
}

func RecordSubscriptionEvent(event string) {
	metricsOnce.Do(initMetrics)
	subscriptionEvents.WithLabelValues(event).Inc()
}

func SetWebsocketConnections(n int) {
	metricsOnce.Do(initMetrics)
	wsConnections.Set(float64(n))
}
