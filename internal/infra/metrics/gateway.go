package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(gatewayRequests, gatewayDuration)
}

var (
	// result: ok|unavailable|rejected
	gatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_gateway_requests_total",
			Help: "Calls to the payment gateway by operation and result.",
		},
		[]string{"gateway", "op", "result"},
	)

	gatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_duration_seconds",
			Help:    "Latency of payment gateway calls in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"gateway", "op"},
	)
)

func ObserveGatewayCall(gateway, op, result string, d time.Duration) {
	gatewayRequests.WithLabelValues(norm(gateway), norm(op), norm(result)).Inc()
	gatewayDuration.WithLabelValues(norm(gateway), norm(op)).Observe(d.Seconds())
}
