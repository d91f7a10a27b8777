package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess    = "success"
	OutcomeDeclined   = "declined"
	OutcomeConnection = "connection_error"
	OutcomeError      = "error"
)

var (
	gatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_gateway_requests_total",
			Help: "Total number of payment gateway requests",
		},
		[]string{"gateway", "action", "outcome"},
	)

	gatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_request_duration_seconds",
			Help:    "Payment gateway request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"gateway", "action"},
	)

	paymentTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_state_transitions_total",
			Help: "Total number of persisted payment state transitions",
		},
		[]string{"event", "state"},
	)
)

func init() {
	prometheus.MustRegister(gatewayRequestsTotal)
	prometheus.MustRegister(gatewayRequestDuration)
	prometheus.MustRegister(paymentTransitionsTotal)
}

func ObserveGatewayRequest(gateway, action, outcome string, latency time.Duration) {
	gatewayRequestsTotal.WithLabelValues(gateway, action, outcome).Inc()
	gatewayRequestDuration.WithLabelValues(gateway, action).Observe(latency.Seconds())
}

func RecordTransition(event, state string) {
	paymentTransitionsTotal.WithLabelValues(event, state).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
