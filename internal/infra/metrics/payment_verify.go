package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		PaymentVerifyRequests,
		PaymentVerifyDuration,
	)
}

var (
	// Count of verify calls grouped by result and bounded reason.
	// result: success|failed|error
	// reason (non-success only): bad_json|missing_reference|gateway_rejected|gateway_unavailable|not_found|unknown
	PaymentVerifyRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_verify_requests_total",
			Help: "Count of /api/v1/payments/verify calls by result and reason.",
		},
		[]string{"result", "reason"},
	)

	// Latency of verify handler grouped by result.
	PaymentVerifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_verify_duration_seconds",
			Help:    "Duration of /api/v1/payments/verify handler in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"result"},
	)
)
