package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		apiKeysIssuedTotal,
		apiKeyDuplicatesSuppressed,
	)
}

var (
	// source: payment|manual
	apiKeysIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_keys_issued_total",
			Help: "Credentials issued, by source flow.",
		},
		[]string{"source"},
	)

	// Lost check-then-create races resolved by the payment-link unique index.
	apiKeyDuplicatesSuppressed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "api_key_duplicates_suppressed_total",
			Help: "Concurrent credential inserts rejected by the payment-link unique constraint.",
		},
	)
)

func IncKeyIssued(source string) {
	apiKeysIssuedTotal.WithLabelValues(norm(source)).Inc()
}

func IncKeyDuplicateSuppressed() {
	apiKeyDuplicatesSuppressed.Inc()
}
