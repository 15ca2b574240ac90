package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsTotal,
		paymentsRevenueTotal,
		orphanedPaymentsTotal,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payments by status (pending/success/failed).",
		},
		[]string{"status"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value of successful payments, labeled by currency.",
		},
		[]string{"currency"},
	)

	// Gateway-confirmed settlements with no local payment record. Any
	// increment is alert-worthy.
	orphanedPaymentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_orphaned_total",
			Help: "Successful gateway transactions with no matching local payment record.",
		},
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(currency string, amount int64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}

func IncOrphanedPayment() {
	orphanedPaymentsTotal.Inc()
}
