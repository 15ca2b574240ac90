package metrics

// FlowRecorder backs the use-case flow-metrics port with the prometheus
// collectors in this package.
type FlowRecorder struct{}

func NewFlowRecorder() FlowRecorder { return FlowRecorder{} }

func (FlowRecorder) PaymentTransition(status string) { IncPayment(status) }

func (FlowRecorder) PaymentRevenue(currency string, amount int64) {
	AddPaymentRevenue(currency, amount)
}

func (FlowRecorder) OrphanedPayment() { IncOrphanedPayment() }

func (FlowRecorder) KeyIssued(source string) { IncKeyIssued(source) }

func (FlowRecorder) KeyDuplicateSuppressed() { IncKeyDuplicateSuppressed() }
