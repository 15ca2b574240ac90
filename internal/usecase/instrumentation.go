package usecase

// FlowMetrics is the outbound port for the flow counters the payment and
// provisioning logic emits. The prometheus implementation lives in
// internal/infra/metrics; the use cases only see this interface.
type FlowMetrics interface {
	PaymentTransition(status string)
	PaymentRevenue(currency string, amount int64)
	OrphanedPayment()
	KeyIssued(source string)
	KeyDuplicateSuppressed()
}

type nopFlowMetrics struct{}

func (nopFlowMetrics) PaymentTransition(string)     {}
func (nopFlowMetrics) PaymentRevenue(string, int64) {}
func (nopFlowMetrics) OrphanedPayment()             {}
func (nopFlowMetrics) KeyIssued(string)             {}
func (nopFlowMetrics) KeyDuplicateSuppressed()      {}

func flowOrNop(f FlowMetrics) FlowMetrics {
	if f == nil {
		return nopFlowMetrics{}
	}
	return f
}
