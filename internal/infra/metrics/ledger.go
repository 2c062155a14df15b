package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		reconcileTotal,
		votesRecordedTotal,
		paymentsRevenueTotal,
		admissionCodesTotal,
	)
}

var (
	// outcome: settled|already_processed|verification_failed|rejected|error
	reconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_reconcile_total",
			Help: "Reconciliation attempts by source (verify/webhook/reconciler) and outcome.",
		},
		[]string{"source", "outcome"},
	)

	votesRecordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "votes_recorded_total",
			Help: "Votes written to the ledger, labeled by poll type.",
		},
		[]string{"poll_type"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value of settled payments, labeled by transaction type.",
		},
		[]string{"type"},
	)

	// result: used|not_found|already_used|cap_reached
	admissionCodesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_code_spends_total",
			Help: "Admission code spend attempts by result.",
		},
		[]string{"result"},
	)
)

func IncReconcile(source, outcome string) {
	reconcileTotal.WithLabelValues(norm(source), norm(outcome)).Inc()
}

func AddVotes(pollType string, n int) {
	votesRecordedTotal.WithLabelValues(norm(pollType)).Add(float64(n))
}

func AddRevenue(txType string, amount float64) {
	paymentsRevenueTotal.WithLabelValues(norm(txType)).Add(amount)
}

func IncCodeSpend(result string) {
	admissionCodesTotal.WithLabelValues(norm(result)).Inc()
}
