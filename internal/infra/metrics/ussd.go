package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(ussdStepsTotal) }

var ussdStepsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ussd_steps_total",
		Help: "USSD steps handled, labeled by the state they started in and the result kind.",
	},
	[]string{"state", "result"}, // result: continue|terminal|error
)

func IncUSSDStep(state, result string) {
	ussdStepsTotal.WithLabelValues(norm(state), norm(result)).Inc()
}
