package resilience

import "github.com/prometheus/client_golang/prometheus"

// Breaker collectors, labelled by target. The state gauge uses the State
// values: 0 closed, 1 open, 2 half-open.
var (
	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "breaker_state",
		Help: "Current outbound breaker state (0 closed, 1 open, 2 half-open).",
	}, []string{"target"})
	BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "breaker_transition_total",
		Help: "Outbound breaker state transitions.",
	}, []string{"target", "from", "to"})
	BreakerOpenedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "breaker_open_total",
		Help: "Times the outbound breaker opened.",
	}, []string{"target"})
	BreakerRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "breaker_rejected_total",
		Help: "Calls refused without reaching the upstream.",
	}, []string{"target"})
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal, BreakerRejected)
}
