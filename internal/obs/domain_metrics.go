package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// GatewayRequestTotal counts outbound gateway calls by operation and outcome kind.
	GatewayRequestTotal *prometheus.CounterVec
	// GatewayRequestDuration records outbound gateway latency in milliseconds.
	GatewayRequestDuration *prometheus.HistogramVec
	// SignaturesTotal counts signatures produced per digest algorithm.
	SignaturesTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers gateway Prometheus collectors.
// Until it runs the collectors stay nil and instrumentation is skipped.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		GatewayRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_requests_total",
			Help:      "Count of payment gateway calls by operation and result.",
		}, []string{"operation", "result"})
		GatewayRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_ms",
			Help:      "Latency of payment gateway calls in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"operation"})
		SignaturesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signatures_total",
			Help:      "Count of request signatures generated by algorithm.",
		}, []string{"algorithm"})

		GatewayRequestTotal = register(reg, GatewayRequestTotal)
		GatewayRequestDuration = register(reg, GatewayRequestDuration)
		SignaturesTotal = register(reg, SignaturesTotal)
	})
}

// ObserveGatewayCall records one outbound call. Safe to call before registration.
func ObserveGatewayCall(operation, result string, millis float64) {
	if GatewayRequestTotal != nil {
		GatewayRequestTotal.WithLabelValues(operation, result).Inc()
	}
	if GatewayRequestDuration != nil {
		GatewayRequestDuration.WithLabelValues(operation).Observe(millis)
	}
}

// ObserveSignature records one generated signature.
func ObserveSignature(algorithm string) {
	if SignaturesTotal != nil {
		SignaturesTotal.WithLabelValues(algorithm).Inc()
	}
}
