package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"axiomind/internal/engine"
)

// apiMetrics holds the Prometheus collectors. Each server carries its own
// registry so tests can build servers independently.
type apiMetrics struct {
	registry *prometheus.Registry
	queries  *prometheus.CounterVec
}

// newAPIMetrics registers the collectors. The gauges sample the live system
// on every scrape.
func newAPIMetrics(sys *engine.System) *apiMetrics {
	registry := prometheus.NewRegistry()

	queries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "axiomind",
		Name:      "requests_total",
		Help:      "API requests by endpoint",
	}, []string{"endpoint"})
	registry.MustRegister(queries)

	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "axiomind",
		Name:      "lambda_total",
		Help:      "Current capability metric",
	}, func() float64 {
		return sys.State().LambdaTotal()
	}))

	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "axiomind",
		Name:      "cycles_completed",
		Help:      "Reflection cycles applied so far",
	}, func() float64 {
		return float64(sys.State().CycleCount())
	}))

	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "axiomind",
		Name:      "cache_hit_rate",
		Help:      "Reasoning cache hit rate",
	}, func() float64 {
		return sys.Reasoner().GetStats().CacheHitRate
	}))

	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "axiomind",
		Name:      "avg_emergence",
		Help:      "Mean emergence across recorded paths",
	}, func() float64 {
		return sys.GetMetrics().AvgEmergence
	}))

	return &apiMetrics{registry: registry, queries: queries}
}
