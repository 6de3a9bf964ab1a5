package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "prediction_league"

// SettlementMetrics records settlement runs on a prometheus registry.
type SettlementMetrics struct {
	runs           *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	fixturesScored prometheus.Counter
	lookupFailures prometheus.Counter
}

func NewSettlementMetrics(registerer prometheus.Registerer) (*SettlementMetrics, error) {
	m := &SettlementMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "settlement",
			Name:      "runs_total",
			Help:      "Settlement runs by outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "settlement",
			Name:      "run_duration_seconds",
			Help:      "Wall time of settlement runs.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"outcome"}),
		fixturesScored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "settlement",
			Name:      "fixtures_scored_total",
			Help:      "Fixtures that received a final result.",
		}),
		lookupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "settlement",
			Name:      "result_lookup_failures_total",
			Help:      "Result provider lookups that failed and were skipped.",
		}),
	}

	for _, c := range []prometheus.Collector{m.runs, m.runDuration, m.fixturesScored, m.lookupFailures} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *SettlementMetrics) ObserveRun(outcome string, duration time.Duration) {
	m.runs.WithLabelValues(outcome).Inc()
	m.runDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *SettlementMetrics) AddFixturesScored(count int) {
	if count > 0 {
		m.fixturesScored.Add(float64(count))
	}
}

func (m *SettlementMetrics) IncLookupFailure() {
	m.lookupFailures.Inc()
}

// NewRegistry returns a registry preloaded with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}
