package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	parameterUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spinlab_parameter_updates_total",
			Help: "Total number of applied hamiltonian parameter updates",
		},
		[]string{"operation", "hamiltonian"},
	)

	unsupportedOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spinlab_unsupported_operations_total",
			Help: "Total number of operations rejected by the active hamiltonian",
		},
		[]string{"operation", "hamiltonian"},
	)

	bondRegeneration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spinlab_bond_regeneration_seconds",
			Help:    "Time spent converting shell coefficients into explicit bonds",
			Buckets: prometheus.ExponentialBuckets(1e-5, 4, 8),
		},
		[]string{"term"},
	)

	generatedBonds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "spinlab_generated_bonds",
			Help: "Number of bonds produced by the most recent regeneration",
		},
		[]string{"term"},
	)
)

// Collector records parameter-store activity.
type Collector struct{}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) RecordUpdate(operation, hamiltonian string) {
	parameterUpdates.WithLabelValues(operation, hamiltonian).Inc()
}

func (c *Collector) RecordUnsupported(operation, hamiltonian string) {
	unsupportedOperations.WithLabelValues(operation, hamiltonian).Inc()
}

func (c *Collector) RecordRegeneration(term string, bonds int, took time.Duration) {
	bondRegeneration.WithLabelValues(term).Observe(took.Seconds())
	generatedBonds.WithLabelValues(term).Set(float64(bonds))
}

// Handler exposes every registered collector in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
