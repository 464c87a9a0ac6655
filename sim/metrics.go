package sim

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of one calculation. Each calculation
// owns a private registry, so parallel calculations never collide; the
// registry is flushed to a node-exporter textfile when the run ends.
//
// Metrics:
//   - tint_equilibration_cycles_total - pressure cycles run
//   - tint_cycle_pressure - mean pressure of the latest cycle
//   - tint_solid_fraction - solid fraction of the equilibrated snapshot
//   - tint_stage_duration_seconds{stage} - wall time per stage
//   - tint_failures_total{kind} - failed calculations by error kind
//   - tint_work / tint_work_error - reversible work estimate (eV/atom)
//   - tint_free_energy - final free energy (eV/atom)
type Metrics struct {
	registry *prometheus.Registry

	Cycles        prometheus.Counter
	CyclePressure prometheus.Gauge
	SolidFraction prometheus.Gauge
	StageDuration *prometheus.HistogramVec
	Failures      *prometheus.CounterVec
	Work          prometheus.Gauge
	WorkError     prometheus.Gauge
	FreeEnergy    prometheus.Gauge
}

// NewMetrics creates the metrics of calculation id on a fresh registry.
func NewMetrics(id string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	labels := prometheus.Labels{"calculation": id}
	return &Metrics{
		registry: reg,
		Cycles: factory.NewCounter(prometheus.CounterOpts{
			Name:        "tint_equilibration_cycles_total",
			Help:        "Total number of pressure equilibration cycles",
			ConstLabels: labels,
		}),
		CyclePressure: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "tint_cycle_pressure",
			Help:        "Mean pressure of the latest equilibration cycle",
			ConstLabels: labels,
		}),
		SolidFraction: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "tint_solid_fraction",
			Help:        "Fraction of solid-like atoms after equilibration",
			ConstLabels: labels,
		}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "tint_stage_duration_seconds",
			Help:        "Wall time spent per workflow stage",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1, 4, 10), // 1s to ~3d
		}, []string{"stage"}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "tint_failures_total",
			Help:        "Failed calculations by error kind",
			ConstLabels: labels,
		}, []string{"kind"}),
		Work: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "tint_work",
			Help:        "Reversible switching work in eV/atom",
			ConstLabels: labels,
		}),
		WorkError: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "tint_work_error",
			Help:        "Standard error of the switching work in eV/atom",
			ConstLabels: labels,
		}),
		FreeEnergy: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "tint_free_energy",
			Help:        "Free energy in eV/atom",
			ConstLabels: labels,
		}),
	}
}

// Registry exposes the underlying registry, e.g. for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile writes all metrics in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// FailureKind maps an error onto a low-cardinality label.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, ErrConvergence):
		return "convergence"
	case errors.Is(err, ErrMeltedStructure):
		return "melted"
	case errors.Is(err, ErrFrozenStructure):
		return "frozen"
	case errors.Is(err, ErrBackend):
		return "backend"
	case errors.Is(err, ErrOutOfRangeReference):
		return "reference"
	case errors.Is(err, ErrAsymmetricSwitching):
		return "asymmetric"
	case errors.Is(err, ErrIncompleteSwitching):
		return "incomplete"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	}
	return "other"
}
