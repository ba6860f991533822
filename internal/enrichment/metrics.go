package enrichment

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsSink counts events as Prometheus metrics on a private registry so a
// batch run can dump them to a node_exporter textfile when it finishes.
type MetricsSink struct {
	registry   *prometheus.Registry
	records    *prometheus.CounterVec
	attributes *prometheus.CounterVec
	failures   *prometheus.CounterVec
}

// NewMetricsSink creates a MetricsSink with its own registry.
func NewMetricsSink() *MetricsSink {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &MetricsSink{
		registry: reg,
		records: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gameaugment_records_total",
			Help: "Records processed, by how their bundle was obtained.",
		}, []string{"outcome"}), // outcome: skipped, cache_hit, cache_miss
		attributes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gameaugment_attributes_total",
			Help: "Missing attributes looked up, by result.",
		}, []string{"attribute", "outcome", "source"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gameaugment_provider_errors_total",
			Help: "Failed provider lookups.",
		}, []string{"provider"}),
	}
}

// Emit records ev.
func (m *MetricsSink) Emit(ev Event) {
	switch ev.Outcome {
	case OutcomeSkipped, OutcomeCacheHit, OutcomeCacheMiss:
		m.records.WithLabelValues(string(ev.Outcome)).Inc()
	case OutcomeFound, OutcomeNotFound:
		m.attributes.WithLabelValues(string(ev.Attribute), string(ev.Outcome), ev.Source).Inc()
	case OutcomeError:
		m.failures.WithLabelValues(ev.Source).Inc()
	}
}

// Registry exposes the underlying registry.
func (m *MetricsSink) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in the Prometheus text format.
func (m *MetricsSink) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
