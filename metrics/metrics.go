// Package metrics counts indexing and dedup outcomes on a private Prometheus
// registry so a run can be exported to the node-exporter textfile collector.
package metrics

import (
	"fmt"

	"dupfinder/scanner"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters of one dupfinder run
type Metrics struct {
	registry *prometheus.Registry

	// Indexing metrics
	FilesTotal *prometheus.CounterVec

	// Matching metrics
	GroupsFound *prometheus.CounterVec

	// Resolver metrics
	RelocationsTotal *prometheus.CounterVec
}

// New creates a Metrics instance with every counter registered on its own registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FilesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dupfinder_files_total",
				Help: "Image files seen by the indexer, by outcome",
			},
			[]string{"outcome"},
		),
		GroupsFound: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dupfinder_groups_found_total",
				Help: "Duplicate groups reported, by match mode",
			},
			[]string{"mode"},
		),
		RelocationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dupfinder_relocations_total",
				Help: "Files moved to the trash, by status",
			},
			[]string{"status"},
		),
	}
}

// Registry exposes the private registry, e.g. for promhttp or tests
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Observe implements scanner.Observer
func (m *Metrics) Observe(_ string, outcome scanner.Outcome) {
	m.FilesTotal.WithLabelValues(outcome.String()).Inc()
}

// RecordGroups adds n groups found in the given mode ("exact" or "fuzzy")
func (m *Metrics) RecordGroups(mode string, n int) {
	m.GroupsFound.WithLabelValues(mode).Add(float64(n))
}

// RecordRelocations adds the outcome of a resolver run
func (m *Metrics) RecordRelocations(deleted, failed int) {
	m.RelocationsTotal.WithLabelValues("deleted").Add(float64(deleted))
	m.RelocationsTotal.WithLabelValues("failed").Add(float64(failed))
}

// WriteToTextfile writes every metric to path in the text exposition format
func (m *Metrics) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("cannot write metrics to %s: %w", path, err)
	}
	return nil
}
