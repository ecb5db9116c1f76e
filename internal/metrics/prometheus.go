// SPDX-License-Identifier: EPL-2.0

// Package metrics holds the Prometheus collectors of a codecbench run.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status label values of FilesTotal.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Metrics contains all Prometheus metrics for a batch run
type Metrics struct {
	registry *prometheus.Registry

	FilesTotal        *prometheus.CounterVec
	ClippingWarnings  prometheus.Counter
	FileDuration      prometheus.Histogram
	CodeBytes         prometheus.Histogram
	WeightNormRemoved prometheus.Gauge
}

// NewMetrics creates the collectors on a registry of their own.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		FilesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "codecbench_files_total",
			Help: "Total number of input files by outcome",
		}, []string{"status"}),
		ClippingWarnings: factory.NewCounter(prometheus.CounterOpts{
			Name: "codecbench_clipping_warnings_total",
			Help: "Total number of decoded files that exceeded the clip limit",
		}),
		FileDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "codecbench_file_duration_seconds",
			Help:    "Wall time spent on one file",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		}),
		CodeBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "codecbench_code_bytes",
			Help:    "Size of the compressed code of one file",
			Buckets: prometheus.ExponentialBuckets(256, 2, 14), // 256B to ~2MB
		}),
		WeightNormRemoved: factory.NewGauge(prometheus.GaugeOpts{
			Name: "codecbench_weightnorm_stripped_modules",
			Help: "Number of modules whose weight norm was removed at startup",
		}),
	}
}

// Registry exposes the gatherer, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordFile records one processed file.
func (m *Metrics) RecordFile(status string, durationSeconds float64, codeBytes int) {
	if m == nil {
		return
	}

	m.FilesTotal.WithLabelValues(status).Inc()
	m.FileDuration.Observe(durationSeconds)
	if status == StatusOK {
		m.CodeBytes.Observe(float64(codeBytes))
	}
}

// RecordSkipped counts a file that was never attempted.
func (m *Metrics) RecordSkipped() {
	if m == nil {
		return
	}
	m.FilesTotal.WithLabelValues(StatusSkipped).Inc()
}

func (m *Metrics) RecordClipping() {
	if m == nil {
		return
	}
	m.ClippingWarnings.Inc()
}

func (m *Metrics) SetWeightNormRemoved(n int) {
	if m == nil {
		return
	}
	m.WeightNormRemoved.Set(float64(n))
}

// WriteTextfile writes every metric in the text exposition format, for the
// node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}

	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}

	return nil
}
