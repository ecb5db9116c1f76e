// SPDX-License-Identifier: EPL-2.0

package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RecordFile(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.RecordFile(StatusOK, 0.5, 1200)
	m.RecordFile(StatusOK, 0.25, 800)
	m.RecordFile(StatusFailed, 0.1, 0)
	m.RecordSkipped()
	m.RecordClipping()
	m.SetWeightNormRemoved(36)

	tests := []struct {
		status string
		want   float64
	}{
		{StatusOK, 2},
		{StatusFailed, 1},
		{StatusSkipped, 1},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(m.FilesTotal.WithLabelValues(tt.status)); got != tt.want {
			t.Errorf("files_total{status=%q} = %v, want %v", tt.status, got, tt.want)
		}
	}

	if got := testutil.ToFloat64(m.ClippingWarnings); got != 1 {
		t.Errorf("clipping warnings = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.WeightNormRemoved); got != 36 {
		t.Errorf("stripped modules = %v, want 36", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.RecordFile(StatusOK, 1, 1)
	m.RecordSkipped()
	m.RecordClipping()
	m.SetWeightNormRemoved(1)

	if m.Registry() != nil {
		t.Error("nil metrics returned a registry")
	}
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Errorf("WriteTextfile: %v", err)
	}
}

func TestMetrics_WriteTextfile(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.RecordFile(StatusOK, 0.5, 1200)
	m.RecordFile(StatusFailed, 0.5, 0)

	path := filepath.Join(t.TempDir(), "codecbench.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	for _, want := range []string{
		`codecbench_files_total{status="ok"} 1`,
		`codecbench_files_total{status="failed"} 1`,
		"codecbench_file_duration_seconds_count 2",
		"codecbench_code_bytes_count 1",
		"codecbench_code_bytes_sum 1200",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile lacks %q:\n%s", want, data)
		}
	}
}

func TestMetrics_WriteTextfileBadDir(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom")); err == nil {
		t.Error("expected an error for a missing directory")
	}
}
