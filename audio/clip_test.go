// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"bytes"
	"log/slog"
	"slices"
	"strings"
	"testing"
)

func TestPeak(t *testing.T) {
	t.Parallel()

	w := &Waveform{SampleRate: 8000, Channels: 2, Samples: []float32{0.1, -0.7, 0.5, 0.2}}
	if got := Peak(w); got != 0.7 {
		t.Errorf("Peak() = %v, want 0.7", got)
	}
}

func TestLimit_Rescale(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		samples []float32
	}{
		{"loud", []float32{2, -1, 0.5, -0.25}},
		{"loud negative", []float32{-3, 1.5, 0}},
		{"just above", []float32{0.995, -0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := &Waveform{SampleRate: 8000, Channels: 1, Samples: tt.samples}
			got := Limit(w, true)

			if p := Peak(got); p > ClipLimit {
				t.Errorf("peak after rescale = %v, want <= %v", p, ClipLimit)
			}

			// shape is kept: every sample is scaled by the same factor
			scale := ClipLimit / Peak(w)
			for i, v := range tt.samples {
				want := v * scale
				if d := got.Samples[i] - want; d > 1e-6 || d < -1e-6 {
					t.Errorf("sample %d = %v, want %v", i, got.Samples[i], want)
				}
			}
		})
	}
}

func TestLimit_RescaleNeverAmplifies(t *testing.T) {
	t.Parallel()

	samples := []float32{0.5, -0.3, 0.99, 0}
	w := &Waveform{SampleRate: 8000, Channels: 1, Samples: samples}

	got := Limit(w, true)
	if !slices.Equal(got.Samples, samples) {
		t.Errorf("Limit() = %v, want unchanged %v", got.Samples, samples)
	}
}

func TestLimit_Clamp(t *testing.T) {
	t.Parallel()

	w := &Waveform{SampleRate: 8000, Channels: 1, Samples: []float32{1.5, -2, 0.3, 0.99, -0.99}}
	got := Limit(w, false)

	want := []float32{0.99, -0.99, 0.3, 0.99, -0.99}
	if !slices.Equal(got.Samples, want) {
		t.Errorf("Limit() = %v, want %v", got.Samples, want)
	}
	if w.Samples[0] != 1.5 {
		t.Error("Limit() modified its input")
	}
}

func TestCheckClipping(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	samples := []float32{0.2, -1.5, 0.4}
	w := &Waveform{SampleRate: 8000, Channels: 1, Samples: slices.Clone(samples)}

	warning := CheckClipping(w, false, logger)
	if warning == nil {
		t.Fatal("CheckClipping() = nil, want a warning")
	}
	if warning.Peak != 1.5 || warning.Limit != ClipLimit {
		t.Errorf("warning = %+v, want peak 1.5 limit %v", warning, ClipLimit)
	}
	if !slices.Equal(w.Samples, samples) {
		t.Error("CheckClipping() modified the waveform")
	}

	out := buf.String()
	for _, want := range []string{"level=WARN", "peak=1.5", "limit=0.99", "-r option"} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q does not contain %q", out, want)
		}
	}
	if !strings.Contains(warning.Error(), "1.5") {
		t.Errorf("Error() = %q, want the peak in the message", warning.Error())
	}
}

func TestCheckClipping_Quiet(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	quiet := &Waveform{SampleRate: 8000, Channels: 1, Samples: []float32{0.99, -0.5}}
	if w := CheckClipping(quiet, false, logger); w != nil {
		t.Errorf("CheckClipping(quiet) = %v, want nil", w)
	}

	loud := &Waveform{SampleRate: 8000, Channels: 1, Samples: []float32{3}}
	if w := CheckClipping(loud, true, logger); w != nil {
		t.Errorf("CheckClipping(loud, rescale) = %v, want nil", w)
	}

	if buf.Len() != 0 {
		t.Errorf("unexpected log output %q", buf.String())
	}
}
