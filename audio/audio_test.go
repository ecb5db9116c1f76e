// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"io"
	"slices"
	"testing"

	"github.com/ik5/codecbench/internal/audiotest"
)

type mockDecoder struct{}

func (mockDecoder) Decode(io.Reader) (Source, error) {
	return audiotest.NewSilentSource(8000, 1, 10), nil
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register("WAV", mockDecoder{})
	reg.Register("mp3", mockDecoder{})

	if _, ok := reg.Get("wav"); !ok {
		t.Error("Get(wav) not found after Register(WAV)")
	}
	if _, ok := reg.Get("Mp3"); !ok {
		t.Error("Get(Mp3) not found, keys must be case-insensitive")
	}
	if _, ok := reg.Get("flac"); ok {
		t.Error("Get(flac) found an unregistered format")
	}

	if got, want := reg.Formats(), []string{"mp3", "wav"}; !slices.Equal(got, want) {
		t.Errorf("Formats() = %v, want %v", got, want)
	}
}

func TestWaveform_FromChannels(t *testing.T) {
	t.Parallel()

	left := []float32{0.1, 0.2, 0.3}
	right := []float32{-0.1, -0.2, -0.3}

	w, err := FromChannels(16000, left, right)
	if err != nil {
		t.Fatalf("FromChannels() error = %v", err)
	}

	want := []float32{0.1, -0.1, 0.2, -0.2, 0.3, -0.3}
	if !slices.Equal(w.Samples, want) {
		t.Errorf("Samples = %v, want %v", w.Samples, want)
	}
	if w.Frames() != 3 {
		t.Errorf("Frames() = %d, want 3", w.Frames())
	}
	if !slices.Equal(w.Channel(1), right) {
		t.Errorf("Channel(1) = %v, want %v", w.Channel(1), right)
	}

	if _, err := FromChannels(16000, left, right[:2]); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("uneven channels error = %v, want %v", err, ErrShortBuffer)
	}
	if _, err := FromChannels(16000); !errors.Is(err, ErrInvalidAudio) {
		t.Errorf("no channels error = %v, want %v", err, ErrInvalidAudio)
	}
}

func TestWaveform_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		w    Waveform
		want error
	}{
		{"mono", Waveform{SampleRate: 8000, Channels: 1, Samples: make([]float32, 3)}, nil},
		{"stereo", Waveform{SampleRate: 8000, Channels: 2, Samples: make([]float32, 4)}, nil},
		{"zero rate", Waveform{SampleRate: 0, Channels: 1}, ErrInvalidRate},
		{"three channels", Waveform{SampleRate: 8000, Channels: 3, Samples: make([]float32, 3)}, ErrInvalidAudio},
		{"no channels", Waveform{SampleRate: 8000}, ErrInvalidAudio},
		{"partial frame", Waveform{SampleRate: 8000, Channels: 2, Samples: make([]float32, 3)}, ErrShortBuffer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.w.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWaveform_Duration(t *testing.T) {
	t.Parallel()

	w := NewWaveform(16000, 2, 8000)
	if got := w.Duration(); got != 0.5 {
		t.Errorf("Duration() = %v, want 0.5", got)
	}
}

func TestCollect_RoundTrip(t *testing.T) {
	t.Parallel()

	samples := audiotest.SineSamples(10000, 16000, 2, 440, 0.5)
	w := &Waveform{SampleRate: 16000, Channels: 2, Samples: samples}

	got := collect(t, w.Source())

	if got.SampleRate != 16000 || got.Channels != 2 {
		t.Fatalf("got %d Hz/%dch, want 16000 Hz/2ch", got.SampleRate, got.Channels)
	}
	if !slices.Equal(got.Samples, samples) {
		t.Error("Collect(w.Source()) differs from w")
	}
}

// stalledSource never makes progress.
type stalledSource struct{}

func (stalledSource) SampleRate() int { return 8000 }
func (stalledSource) Channels() int   { return 1 }
func (stalledSource) BufSize() int    { return 16 }
func (stalledSource) Close() error    { return nil }
func (stalledSource) ReadSamples([]float32) (int, error) {
	return 0, nil
}

func TestCollect_NoProgress(t *testing.T) {
	t.Parallel()

	_, err := Collect(stalledSource{})
	if !errors.Is(err, io.ErrNoProgress) {
		t.Errorf("Collect() error = %v, want %v", err, io.ErrNoProgress)
	}
}

// failingSource returns data and then an error.
type failingSource struct{ err error }

func (failingSource) SampleRate() int { return 8000 }
func (failingSource) Channels() int   { return 1 }
func (failingSource) BufSize() int    { return 16 }
func (failingSource) Close() error    { return nil }
func (f failingSource) ReadSamples(dst []float32) (int, error) {
	return len(dst), f.err
}

func TestCollect_PropagatesError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	_, err := Collect(failingSource{err: boom})
	if !errors.Is(err, boom) {
		t.Errorf("Collect() error = %v, want %v", err, boom)
	}
}
