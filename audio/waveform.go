// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
)

// Waveform is a whole audio buffer held in memory.
// Samples are interleaved by frame, so the logical shape is
// (Channels, Frames()) with sample (c, i) at Samples[i*Channels+c].
type Waveform struct {
	SampleRate int
	Channels   int
	Samples    []float32
}

// NewWaveform allocates a silent waveform of the given number of frames.
func NewWaveform(sampleRate, channels, frames int) *Waveform {
	return &Waveform{
		SampleRate: sampleRate,
		Channels:   channels,
		Samples:    make([]float32, frames*channels),
	}
}

// FromChannels builds an interleaved waveform from planar channel slices.
// All channels must have the same length.
func FromChannels(sampleRate int, channels ...[]float32) (*Waveform, error) {
	if len(channels) == 0 {
		return nil, ErrInvalidAudio
	}

	frames := len(channels[0])
	for c, ch := range channels {
		if len(ch) != frames {
			return nil, fmt.Errorf("channel %d has %d samples, want %d: %w", c, len(ch), frames, ErrShortBuffer)
		}
	}

	w := NewWaveform(sampleRate, len(channels), frames)
	for c, ch := range channels {
		for i, v := range ch {
			w.Samples[i*w.Channels+c] = v
		}
	}

	return w, nil
}

// Frames is the number of samples per channel.
func (w *Waveform) Frames() int {
	if w.Channels == 0 {
		return 0
	}
	return len(w.Samples) / w.Channels
}

// Duration in seconds.
func (w *Waveform) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(w.Frames()) / float64(w.SampleRate)
}

// Channel returns a copy of channel c as a planar slice.
func (w *Waveform) Channel(c int) []float32 {
	frames := w.Frames()
	out := make([]float32, frames)
	for i := range frames {
		out[i] = w.Samples[i*w.Channels+c]
	}
	return out
}

func (w *Waveform) Clone() *Waveform {
	return &Waveform{
		SampleRate: w.SampleRate,
		Channels:   w.Channels,
		Samples:    append([]float32(nil), w.Samples...),
	}
}

// Validate checks the invariants every stage relies on.
func (w *Waveform) Validate() error {
	if w.SampleRate <= 0 {
		return fmt.Errorf("%d Hz: %w", w.SampleRate, ErrInvalidRate)
	}
	if w.Channels < 1 || w.Channels > 2 {
		return fmt.Errorf("%d channels: %w", w.Channels, ErrInvalidAudio)
	}
	if len(w.Samples)%w.Channels != 0 {
		return ErrShortBuffer
	}
	return nil
}

// Source streams the waveform. The samples are not copied, so the waveform
// must not be modified while the source is read.
func (w *Waveform) Source() Source {
	return &waveformSource{w: w}
}

type waveformSource struct {
	w   *Waveform
	pos int
}

func (s *waveformSource) SampleRate() int { return s.w.SampleRate }
func (s *waveformSource) Channels() int   { return s.w.Channels }
func (s *waveformSource) BufSize() int    { return 4096 }
func (s *waveformSource) Close() error    { return nil }

func (s *waveformSource) ReadSamples(dst []float32) (int, error) {
	if s.pos >= len(s.w.Samples) {
		return 0, io.EOF
	}

	// whole frames only
	n := len(dst) - len(dst)%s.w.Channels
	n = copy(dst[:n], s.w.Samples[s.pos:])
	s.pos += n

	if s.pos >= len(s.w.Samples) {
		return n, io.EOF
	}
	return n, nil
}

// maxEmptyReads bounds how often a source may return (0, nil) in a row.
const maxEmptyReads = 100

// Collect drains src into a Waveform. src is not closed.
func Collect(src Source) (*Waveform, error) {
	channels := src.Channels()
	if channels < 1 {
		return nil, fmt.Errorf("%d channels: %w", channels, ErrInvalidAudio)
	}

	bufSize := src.BufSize()
	if bufSize < channels {
		bufSize = 4096
	}
	bufSize -= bufSize % channels

	w := &Waveform{
		SampleRate: src.SampleRate(),
		Channels:   channels,
		Samples:    make([]float32, 0, bufSize),
	}
	buf := make([]float32, bufSize)

	empty := 0
	for {
		n, err := src.ReadSamples(buf)
		if n > 0 {
			w.Samples = append(w.Samples, buf[:n]...)
			empty = 0
		} else if err == nil {
			empty++
			if empty > maxEmptyReads {
				return nil, io.ErrNoProgress
			}
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w", err)
		}
	}

	// drop a trailing partial frame
	w.Samples = w.Samples[:len(w.Samples)-len(w.Samples)%channels]

	return w, nil
}
