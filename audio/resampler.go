// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"

	resampling "github.com/tphakala/go-audio-resampler"
)

// engine is the per-channel band-limited converter.
type engine interface {
	Process(in []float32) ([]float32, error)
	Flush() ([]float32, error)
}

// Resampler streams from src to a target sample rate. Every channel runs
// through its own polyphase FIR engine, which band-limits before
// decimation. Works on interleaved samples; preserves channel count.
//
// For n input frames the output has ceil(n*dst/src) frames. Equal rates
// copy the input.
type Resampler struct {
	src      Source
	srcRate  int
	dstRate  int
	channels int

	engines []engine
	pending [][]float32 // converted samples per channel, not yet read
	scratch []float32

	in      []float32
	inTotal int // source frames consumed
	written int // output frames returned
	srcDone bool
	empty   int
}

// NewResampler wraps src so it reads at dstRate.
func NewResampler(src Source, dstRate int) (*Resampler, error) {
	if dstRate <= 0 || src.SampleRate() <= 0 {
		return nil, fmt.Errorf("resample %d Hz to %d Hz: %w", src.SampleRate(), dstRate, ErrInvalidRate)
	}

	channels := src.Channels()
	bufSize := 4096 - 4096%channels

	r := &Resampler{
		src:      src,
		srcRate:  src.SampleRate(),
		dstRate:  dstRate,
		channels: channels,
		pending:  make([][]float32, channels),
		scratch:  make([]float32, bufSize/channels),
		in:       make([]float32, bufSize),
	}

	if r.srcRate == dstRate {
		return r, nil
	}

	r.engines = make([]engine, channels)
	for c := range r.engines {
		e, err := resampling.NewEngineFloat32(float64(r.srcRate), float64(dstRate), resampling.QualityHigh)
		if err != nil {
			return nil, fmt.Errorf("resample %d Hz to %d Hz: %w", r.srcRate, dstRate, err)
		}
		r.engines[c] = e
	}

	return r, nil
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

func (r *Resampler) Close() error {
	err := r.src.Close()
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// outFrames maps n source frames to output frames, rounding up when final.
func (r *Resampler) outFrames(n int, final bool) int {
	num := int64(n) * int64(r.dstRate)
	if final {
		num += int64(r.srcRate) - 1
	}
	return int(num / int64(r.srcRate))
}

// ready reports how many frames can be handed out now.
func (r *Resampler) ready() int {
	avail := r.outFrames(r.inTotal, r.srcDone) - r.written
	for _, p := range r.pending {
		avail = min(avail, len(p))
	}
	return max(avail, 0)
}

// fill pulls one buffer from the source through the engines.
func (r *Resampler) fill() error {
	n, err := r.src.ReadSamples(r.in)
	n -= n % r.channels

	switch {
	case err == io.EOF:
		r.srcDone = true
	case err != nil:
		return fmt.Errorf("%w", err)
	case n == 0:
		r.empty++
		if r.empty > maxEmptyReads {
			return io.ErrNoProgress
		}
		return nil
	}
	r.empty = 0

	frames := n / r.channels
	r.inTotal += frames

	for c := range r.channels {
		chunk := r.scratch[:frames]
		for i := range chunk {
			chunk[i] = r.in[i*r.channels+c]
		}

		if r.engines == nil {
			r.pending[c] = append(r.pending[c], chunk...)
			continue
		}

		if frames > 0 {
			out, err := r.engines[c].Process(chunk)
			if err != nil {
				return fmt.Errorf("resample channel %d: %w", c, err)
			}
			r.pending[c] = append(r.pending[c], out...)
		}

		if r.srcDone {
			tail, err := r.engines[c].Flush()
			if err != nil {
				return fmt.Errorf("resample channel %d: %w", c, err)
			}
			r.pending[c] = append(r.pending[c], tail...)
		}
	}

	if r.srcDone {
		r.settle()
	}

	return nil
}

// settle trims or zero-pads every channel to the final output length.
func (r *Resampler) settle() {
	want := r.outFrames(r.inTotal, true) - r.written

	for c, p := range r.pending {
		if len(p) > want {
			r.pending[c] = p[:want]
			continue
		}
		r.pending[c] = append(p, make([]float32, want-len(p))...)
	}
}

// ReadSamples produces dst samples at the target rate.
// dst length should be a multiple of r.channels.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	frames := len(dst) / r.channels
	written := 0

	for written < frames {
		avail := r.ready()
		if avail == 0 {
			if r.srcDone {
				return written * r.channels, io.EOF
			}
			if err := r.fill(); err != nil {
				return written * r.channels, err
			}
			continue
		}

		n := min(avail, frames-written)
		out := dst[written*r.channels : (written+n)*r.channels]
		for c := range r.channels {
			for i, v := range r.pending[c][:n] {
				out[i*r.channels+c] = v
			}
			r.pending[c] = r.pending[c][n:]
		}

		written += n
		r.written += n
	}

	return written * r.channels, nil
}
