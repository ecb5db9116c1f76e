// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// MonoMixer reduces any channel count to one by taking the arithmetic mean
// of each frame.
type MonoMixer struct {
	src Source
	tmp []float32
}

func NewMonoMixer(src Source) *MonoMixer {
	return &MonoMixer{
		src: src,
		tmp: make([]float32, 4096),
	}
}

func (m *MonoMixer) SampleRate() int { return m.src.SampleRate() }
func (m *MonoMixer) Channels() int   { return 1 }
func (m *MonoMixer) BufSize() int    { return m.src.BufSize() }
func (m *MonoMixer) Close() error {
	err := m.src.Close()
	if err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

func (m *MonoMixer) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	channels := m.src.Channels()
	if channels == 1 {
		return m.src.ReadSamples(dst)
	}

	samplesNeeded := len(dst) * channels

	// Grow tmp buffer if needed (but don't shrink to avoid thrashing)
	if cap(m.tmp) < samplesNeeded {
		m.tmp = make([]float32, max(samplesNeeded, 8192))
	}
	m.tmp = m.tmp[:samplesNeeded]

	n, err := m.src.ReadSamples(m.tmp)
	if n == 0 {
		return 0, err
	}
	frames := n / channels

	if channels == 2 {
		for f := range frames {
			idx := f << 1
			dst[f] = (m.tmp[idx] + m.tmp[idx+1]) * 0.5
		}
		return frames, err
	}

	invChannels := float32(1.0) / float32(channels)
	for f := range frames {
		sum := float32(0)
		base := f * channels
		for c := range channels {
			sum += m.tmp[base+c]
		}
		dst[f] = sum * invChannels
	}

	return frames, err
}

// Upmixer expands a mono source to a wider layout by copying the single
// channel into every output channel. Sources that already have the target
// channel count pass through.
type Upmixer struct {
	src      Source
	channels int
	tmp      []float32
}

func NewUpmixer(src Source, channels int) *Upmixer {
	return &Upmixer{
		src:      src,
		channels: channels,
		tmp:      make([]float32, 4096),
	}
}

func (u *Upmixer) SampleRate() int { return u.src.SampleRate() }
func (u *Upmixer) Channels() int   { return u.channels }
func (u *Upmixer) BufSize() int    { return u.src.BufSize() }
func (u *Upmixer) Close() error {
	err := u.src.Close()
	if err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

func (u *Upmixer) ReadSamples(dst []float32) (int, error) {
	if len(dst)%u.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	if len(dst) == 0 {
		return 0, nil
	}

	switch u.src.Channels() {
	case u.channels:
		return u.src.ReadSamples(dst)
	case 1:
	default:
		return 0, fmt.Errorf("upmix %d to %d channels: %w", u.src.Channels(), u.channels, ErrInvalidAudio)
	}

	frames := len(dst) / u.channels
	if cap(u.tmp) < frames {
		u.tmp = make([]float32, frames)
	}
	u.tmp = u.tmp[:frames]

	n, err := u.src.ReadSamples(u.tmp)
	for f := range n {
		base := f * u.channels
		for c := range u.channels {
			dst[base+c] = u.tmp[f]
		}
	}

	return n * u.channels, err
}
