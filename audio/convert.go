// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
)

// Convert returns a new waveform at targetRate with targetChannels.
//
// The pipeline mirrors what a codec expects at its input:
//  1. Channel conversion: 1 averages all channels (MonoMixer),
//     2 duplicates a mono channel (Upmixer).
//  2. Sample rate conversion with Resampler (band-limited polyphase FIR).
//
// Both the input and the target must be mono or stereo, otherwise
// ErrInvalidAudio is returned. The input waveform is never modified.
func Convert(w *Waveform, targetRate, targetChannels int) (*Waveform, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if targetChannels < 1 || targetChannels > 2 {
		return nil, fmt.Errorf("target %d channels: %w", targetChannels, ErrInvalidAudio)
	}
	if targetRate <= 0 {
		return nil, fmt.Errorf("target %d Hz: %w", targetRate, ErrInvalidRate)
	}

	if w.Channels == targetChannels && w.SampleRate == targetRate {
		return w.Clone(), nil
	}

	var src Source = w.Source()

	switch {
	case targetChannels == 1 && w.Channels != 1:
		src = NewMonoMixer(src)
	case targetChannels == 2 && w.Channels == 1:
		src = NewUpmixer(src, 2)
	}

	if w.SampleRate != targetRate {
		r, err := NewResampler(src, targetRate)
		if err != nil {
			return nil, err
		}
		src = r
	}

	out, err := Collect(src)
	if err != nil {
		return nil, fmt.Errorf("convert %d Hz/%dch to %d Hz/%dch: %w",
			w.SampleRate, w.Channels, targetRate, targetChannels, err)
	}

	return out, nil
}

// ToMono is Convert to a single channel at the waveform's own rate.
func ToMono(w *Waveform) (*Waveform, error) {
	return Convert(w, w.SampleRate, 1)
}
