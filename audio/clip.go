// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"log/slog"
)

// ClipLimit is the largest absolute sample value written to disk.
const ClipLimit float32 = 0.99

// ClippingWarning reports a buffer whose peak exceeds ClipLimit.
// It is diagnostic only and never blocks output.
type ClippingWarning struct {
	Peak  float32
	Limit float32
}

func (w *ClippingWarning) Error() string {
	return fmt.Sprintf("clipping: max scale %v, limit is %v; use the -r option to rescale the output", w.Peak, w.Limit)
}

// Peak returns the maximum absolute sample value over all channels.
func Peak(w *Waveform) float32 {
	var peak float32
	for _, v := range w.Samples {
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}

// CheckClipping reports whether w would clip on write. With rescale set the
// writer already keeps the signal in range, so nothing is checked. The
// waveform is never modified; correction is Limit's job.
func CheckClipping(w *Waveform, rescale bool, logger *slog.Logger) *ClippingWarning {
	if rescale {
		return nil
	}

	peak := Peak(w)
	if peak <= ClipLimit {
		return nil
	}

	warning := &ClippingWarning{Peak: peak, Limit: ClipLimit}
	if logger != nil {
		logger.Warn("Clipping detected, use the -r option to rescale the output",
			slog.Float64("peak", float64(peak)),
			slog.Float64("limit", float64(ClipLimit)),
		)
	}

	return warning
}

// Limit returns a copy of w that fits in [-ClipLimit, ClipLimit].
// With rescale the whole buffer is multiplied by min(ClipLimit/peak, 1),
// so quiet signals are left untouched; otherwise every sample is clamped.
func Limit(w *Waveform, rescale bool) *Waveform {
	out := w.Clone()

	if rescale {
		peak := Peak(w)
		if peak <= ClipLimit {
			return out
		}

		// the clamp only absorbs float32 rounding of peak*scale
		scale := ClipLimit / peak
		for i, v := range out.Samples {
			out.Samples[i] = min(max(v*scale, -ClipLimit), ClipLimit)
		}
		return out
	}

	for i, v := range out.Samples {
		out.Samples[i] = min(max(v, -ClipLimit), ClipLimit)
	}

	return out
}
