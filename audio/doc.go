// SPDX-License-Identifier: EPL-2.0

// Package audio provides the conditioning primitives used before and after a
// codec round trip.
//
// Streaming building blocks implement Source and can be chained:
//   - Resampler changes the sample rate (go-audio-resampler polyphase FIR)
//   - MonoMixer averages channels, Upmixer duplicates a mono channel
//   - Registry maps a format key to its Decoder
//
// Whole buffers are held in a Waveform. Convert runs the channel and rate
// conversion pipeline over a Waveform, and Collect drains any Source into one:
//
//	mono, err := audio.Convert(w, 16000, 1)
//	if err != nil {
//	    return err
//	}
//
// # Clipping
//
// CheckClipping only reports: it logs a warning when the peak exceeds
// ClipLimit and never touches the samples. Limit returns a copy that is
// either rescaled below ClipLimit or hard-clamped to it, which is what
// writers apply right before quantization.
//
// # Sample Format
//
// Samples are float32 in [-1.0, 1.0], interleaved by frame.
package audio
