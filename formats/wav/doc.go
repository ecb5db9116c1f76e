// SPDX-License-Identifier: EPL-2.0

// Package wav provides WAV audio file decoding and encoding on top of
// github.com/go-audio/wav.
//
// # Decoding
//
// Decoder reads integer PCM WAV files at 8, 16, 24 or 32 bits per sample,
// any channel count and any sample rate:
//
//	file, _ := os.Open("audio.wav")
//	source, err := wav.Decoder{}.Decode(file)
//	if err != nil {
//	    // Handle error
//	}
//
// The returned audio.Source yields interleaved float32 samples in [-1, 1).
// Inputs that are not an io.ReadSeeker are buffered in memory first.
//
// # Encoding
//
// WritePCM16 writes interleaved int16 samples:
//
//	file, _ := os.Create("output.wav")
//	err := wav.WritePCM16(file, 16000, 1, samples)
//
// # Errors
//
//   - ErrNotWavFile: the input is not a RIFF/WAVE file
//   - ErrUnsupportedWavLayout: not integer PCM, or a broken fmt chunk
//   - ErrUnsupportedBitDepth: a bit depth other than 8, 16, 24 or 32
//   - ErrUnsupportedWavChunks: no readable data chunk
//   - ErrInvalidChannels: WritePCM16 called with a bad channel layout
package wav
