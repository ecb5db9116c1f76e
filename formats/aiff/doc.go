// SPDX-License-Identifier: EPL-2.0

// Package aiff provides AIFF (Audio Interchange File Format) decoding.
//
// This package uses github.com/go-audio/aiff to decode AIFF files.
// Integer PCM at 8, 16, 24 and 32 bits is supported, with any channel
// count and sample rate. Compressed AIFF-C is not.
//
//	file, _ := os.Open("audio.aif")
//	source, err := aiff.Decoder{}.Decode(file)
//	if err != nil {
//	    // Handle error
//	}
//
// go-audio needs an io.ReadSeeker; other readers are buffered in memory.
//
// Errors:
//   - ErrNotAiffFile: the input has no FORM/AIFF header
//   - ErrUnsupportedBitDepth: sample size other than 8, 16, 24 or 32 bits
//   - ErrUnsupportedAiffLayout: missing or broken COMM chunk
package aiff
