// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis streams with github.com/jfreymuth/oggvorbis.
//
// The decoder is pure Go and yields float32 samples with the stream's own
// channel count and sample rate:
//
//	file, _ := os.Open("music.ogg")
//	source, err := vorbis.Decoder{}.Decode(file)
//	if err != nil {
//	    // errors.Is(err, vorbis.ErrNotVorbisFile)
//	}
package vorbis
