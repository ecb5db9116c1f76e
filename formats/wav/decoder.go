// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-audio/wav"

	"github.com/ik5/codecbench/audio"
	"github.com/ik5/codecbench/formats/internal/pcm"
)

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
)

// Decoder reads PCM WAV files (8, 16, 24 and 32-bit integer samples)
// with any chunk layout go-audio understands.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	// go-audio requires io.ReadSeeker
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading wav data: %w", err)
		}
		rs = bytes.NewReader(data)
	}

	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotWavFile
	}

	if dec.WavAudioFormat != formatPCM && dec.WavAudioFormat != formatExtensible {
		return nil, fmt.Errorf("audio format %d: %w", dec.WavAudioFormat, ErrUnsupportedWavLayout)
	}

	switch dec.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%d bits: %w", dec.BitDepth, ErrUnsupportedBitDepth)
	}

	if dec.NumChans == 0 || dec.SampleRate == 0 {
		return nil, ErrUnsupportedWavLayout
	}

	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedWavChunks, err)
	}

	format := dec.Format()
	if format == nil {
		return nil, ErrUnsupportedWavLayout
	}

	// 8-bit WAV is unsigned
	offset := 0
	if dec.BitDepth == 8 {
		offset = 128
	}

	return pcm.NewSource(dec, "wav", int(dec.SampleRate), int(dec.NumChans), int(dec.BitDepth), offset), nil
}
