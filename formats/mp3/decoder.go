// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/ik5/codecbench/audio"
	"github.com/ik5/codecbench/utils"
)

// go-mp3 always produces 16-bit little-endian stereo.
const (
	channels       = 2
	bytesPerSample = 2
	bytesPerFrame  = channels * bytesPerSample
)

// mp3Reader is an interface for gomp3.Decoder to allow testing
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

type source struct {
	dec        mp3Reader
	sampleRate int
	buf        []byte
	done       bool
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return cap(s.buf) / bytesPerSample } // sample capacity, not bytes

func (s *source) ReadSamples(dst []float32) (int, error) {
	if s.done {
		return 0, io.EOF
	}
	if len(dst) == 0 {
		return 0, nil
	}

	frames := len(dst) / channels
	if frames == 0 {
		return 0, audio.ErrInvalidDstSize
	}

	bytesNeeded := frames * bytesPerFrame
	if cap(s.buf) < bytesNeeded {
		s.buf = make([]byte, bytesNeeded)
	}
	s.buf = s.buf[:bytesNeeded]

	n, err := io.ReadFull(s.dec, s.buf)
	switch err {
	case nil:
	case io.EOF, io.ErrUnexpectedEOF:
		s.done = true
	default:
		return 0, fmt.Errorf("reading mp3 data: %w", err)
	}

	// whole frames only
	samples := (n / bytesPerFrame) * channels
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(s.buf[bytesPerSample*i:]))
		dst[i] = utils.IntToFloat32(int(v), 16)
	}

	if s.done {
		return samples, io.EOF
	}
	return samples, nil
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotMP3File, err)
	}

	return &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		buf:        make([]byte, 8192),
	}, nil
}
