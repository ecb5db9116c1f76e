// SPDX-License-Identifier: EPL-2.0

// Package pcm adapts the go-audio integer decoders to audio.Source.
package pcm

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"

	"github.com/ik5/codecbench/audio"
	"github.com/ik5/codecbench/utils"
)

// Reader is the part of the go-audio wav and aiff decoders a Source needs.
type Reader interface {
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// Source streams a Reader as normalized float32 samples.
type Source struct {
	dec        Reader
	kind       string
	sampleRate int
	channels   int
	bitDepth   int
	offset     int
	intBuf     *goaudio.IntBuffer
	done       bool
}

// NewSource wraps dec. kind names the container in errors. offset is
// subtracted from every value before scaling; 8-bit WAV stores unsigned
// samples and needs 128.
func NewSource(dec Reader, kind string, sampleRate, channels, bitDepth, offset int) *Source {
	return &Source{
		dec:        dec,
		kind:       kind,
		sampleRate: sampleRate,
		channels:   channels,
		bitDepth:   bitDepth,
		offset:     offset,
	}
}

func (s *Source) SampleRate() int { return s.sampleRate }
func (s *Source) Channels() int   { return s.channels }
func (s *Source) Close() error    { return nil }

func (s *Source) BufSize() int {
	if s.intBuf != nil {
		return cap(s.intBuf.Data)
	}
	return 4096
}

func (s *Source) ReadSamples(dst []float32) (int, error) {
	if s.done {
		return 0, io.EOF
	}
	if len(dst) == 0 {
		return 0, nil
	}

	want := len(dst) - len(dst)%s.channels
	if want == 0 {
		return 0, audio.ErrInvalidDstSize
	}

	if s.intBuf == nil || cap(s.intBuf.Data) < want {
		s.intBuf = &goaudio.IntBuffer{
			Data:           make([]int, want),
			Format:         s.dec.Format(),
			SourceBitDepth: s.bitDepth,
		}
	} else {
		s.intBuf.Data = s.intBuf.Data[:want]
	}

	n, err := s.dec.PCMBuffer(s.intBuf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("reading %s data: %w", s.kind, err)
	}
	if n == 0 {
		s.done = true
		return 0, io.EOF
	}

	for i := range n {
		dst[i] = utils.IntToFloat32(s.intBuf.Data[i]-s.offset, s.bitDepth)
	}

	// a short read means the data chunk is exhausted
	if n < want || err != nil {
		s.done = true
		return n, io.EOF
	}

	return n, nil
}
