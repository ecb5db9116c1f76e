// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"

	"github.com/ik5/codecbench/audio"
)

// oggReader is an interface for oggvorbis.Reader to allow testing
type oggReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
}

type source struct {
	dec        oggReader
	sampleRate int
	channels   int
	done       bool
	empty      int
}

// maxEmptyReads bounds how many (0, nil) reads in a row are tolerated.
const maxEmptyReads = 100

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return 4096 - 4096%s.channels }

func (s *source) ReadSamples(dst []float32) (int, error) {
	if s.done {
		return 0, io.EOF
	}
	if len(dst) == 0 {
		return 0, nil
	}

	// oggvorbis decodes whole frames of interleaved samples
	want := len(dst) - len(dst)%s.channels
	if want == 0 {
		return 0, audio.ErrInvalidDstSize
	}

	for {
		n, err := s.dec.Read(dst[:want])
		if err == io.EOF {
			s.done = true
			return n, io.EOF
		}
		if err != nil {
			return n, fmt.Errorf("reading vorbis data: %w", err)
		}
		if n > 0 {
			s.empty = 0
			return n, nil
		}

		s.empty++
		if s.empty > maxEmptyReads {
			return 0, io.ErrNoProgress
		}
	}
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotVorbisFile, err)
	}

	if dec.Channels() < 1 {
		return nil, fmt.Errorf("%d channels: %w", dec.Channels(), ErrNotVorbisFile)
	}

	return &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		channels:   dec.Channels(),
	}, nil
}
