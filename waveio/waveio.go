// SPDX-License-Identifier: EPL-2.0

// Package waveio reads audio files into memory and writes waveforms back
// out as 16-bit PCM WAV.
package waveio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ik5/codecbench/audio"
	"github.com/ik5/codecbench/formats/aiff"
	"github.com/ik5/codecbench/formats/mp3"
	"github.com/ik5/codecbench/formats/vorbis"
	"github.com/ik5/codecbench/formats/wav"
	"github.com/ik5/codecbench/utils"
)

// ErrIO is returned for any file that cannot be read, decoded or written.
var ErrIO = errors.New("audio file I/O failed")

// NewRegistry returns a registry with every decoder this module ships,
// keyed by file extension.
func NewRegistry() *audio.Registry {
	reg := audio.NewRegistry()

	reg.Register("wav", wav.Decoder{})
	reg.Register("wave", wav.Decoder{})
	reg.Register("mp3", mp3.Decoder{})
	reg.Register("ogg", vorbis.Decoder{})
	reg.Register("oga", vorbis.Decoder{})
	reg.Register("aif", aiff.Decoder{})
	reg.Register("aiff", aiff.Decoder{})

	return reg
}

var defaultRegistry = NewRegistry()

// Load reads the whole file at path. The decoder is picked by extension.
// It returns the waveform and its native sample rate; no resampling is done.
func Load(path string) (*audio.Waveform, int, error) {
	return LoadWith(defaultRegistry, path)
}

// LoadWith is Load with a caller supplied decoder registry.
func LoadWith(reg *audio.Registry, path string) (*audio.Waveform, int, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")

	dec, ok := reg.Get(ext)
	if !ok {
		return nil, 0, fmt.Errorf("%s: unknown format %q: %w", path, ext, ErrIO)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer f.Close()

	src, err := dec.Decode(f)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: decode %s: %w", ErrIO, path, err)
	}
	defer src.Close()

	w, err := audio.Collect(src)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read %s: %w", ErrIO, path, err)
	}

	return w, w.SampleRate, nil
}

// Save writes w to path as 16-bit PCM WAV at sampleRate.
//
// With rescale the buffer is multiplied by min(0.99/peak, 1); otherwise
// samples are clamped to [-0.99, 0.99]. A waveform at another rate is
// resampled first. w itself is never modified.
func Save(w *audio.Waveform, path string, sampleRate int, rescale bool) error {
	if w.SampleRate != sampleRate {
		converted, err := audio.Convert(w, sampleRate, w.Channels)
		if err != nil {
			return fmt.Errorf("save %s: %w", path, err)
		}
		w = converted
	}

	limited := audio.Limit(w, rescale)

	pcm := make([]int16, len(limited.Samples))
	for i, v := range limited.Samples {
		pcm[i] = utils.Float32ToInt16(v)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	if err := wav.WritePCM16(f, sampleRate, limited.Channels, pcm); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("%w: write %s: %w", ErrIO, path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrIO, path, err)
	}

	return nil
}
