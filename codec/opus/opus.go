// SPDX-License-Identifier: EPL-2.0

// Package opus provides codec backends built on Opus. The default "opus"
// backend uses the pure-Go github.com/thesyncim/gopus; building with the
// libopus tag adds a "libopus" backend on gopkg.in/hraban/opus.v2.
//
// Audio is coded mono at 48 kHz. The frame duration follows the codec
// config's hop length when that is a legal Opus duration (2.5, 5, 10, 20,
// 40 or 60 ms) and is 20 ms otherwise. The bandwidth tier in kbps becomes
// the bitrate, clamped to what Opus accepts.
package opus

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ik5/codecbench/audio"
	"github.com/ik5/codecbench/codec"
)

const (
	// Rate is the internal coding sample rate.
	Rate = 48000

	// DefaultFrameSize is 20 ms at Rate.
	DefaultFrameSize = 960

	MinBitrate = 6000
	MaxBitrate = 510000
)

var ErrCorruptCode = errors.New("opus code is corrupt")

// validFrameSizes are the Opus frame durations in samples at 48 kHz.
var validFrameSizes = []int{120, 240, 480, 960, 1920, 2880}

// FrameSize picks the frame length in 48 kHz samples for cfg.
func FrameSize(cfg codec.Config) int {
	hop := cfg.HopLength()
	if hop*Rate%cfg.SampleRate != 0 {
		return DefaultFrameSize
	}

	size := hop * Rate / cfg.SampleRate
	for _, v := range validFrameSizes {
		if v == size {
			return size
		}
	}
	return DefaultFrameSize
}

// Bitrate converts a bandwidth tier in kbps to bits per second.
func Bitrate(bandwidth float64) int {
	bps := int(math.Round(bandwidth * 1000))
	return min(max(bps, MinBitrate), MaxBitrate)
}

// frameEncoder and frameDecoder wrap one library's encoder and decoder.
type frameEncoder interface {
	encode(pcm []float32) ([]byte, error)
}

type frameDecoder interface {
	decode(packet []byte) ([]float32, error)
}

// engine is one Opus implementation.
type engine interface {
	newEncoder(bitrate, frameSize int) (frameEncoder, error)
	newDecoder() (frameDecoder, error)
}

// Code holds the Opus packets of one waveform.
type Code struct {
	backend string

	Packets   [][]byte
	FrameSize int
	// Frames is the length of the coded signal at Rate, before padding.
	Frames int
	// SourceRate and SourceFrames describe the encoded waveform.
	SourceRate   int
	SourceFrames int
	Bitrate      int
}

func (c *Code) Backend() string { return c.backend }

func (c *Code) Size() int {
	n := 0
	for _, p := range c.Packets {
		n += len(p)
	}
	return n
}

// Codec is a codec.Codec over an Opus engine. Encoders and decoders are
// created per call, so a Codec is safe for concurrent use.
type Codec struct {
	name      string
	cfg       codec.Config
	engine    engine
	frameSize int
}

func newCodec(name string, cfg codec.Config, e engine) *Codec {
	return &Codec{
		name:      name,
		cfg:       cfg,
		engine:    e,
		frameSize: FrameSize(cfg),
	}
}

func (c *Codec) SampleRate() int { return c.cfg.SampleRate }
func (c *Codec) FrameSize() int  { return c.frameSize }

func (c *Codec) Encode(ctx context.Context, w *audio.Waveform, bandwidth float64) (codec.Code, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !c.cfg.Supports(bandwidth) {
		return nil, fmt.Errorf("%v kbps (have %v): %w", bandwidth, c.cfg.TargetBandwidths, codec.ErrUnsupportedBandwidth)
	}

	pcm, err := audio.Convert(w, Rate, 1)
	if err != nil {
		return nil, fmt.Errorf("opus encode: %w", err)
	}

	code := &Code{
		backend:      c.name,
		FrameSize:    c.frameSize,
		Frames:       pcm.Frames(),
		SourceRate:   w.SampleRate,
		SourceFrames: w.Frames(),
		Bitrate:      Bitrate(bandwidth),
	}

	if code.SourceFrames == 0 {
		return code, nil
	}

	enc, err := c.engine.newEncoder(code.Bitrate, c.frameSize)
	if err != nil {
		return nil, fmt.Errorf("opus encoder: %w", err)
	}

	frame := make([]float32, c.frameSize)
	for start := 0; start < len(pcm.Samples); start += c.frameSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// the last frame is zero padded
		n := copy(frame, pcm.Samples[start:])
		clear(frame[n:])

		packet, err := enc.encode(frame)
		if err != nil {
			return nil, fmt.Errorf("opus encode frame at %d: %w", start, err)
		}
		code.Packets = append(code.Packets, packet)
	}

	return code, nil
}

func (c *Codec) Decode(ctx context.Context, code codec.Code) (*audio.Waveform, error) {
	oc, ok := code.(*Code)
	if !ok || oc == nil || oc.backend != c.name {
		return nil, fmt.Errorf("backend %s cannot decode %T: %w", c.name, code, codec.ErrCodeMismatch)
	}
	if oc.SourceRate <= 0 || oc.Frames < 0 {
		return nil, ErrCorruptCode
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	want := outputFrames(oc, c.cfg.SampleRate)
	if len(oc.Packets) == 0 {
		return audio.NewWaveform(c.cfg.SampleRate, 1, want), nil
	}

	dec, err := c.engine.newDecoder()
	if err != nil {
		return nil, fmt.Errorf("opus decoder: %w", err)
	}

	pcm := &audio.Waveform{
		SampleRate: Rate,
		Channels:   1,
		Samples:    make([]float32, 0, len(oc.Packets)*oc.FrameSize),
	}

	for i, packet := range oc.Packets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		samples, err := dec.decode(packet)
		if err != nil {
			return nil, fmt.Errorf("opus decode packet %d: %w", i, err)
		}
		pcm.Samples = append(pcm.Samples, samples...)
	}

	pcm.Samples = fit(pcm.Samples, oc.Frames)

	out, err := audio.Convert(pcm, c.cfg.SampleRate, 1)
	if err != nil {
		return nil, fmt.Errorf("opus decode: %w", err)
	}
	out.Samples = fit(out.Samples, want)

	return out, nil
}

// outputFrames is the encoded length expressed at rate.
func outputFrames(c *Code, rate int) int {
	if c.SourceRate == rate {
		return c.SourceFrames
	}
	return int(math.Round(float64(c.SourceFrames) * float64(rate) / float64(c.SourceRate)))
}

// fit trims or zero pads s to n values.
func fit(s []float32, n int) []float32 {
	if len(s) >= n {
		return s[:n]
	}
	return append(s, make([]float32, n-len(s))...)
}
