// SPDX-License-Identifier: EPL-2.0

package opus

import (
	"slices"

	"github.com/thesyncim/gopus"

	"github.com/ik5/codecbench/codec"
)

// Name is the registered name of the pure-Go backend.
const Name = "opus"

func init() {
	codec.Register(Name, func(cfg codec.Config) (codec.Codec, error) {
		return New(cfg), nil
	})
}

// New returns the pure-Go Opus backend for cfg.
func New(cfg codec.Config) *Codec {
	return newCodec(Name, cfg, gopusEngine{})
}

type gopusEngine struct{}

func (gopusEngine) newEncoder(bitrate, frameSize int) (frameEncoder, error) {
	enc, err := gopus.NewEncoder(gopus.EncoderConfig{
		SampleRate:  Rate,
		Channels:    1,
		Application: gopus.ApplicationAudio,
	})
	if err != nil {
		return nil, err
	}
	if err := enc.SetBitrate(bitrate); err != nil {
		return nil, err
	}
	if err := enc.SetFrameSize(frameSize); err != nil {
		return nil, err
	}
	return gopusEncoder{enc: enc}, nil
}

func (gopusEngine) newDecoder() (frameDecoder, error) {
	cfg := gopus.DefaultDecoderConfig(Rate, 1)
	dec, err := gopus.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	return gopusDecoder{dec: dec, buf: make([]float32, cfg.MaxPacketSamples*cfg.Channels)}, nil
}

type gopusEncoder struct{ enc *gopus.Encoder }

func (e gopusEncoder) encode(pcm []float32) ([]byte, error) {
	return e.enc.EncodeFloat32(pcm)
}

type gopusDecoder struct {
	dec *gopus.Decoder
	buf []float32
}

func (d gopusDecoder) decode(packet []byte) ([]float32, error) {
	n, err := d.dec.Decode(packet, d.buf)
	if err != nil {
		return nil, err
	}
	return slices.Clone(d.buf[:n]), nil
}
