// SPDX-License-Identifier: EPL-2.0

//go:build libopus

package opus

import (
	"fmt"

	"gopkg.in/hraban/opus.v2"

	"github.com/ik5/codecbench/codec"
)

// LibopusName is the registered name of the cgo libopus backend.
const LibopusName = "libopus"

// maxPacketSize is the largest Opus packet libopus can emit.
const maxPacketSize = 4000

func init() {
	codec.Register(LibopusName, func(cfg codec.Config) (codec.Codec, error) {
		return NewLibopus(cfg), nil
	})
}

// NewLibopus returns the libopus backend for cfg.
func NewLibopus(cfg codec.Config) *Codec {
	return newCodec(LibopusName, cfg, libopusEngine{})
}

type libopusEngine struct{}

func (libopusEngine) newEncoder(bitrate, frameSize int) (frameEncoder, error) {
	enc, err := opus.NewEncoder(Rate, 1, opus.AppAudio)
	if err != nil {
		return nil, err
	}
	if err := enc.SetBitrate(bitrate); err != nil {
		return nil, err
	}
	return &libopusEncoder{enc: enc, buf: make([]byte, maxPacketSize)}, nil
}

func (libopusEngine) newDecoder() (frameDecoder, error) {
	dec, err := opus.NewDecoder(Rate, 1)
	if err != nil {
		return nil, err
	}
	// 120 ms is the longest packet
	return &libopusDecoder{dec: dec, buf: make([]float32, Rate*120/1000)}, nil
}

type libopusEncoder struct {
	enc *opus.Encoder
	buf []byte
}

func (e *libopusEncoder) encode(pcm []float32) ([]byte, error) {
	n, err := e.enc.EncodeFloat32(pcm, e.buf)
	if err != nil {
		return nil, fmt.Errorf("libopus: %w", err)
	}
	return append([]byte(nil), e.buf[:n]...), nil
}

type libopusDecoder struct {
	dec *opus.Decoder
	buf []float32
}

func (d *libopusDecoder) decode(packet []byte) ([]float32, error) {
	n, err := d.dec.DecodeFloat32(packet, d.buf)
	if err != nil {
		return nil, fmt.Errorf("libopus: %w", err)
	}
	return append([]float32(nil), d.buf[:n]...), nil
}
