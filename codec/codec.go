// SPDX-License-Identifier: EPL-2.0

// Package codec defines what the batch runner needs from an audio codec:
// encode a waveform at a bandwidth tier into an opaque code and decode it
// back. Backends register themselves by name, the way database/sql drivers
// do, and are built from a Config.
package codec

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ik5/codecbench/audio"
)

var (
	ErrUnknownBackend       = errors.New("unknown codec backend")
	ErrUnsupportedBandwidth = errors.New("bandwidth is not one of the configured targets")
	ErrCodeMismatch         = errors.New("code was produced by another backend")
	ErrInvalidConfig        = errors.New("invalid codec config")
)

// Code is the compressed form of one waveform. Only the backend that made
// it can decode it.
type Code interface {
	// Backend is the registered name of the producing backend.
	Backend() string
	// Size is the compressed payload in bytes.
	Size() int
}

// Codec is safe for concurrent use.
type Codec interface {
	// Encode compresses a mono waveform at the codec's sample rate.
	// bandwidth is a target tier in kbps and must be one Config supports.
	Encode(ctx context.Context, w *audio.Waveform, bandwidth float64) (Code, error)
	// Decode restores a waveform at SampleRate with the encoded length.
	Decode(ctx context.Context, code Code) (*audio.Waveform, error)
	SampleRate() int
}

// Factory builds a backend from a validated config.
type Factory func(cfg Config) (Codec, error)

var (
	mtx       sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a backend available under name. Registering the same
// name twice panics.
func Register(name string, f Factory) {
	mtx.Lock()
	defer mtx.Unlock()

	if f == nil {
		panic("codec: Register factory is nil")
	}
	if _, dup := factories[name]; dup {
		panic("codec: Register called twice for backend " + name)
	}
	factories[name] = f
}

// New validates cfg and builds the named backend.
func New(name string, cfg Config) (Codec, error) {
	mtx.RLock()
	f, ok := factories[name]
	mtx.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%q (have %v): %w", name, Backends(), ErrUnknownBackend)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c, err := f(cfg)
	if err != nil {
		return nil, fmt.Errorf("codec %s: %w", name, err)
	}

	return c, nil
}

// Backends lists the registered names in sorted order.
func Backends() []string {
	mtx.RLock()
	defer mtx.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}
