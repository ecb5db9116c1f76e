// SPDX-License-Identifier: EPL-2.0

package codec

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/ik5/codecbench/audio"
)

type nopCodec struct{ cfg Config }

func (n nopCodec) Encode(context.Context, *audio.Waveform, float64) (Code, error) { return nil, nil }
func (n nopCodec) Decode(context.Context, Code) (*audio.Waveform, error)          { return nil, nil }
func (n nopCodec) SampleRate() int                                                { return n.cfg.SampleRate }

func TestRegistry(t *testing.T) {
	// not parallel: mutates the package registry

	Register("test-nop", func(cfg Config) (Codec, error) { return nopCodec{cfg: cfg}, nil })
	Register("test-broken", func(Config) (Codec, error) { return nil, errors.New("no device") })

	c, err := New("test-nop", DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.SampleRate() != 16000 {
		t.Errorf("SampleRate() = %d, want 16000", c.SampleRate())
	}

	if _, err := New("missing", DefaultConfig()); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("New(missing) error = %v, want %v", err, ErrUnknownBackend)
	}

	bad := DefaultConfig()
	bad.SampleRate = 0
	if _, err := New("test-nop", bad); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("New(bad config) error = %v, want %v", err, ErrInvalidConfig)
	}

	if _, err := New("test-broken", DefaultConfig()); err == nil {
		t.Error("New(test-broken) error = nil, want the factory error")
	}

	names := Backends()
	if !slices.Contains(names, "test-nop") || !slices.IsSorted(names) {
		t.Errorf("Backends() = %v, want a sorted list with test-nop", names)
	}

	defer func() {
		if recover() == nil {
			t.Error("registering a duplicate name did not panic")
		}
	}()
	Register("test-nop", func(cfg Config) (Codec, error) { return nopCodec{cfg: cfg}, nil })
}

func TestConfig_Derived(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if got := cfg.HopLength(); got != 320 {
		t.Errorf("HopLength() = %d, want 320", got)
	}
	if got := cfg.FrameRate(); got != 50 {
		t.Errorf("FrameRate() = %v, want 50", got)
	}
	if !cfg.Supports(12) || !cfg.Supports(1.5) {
		t.Error("Supports() rejected a configured bandwidth")
	}
	if cfg.Supports(3) {
		t.Error("Supports(3) = true, want false")
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"filters", func(c *Config) { c.Filters = 0 }},
		{"dimension", func(c *Config) { c.Dimension = -1 }},
		{"no ratios", func(c *Config) { c.Ratios = nil }},
		{"zero ratio", func(c *Config) { c.Ratios = []int{8, 0} }},
		{"sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"no bandwidths", func(c *Config) { c.TargetBandwidths = nil }},
		{"negative bandwidth", func(c *Config) { c.TargetBandwidths = []float64{-1} }},
		{"device", func(c *Config) { c.Device = "cuda" }},
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want %v", err, ErrInvalidConfig)
			}
		})
	}
}
