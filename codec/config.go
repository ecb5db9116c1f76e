// SPDX-License-Identifier: EPL-2.0

package codec

import (
	"fmt"
	"slices"
)

// DeviceCPU is the only device the bundled backends run on.
const DeviceCPU = "cpu"

// Config is the construction contract shared by all backends. The field
// names follow the neural codec it was modelled on: Filters base channels,
// Dimension latent size, Ratios the encoder downsampling strides.
type Config struct {
	Filters          int       `yaml:"filters"`
	Dimension        int       `yaml:"dimension"`
	Ratios           []int     `yaml:"ratios"`
	SampleRate       int       `yaml:"sample_rate"`
	TargetBandwidths []float64 `yaml:"target_bandwidths"`
	Device           string    `yaml:"device"`
}

func DefaultConfig() Config {
	return Config{
		Filters:          32,
		Dimension:        512,
		Ratios:           []int{8, 5, 4, 2},
		SampleRate:       16000,
		TargetBandwidths: []float64{1, 1.5, 2, 4, 6, 12},
		Device:           DeviceCPU,
	}
}

// HopLength is the number of samples per latent frame: the product of
// the ratios.
func (c Config) HopLength() int {
	hop := 1
	for _, r := range c.Ratios {
		hop *= r
	}
	return hop
}

// FrameRate is the number of latent frames per second.
func (c Config) FrameRate() float64 {
	return float64(c.SampleRate) / float64(c.HopLength())
}

// Supports reports whether bw is one of the target bandwidths.
func (c Config) Supports(bw float64) bool {
	return slices.Contains(c.TargetBandwidths, bw)
}

func (c Config) Validate() error {
	if c.Filters <= 0 {
		return fmt.Errorf("filters %d must be positive: %w", c.Filters, ErrInvalidConfig)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("dimension %d must be positive: %w", c.Dimension, ErrInvalidConfig)
	}
	if len(c.Ratios) == 0 {
		return fmt.Errorf("ratios are empty: %w", ErrInvalidConfig)
	}
	for _, r := range c.Ratios {
		if r <= 0 {
			return fmt.Errorf("ratio %d must be positive: %w", r, ErrInvalidConfig)
		}
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate %d must be positive: %w", c.SampleRate, ErrInvalidConfig)
	}
	if len(c.TargetBandwidths) == 0 {
		return fmt.Errorf("target bandwidths are empty: %w", ErrInvalidConfig)
	}
	for _, bw := range c.TargetBandwidths {
		if bw <= 0 {
			return fmt.Errorf("bandwidth %v must be positive: %w", bw, ErrInvalidConfig)
		}
	}
	if c.Device != DeviceCPU {
		return fmt.Errorf("device %q is not supported, only %q: %w", c.Device, DeviceCPU, ErrInvalidConfig)
	}
	return nil
}
