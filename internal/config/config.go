// SPDX-License-Identifier: EPL-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ik5/codecbench/checkpoint"
	"github.com/ik5/codecbench/codec"
)

var ErrInvalid = errors.New("invalid configuration")

// Config represents the complete codecbench configuration
type Config struct {
	Codec      CodecConfig      `yaml:"codec"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Batch      BatchConfig      `yaml:"batch"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// CodecConfig selects the backend and its construction parameters
type CodecConfig struct {
	Backend      string `yaml:"backend"`
	codec.Config `yaml:",inline"`
}

// CheckpointConfig points at the trained parameters, if any
type CheckpointConfig struct {
	Path         string `yaml:"path"`
	PrefixLength int    `yaml:"prefix_length"`
	Export       string `yaml:"export"`
}

// BatchConfig describes one round-trip run over a directory
type BatchConfig struct {
	Input       string  `yaml:"input"`
	Output      string  `yaml:"output"`
	SampleRate  int           `yaml:"sample_rate"` // 0 follows codec.sample_rate
	Bandwidth   float64       `yaml:"bandwidth"`
	Rescale     bool          `yaml:"rescale"`
	Workers     int           `yaml:"workers"`
	Timeout     time.Duration `yaml:"timeout"` // 0 disables
	StopOnError bool          `yaml:"stop_on_error"`
	Progress    bool          `yaml:"progress"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig enables the Prometheus textfile export
type MetricsConfig struct {
	File string `yaml:"file"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cc := codec.DefaultConfig()

	return &Config{
		Codec: CodecConfig{
			Backend: "opus",
			Config:  cc,
		},
		Checkpoint: CheckpointConfig{
			PrefixLength: checkpoint.DefaultPrefixLen,
		},
		Batch: BatchConfig{
			Bandwidth: slices.Max(cc.TargetBandwidths),
			Workers:   1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads a YAML file on top of Default. Keys absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate checks every section. Input and output directories are not
// required here; the CLI checks them once flags are applied.
func (c *Config) Validate() error {
	if err := c.Codec.Validate(); err != nil {
		return fmt.Errorf("codec config: %w", err)
	}

	if err := c.Checkpoint.Validate(); err != nil {
		return fmt.Errorf("checkpoint config: %w", err)
	}

	if err := c.Batch.Validate(); err != nil {
		return fmt.Errorf("batch config: %w", err)
	}

	if c.Batch.SampleRate != 0 && c.Batch.SampleRate != c.Codec.SampleRate {
		return fmt.Errorf("batch sample_rate %d differs from codec sample_rate %d: %w",
			c.Batch.SampleRate, c.Codec.SampleRate, ErrInvalid)
	}

	if c.Batch.Bandwidth > 0 && !c.Codec.Codec().Supports(c.Batch.Bandwidth) {
		return fmt.Errorf("batch bandwidth %v is not in target_bandwidths %v: %w",
			c.Batch.Bandwidth, c.Codec.TargetBandwidths, ErrInvalid)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Codec returns the construction parameters for codec.New.
func (c *CodecConfig) Codec() codec.Config {
	cc := c.Config
	cc.Ratios = slices.Clone(c.Ratios)
	cc.TargetBandwidths = slices.Clone(c.TargetBandwidths)
	return cc
}

// Validate validates codec configuration
func (c *CodecConfig) Validate() error {
	if c.Backend == "" {
		return fmt.Errorf("backend cannot be empty: %w", ErrInvalid)
	}

	if err := c.Config.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return nil
}

// Validate validates checkpoint configuration
func (c *CheckpointConfig) Validate() error {
	if c.PrefixLength < 0 {
		return fmt.Errorf("prefix_length cannot be negative, got %d: %w", c.PrefixLength, ErrInvalid)
	}

	if c.Export != "" && c.Path == "" {
		return fmt.Errorf("export needs a checkpoint path: %w", ErrInvalid)
	}

	return nil
}

// Validate validates batch configuration
func (b *BatchConfig) Validate() error {
	if b.SampleRate < 0 {
		return fmt.Errorf("sample_rate cannot be negative, got %d: %w", b.SampleRate, ErrInvalid)
	}

	if b.Bandwidth <= 0 {
		return fmt.Errorf("bandwidth must be positive, got %v: %w", b.Bandwidth, ErrInvalid)
	}

	if b.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d: %w", b.Workers, ErrInvalid)
	}

	if b.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative, got %v: %w", b.Timeout, ErrInvalid)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, l.Level) {
		return fmt.Errorf("level must be one of %v, got '%s': %w", validLevels, l.Level, ErrInvalid)
	}

	validFormats := []string{"json", "text"}
	if !slices.Contains(validFormats, l.Format) {
		return fmt.Errorf("format must be 'json' or 'text', got '%s': %w", l.Format, ErrInvalid)
	}

	// anything other than stdout/stderr is a file path
	return nil
}

// SampleRate is the rate every file is resampled to: the codec's rate.
func (c *Config) SampleRate() int {
	return c.Codec.SampleRate
}
