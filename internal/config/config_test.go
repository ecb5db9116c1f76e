// SPDX-License-Identifier: EPL-2.0

package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/ik5/codecbench/codec"
)

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	if cfg.Batch.Bandwidth != 12 {
		t.Errorf("default bandwidth = %v, want 12", cfg.Batch.Bandwidth)
	}
	if cfg.Checkpoint.PrefixLength != 7 {
		t.Errorf("default prefix length = %d, want 7", cfg.Checkpoint.PrefixLength)
	}
}

func TestConfigValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{
			name:   "valid configuration",
			mutate: func(*Config) {},
		},
		{
			name:     "empty backend",
			mutate:   func(c *Config) { c.Codec.Backend = "" },
			errorMsg: "backend cannot be empty",
		},
		{
			name:     "gpu device",
			mutate:   func(c *Config) { c.Codec.Device = "cuda" },
			errorMsg: `device "cuda" is not supported`,
		},
		{
			name:     "zero ratio",
			mutate:   func(c *Config) { c.Codec.Ratios = []int{8, 0} },
			errorMsg: "ratio 0 must be positive",
		},
		{
			name:     "negative prefix",
			mutate:   func(c *Config) { c.Checkpoint.PrefixLength = -1 },
			errorMsg: "prefix_length cannot be negative",
		},
		{
			name:     "export without checkpoint",
			mutate:   func(c *Config) { c.Checkpoint.Export = "out.safetensors" },
			errorMsg: "export needs a checkpoint path",
		},
		{
			name:     "no workers",
			mutate:   func(c *Config) { c.Batch.Workers = 0 },
			errorMsg: "workers must be at least 1",
		},
		{
			name:     "negative timeout",
			mutate:   func(c *Config) { c.Batch.Timeout = -5 * time.Second },
			errorMsg: "timeout cannot be negative",
		},
		{
			name: "batch rate differs from codec rate",
			mutate: func(c *Config) {
				c.Codec.SampleRate = 24000
				c.Batch.SampleRate = 16000
			},
			errorMsg: "batch sample_rate 16000 differs from codec sample_rate 24000",
		},
		{
			name:     "negative batch rate",
			mutate:   func(c *Config) { c.Batch.SampleRate = -1 },
			errorMsg: "sample_rate cannot be negative",
		},
		{
			name:     "unsupported bandwidth",
			mutate:   func(c *Config) { c.Batch.Bandwidth = 3 },
			errorMsg: "bandwidth 3 is not in target_bandwidths",
		},
		{
			name:     "bad log level",
			mutate:   func(c *Config) { c.Logging.Level = "trace" },
			errorMsg: "level must be one of",
		},
		{
			name:     "bad log format",
			mutate:   func(c *Config) { c.Logging.Format = "xml" },
			errorMsg: "format must be 'json' or 'text'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.errorMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			if err == nil {
				t.Fatalf("expected error containing %q", tt.errorMsg)
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("error %q does not contain %q", err, tt.errorMsg)
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("error %v does not wrap ErrInvalid", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	content := `
codec:
  backend: opus
  sample_rate: 24000
  ratios: [8, 5, 4]
  target_bandwidths: [1.5, 3, 6]
checkpoint:
  path: model.safetensors
batch:
  input: in
  output: out
  sample_rate: 24000
  bandwidth: 6
  workers: 4
  timeout: 30s
  rescale: true
logging:
  level: debug
  format: json
metrics:
  file: run.prom
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Codec.SampleRate != 24000 || !slices.Equal(cfg.Codec.Ratios, []int{8, 5, 4}) {
		t.Errorf("codec section not applied: %+v", cfg.Codec)
	}
	// keys absent from the file keep their defaults
	if cfg.Codec.Filters != 32 || cfg.Codec.Device != codec.DeviceCPU {
		t.Errorf("codec defaults lost: %+v", cfg.Codec)
	}
	if cfg.Checkpoint.PrefixLength != 7 {
		t.Errorf("prefix length = %d, want default 7", cfg.Checkpoint.PrefixLength)
	}
	if cfg.Batch.Workers != 4 || !cfg.Batch.Rescale || cfg.Batch.Timeout != 30*time.Second {
		t.Errorf("batch section not applied: %+v", cfg.Batch)
	}
	if cfg.Logging.Output != "stderr" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Metrics.File != "run.prom" {
		t.Errorf("metrics file = %q", cfg.Metrics.File)
	}
}

func TestLoad_BatchRateFollowsCodec(t *testing.T) {
	t.Parallel()

	content := `
codec:
  sample_rate: 24000
batch:
  timeout: 400ms
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SampleRate() != 24000 {
		t.Errorf("SampleRate() = %d, want the codec rate 24000", cfg.SampleRate())
	}
	if cfg.Batch.Timeout != 400*time.Millisecond {
		t.Errorf("timeout = %v, want 400ms", cfg.Batch.Timeout)
	}

	mismatch := filepath.Join(t.TempDir(), "mismatch.yaml")
	if err := os.WriteFile(mismatch, []byte(content+"  sample_rate: 16000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(mismatch); !errors.Is(err, ErrInvalid) {
		t.Errorf("mismatched rates: got %v, want %v", err, ErrInvalid)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: got %v, want os.ErrNotExist", err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("codec: [not, a, map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil || !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("bad yaml: got %v", err)
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("batch:\n  workers: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(invalid); !errors.Is(err, ErrInvalid) {
		t.Errorf("invalid values: got %v, want ErrInvalid", err)
	}
}

func TestCodecConfig_CodecIsCopy(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cc := cfg.Codec.Codec()
	cc.Ratios[0] = 99

	if cfg.Codec.Ratios[0] == 99 {
		t.Error("Codec shares the ratios slice")
	}
}
