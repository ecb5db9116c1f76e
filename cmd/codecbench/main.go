// SPDX-License-Identifier: EPL-2.0

// Command codecbench runs every file of a directory through a codec round
// trip and writes the decoded audio, optionally after preparing a trained
// neural codec checkpoint for inference.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ik5/codecbench/batch"
	"github.com/ik5/codecbench/checkpoint"
	"github.com/ik5/codecbench/codec"
	_ "github.com/ik5/codecbench/codec/opus"
	"github.com/ik5/codecbench/codec/seanet"
	"github.com/ik5/codecbench/internal/config"
	"github.com/ik5/codecbench/internal/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

type intList []int

func (l *intList) String() string {
	parts := make([]string, len(*l))
	for i, v := range *l {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func (l *intList) Set(s string) error {
	var out []int
	for part := range strings.SplitSeq(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return fmt.Errorf("bad integer %q", part)
		}
		out = append(out, v)
	}
	*l = out
	return nil
}

type floatList []float64

func (l *floatList) String() string {
	parts := make([]string, len(*l))
	for i, v := range *l {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

func (l *floatList) Set(s string) error {
	var out []float64
	for part := range strings.SplitSeq(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return fmt.Errorf("bad number %q", part)
		}
		out = append(out, v)
	}
	*l = out
	return nil
}

type options struct {
	configPath string

	input, output string
	resumePath    string
	export        string
	prefixLength  int

	sampleRate       int
	rescale          bool
	ratios           intList
	targetBandwidths floatList
	bandwidth        float64
	backend          string

	workers     int
	timeout     time.Duration
	stopOnError bool
	progress    bool

	metricsFile string
	logLevel    string
	logFormat   string
}

func newFlagSet(o *options, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("codecbench", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&o.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&o.input, "input", "", "directory of input audio files")
	fs.StringVar(&o.output, "output", "", "directory for decoded WAV files")
	fs.StringVar(&o.resumePath, "resume_path", "", "safetensors checkpoint to load and strip")
	fs.StringVar(&o.export, "export", "", "write the stripped checkpoint to this safetensors file")
	fs.IntVar(&o.prefixLength, "prefix_length", checkpoint.DefaultPrefixLen, "characters dropped from every checkpoint key")
	fs.IntVar(&o.sampleRate, "sr", 16000, "sample rate of the codec and of the output files")
	fs.BoolVar(&o.rescale, "r", false, "rescale the output to avoid clipping")
	fs.BoolVar(&o.rescale, "rescale", false, "rescale the output to avoid clipping")
	fs.Var(&o.ratios, "ratios", "comma separated encoder ratios (default 8,5,4,2)")
	fs.Var(&o.targetBandwidths, "target_bandwidths", "comma separated bandwidths in kbps (default 1,1.5,2,4,6,12)")
	fs.Float64Var(&o.bandwidth, "bandwidth", 12, "bandwidth in kbps used for the round trip")
	fs.StringVar(&o.backend, "codec", "opus", "codec backend ("+strings.Join(codec.Backends(), ", ")+")")
	fs.IntVar(&o.workers, "workers", 1, "files processed in parallel")
	fs.DurationVar(&o.timeout, "timeout", 0, "per-file codec timeout, 0 disables")
	fs.BoolVar(&o.stopOnError, "stop_on_error", false, "skip the remaining files after the first failure")
	fs.BoolVar(&o.progress, "progress", false, "show a progress bar on stderr")
	fs.StringVar(&o.metricsFile, "metrics_file", "", "write Prometheus metrics to this file when done")
	fs.StringVar(&o.logLevel, "log_level", "info", "debug, info, warn or error")
	fs.StringVar(&o.logFormat, "log_format", "text", "text or json")

	return fs
}

// loadConfig reads the config file, if any, and applies every flag that
// was set explicitly on top of it.
func loadConfig(args []string, stderr io.Writer) (*config.Config, error) {
	var o options
	fs := newFlagSet(&o, stderr)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.Batch.Input = o.input
		case "output":
			cfg.Batch.Output = o.output
		case "resume_path":
			cfg.Checkpoint.Path = o.resumePath
		case "export":
			cfg.Checkpoint.Export = o.export
		case "prefix_length":
			cfg.Checkpoint.PrefixLength = o.prefixLength
		case "sr":
			cfg.Codec.SampleRate = o.sampleRate
			cfg.Batch.SampleRate = o.sampleRate
		case "r", "rescale":
			cfg.Batch.Rescale = o.rescale
		case "ratios":
			cfg.Codec.Ratios = o.ratios
		case "target_bandwidths":
			cfg.Codec.TargetBandwidths = o.targetBandwidths
		case "bandwidth":
			cfg.Batch.Bandwidth = o.bandwidth
		case "codec":
			cfg.Codec.Backend = o.backend
		case "workers":
			cfg.Batch.Workers = o.workers
		case "timeout":
			cfg.Batch.Timeout = o.timeout
		case "stop_on_error":
			cfg.Batch.StopOnError = o.stopOnError
		case "progress":
			cfg.Batch.Progress = o.progress
		case "metrics_file":
			cfg.Metrics.File = o.metricsFile
		case "log_level":
			cfg.Logging.Level = o.logLevel
		case "log_format":
			cfg.Logging.Format = o.logFormat
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Batch.Input == "" || cfg.Batch.Output == "" {
		return nil, errors.New("both --input and --output are required")
	}

	return cfg, nil
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	cfg, err := loadConfig(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	logger, closeLog := initLogger(cfg.Logging, stderr)
	defer closeLog()

	var m *metrics.Metrics
	if cfg.Metrics.File != "" {
		m = metrics.NewMetrics()
	}

	// nothing is loaded or written before the input is known to exist
	if _, err := batch.List(cfg.Batch.Input); err != nil {
		logger.Error("Batch failed", slog.String("error", err.Error()))
		return 1
	}

	cc := cfg.Codec.Codec()

	if cfg.Checkpoint.Path != "" {
		if err := prepareModel(cfg, cc, m, logger); err != nil {
			logger.Error("Failed to prepare checkpoint", slog.String("error", err.Error()))
			return 1
		}
	}

	c, err := codec.New(cfg.Codec.Backend, cc)
	if err != nil {
		logger.Error("Failed to create codec", slog.String("error", err.Error()))
		return 1
	}

	job := batch.Job{
		InputDir:   cfg.Batch.Input,
		OutputDir:  cfg.Batch.Output,
		SampleRate: cfg.SampleRate(),
		Bandwidth:  cfg.Batch.Bandwidth,
		Rescale:    cfg.Batch.Rescale,
	}

	opts := batch.Options{
		Workers: cfg.Batch.Workers,
		Timeout: cfg.Batch.Timeout,
		Logger:  logger,
		Metrics: m,
	}
	if cfg.Batch.StopOnError {
		opts.Policy = batch.StopOnError
	}
	if cfg.Batch.Progress {
		opts.Progress = stderr
	}

	report, err := batch.Run(ctx, job, c, opts)
	if err != nil {
		logger.Error("Batch failed", slog.String("error", err.Error()))
		return 1
	}

	if err := m.WriteTextfile(cfg.Metrics.File); err != nil {
		logger.Error("Failed to write metrics", slog.String("error", err.Error()))
		return 1
	}

	if failed := report.Failed(); len(failed) > 0 {
		fmt.Fprintf(stderr, "%d of %d files failed:\n%v\n", len(failed), len(report.Results), report.Err())
		return 1
	}

	return 0
}

// prepareModel loads the checkpoint into the neural codec layout, removes
// weight norm and optionally exports the result.
func prepareModel(cfg *config.Config, cc codec.Config, m *metrics.Metrics, logger *slog.Logger) error {
	model, err := seanet.Build(cc)
	if err != nil {
		return err
	}

	pm, err := checkpoint.Load(cfg.Checkpoint.Path, cfg.Checkpoint.PrefixLength)
	if err != nil {
		return err
	}

	if err := model.Load(pm); err != nil {
		return err
	}

	stripped, err := model.RemoveWeightNorm()
	if err != nil {
		return err
	}
	m.SetWeightNormRemoved(stripped)

	logger.Info("Checkpoint loaded",
		slog.String("path", cfg.Checkpoint.Path),
		slog.Int("parameters", len(pm)),
		slog.Int("weightnorm_removed", stripped),
		slog.Int("quantizers", model.NumQuantizers()),
	)

	if cfg.Checkpoint.Export == "" {
		return nil
	}

	metadata := map[string]string{
		"format":      "pt",
		"sample_rate": strconv.Itoa(cc.SampleRate),
	}
	if err := checkpoint.Save(cfg.Checkpoint.Export, model.Parameters(), metadata); err != nil {
		return err
	}
	logger.Info("Stripped checkpoint exported", slog.String("path", cfg.Checkpoint.Export))

	return nil
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig, stderr io.Writer) (*slog.Logger, func()) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	closer := func() {}

	var output io.Writer
	switch cfg.Output {
	case "stderr", "":
		output = stderr
	case "stdout":
		output = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to open log file %s: %v, falling back to stderr\n", cfg.Output, err)
			output = stderr
		} else {
			output = file
			closer = func() { file.Close() }
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler), closer
}
