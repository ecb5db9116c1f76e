// SPDX-License-Identifier: EPL-2.0

// Package batch runs every audio file of a directory through a codec
// round trip and writes the decoded audio as WAV.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/ik5/codecbench/audio"
	"github.com/ik5/codecbench/codec"
	"github.com/ik5/codecbench/internal/metrics"
	"github.com/ik5/codecbench/waveio"
)

var (
	ErrInputNotFound = errors.New("input directory not found")
	ErrSkipped       = errors.New("skipped")
	ErrOutputClash   = errors.New("output name already used by an earlier file")
	ErrRateMismatch  = errors.New("job sample rate differs from the codec sample rate")
)

// Policy decides what happens to the remaining files after a failure.
type Policy int

const (
	ContinueOnError Policy = iota
	StopOnError
)

// Job is one round-trip run.
type Job struct {
	InputDir   string
	OutputDir  string
	SampleRate int // must equal the codec's SampleRate
	Bandwidth  float64 // kbps, one of the codec's target bandwidths
	Rescale    bool
}

type Options struct {
	// Workers is the number of files processed at once. Values below 1
	// mean 1.
	Workers int

	// Timeout bounds the codec calls of one file; 0 disables it.
	Timeout time.Duration

	Policy Policy
	Logger *slog.Logger

	// Progress receives a progress bar when set.
	Progress io.Writer

	Metrics *metrics.Metrics
}

// Result is the outcome of one input file.
type Result struct {
	Name   string
	Input  string
	Output string
	Err    error

	Duration  time.Duration
	CodeBytes int
	Peak      float32
	Clipped   bool
}

// Report lists the results in processing order.
type Report struct {
	Results []Result
}

func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

func (r *Report) Succeeded() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err == nil {
			out = append(out, res)
		}
	}
	return out
}

// Err joins the errors of every failed file, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", res.Name, res.Err))
	}
	return errors.Join(errs...)
}

// OutputName is the file name written for input name: the extension is
// replaced by .wav unless it already is one.
func OutputName(name string) string {
	ext := filepath.Ext(name)
	if strings.EqualFold(ext, ".wav") {
		return name
	}
	return strings.TrimSuffix(name, ext) + ".wav"
}

// List returns the regular entries of dir in byte order of their names.
func List(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", dir, ErrInputNotFound, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory: %w", dir, ErrInputNotFound)
	}

	// ReadDir sorts by file name
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}

	return names, nil
}

// Run processes every file of job.InputDir with c. The returned error is
// only for setup failures; per-file failures are in the report.
func Run(ctx context.Context, job Job, c codec.Codec, opts Options) (*Report, error) {
	if job.SampleRate != c.SampleRate() {
		return nil, fmt.Errorf("job %d Hz, codec %d Hz: %w", job.SampleRate, c.SampleRate(), ErrRateMismatch)
	}

	names, err := List(job.InputDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", job.OutputDir, err)
	}

	r := newRunner(job, c, opts)
	report := &Report{Results: make([]Result, len(names))}

	seen := make(map[string]string, len(names))
	for i, name := range names {
		out := OutputName(name)
		report.Results[i] = Result{
			Name:   name,
			Input:  filepath.Join(job.InputDir, name),
			Output: filepath.Join(job.OutputDir, out),
		}
		if first, ok := seen[out]; ok {
			report.Results[i].Err = fmt.Errorf("%s from %s: %w", out, first, ErrOutputClash)
			continue
		}
		seen[out] = name
	}

	r.logger.Info("Batch started",
		slog.String("input", job.InputDir),
		slog.String("output", job.OutputDir),
		slog.Int("files", len(names)),
		slog.Int("workers", r.workers),
		slog.Float64("bandwidth_kbps", job.Bandwidth),
	)

	var bar *mpb.Bar
	var progress *mpb.Progress
	if opts.Progress != nil {
		progress = mpb.New(mpb.WithOutput(opts.Progress), mpb.WithWidth(64))
		bar = progress.AddBar(int64(len(names)),
			mpb.PrependDecorators(
				decor.Name("Round trip: "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
				decor.EwmaETA(decor.ET_STYLE_GO, 60),
			),
		)
	}

	jobs := make(chan int, len(names))
	for i := range names {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for range r.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				start := time.Now()
				r.process(ctx, &report.Results[i])
				if bar != nil {
					bar.EwmaIncrement(time.Since(start))
				}
			}
		}()
	}
	wg.Wait()

	if progress != nil {
		progress.Wait()
	}

	r.logger.Info("Batch finished",
		slog.Int("succeeded", len(report.Succeeded())),
		slog.Int("failed", len(report.Failed())),
	)

	return report, nil
}

type runner struct {
	job     Job
	codec   codec.Codec
	opts    Options
	logger  *slog.Logger
	workers int
	stopped atomic.Bool
}

func newRunner(job Job, c codec.Codec, opts Options) *runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &runner{
		job:     job,
		codec:   c,
		opts:    opts,
		logger:  logger,
		workers: max(opts.Workers, 1),
	}
}

// process fills res. res.Err may already hold an error from listing.
func (r *runner) process(ctx context.Context, res *Result) {
	logger := r.logger.With(slog.String("file", res.Name))

	switch {
	case res.Err != nil:
	case r.stopped.Load():
		res.Err = fmt.Errorf("%w: an earlier file failed", ErrSkipped)
	case ctx.Err() != nil:
		res.Err = fmt.Errorf("%w: %w", ErrSkipped, ctx.Err())
	}

	if res.Err != nil {
		if errors.Is(res.Err, ErrSkipped) {
			r.opts.Metrics.RecordSkipped()
			logger.Debug("Skipping file", slog.String("reason", res.Err.Error()))
			return
		}
		r.fail(logger, res)
		return
	}

	start := time.Now()
	err := r.roundTrip(ctx, logger, res)
	res.Duration = time.Since(start)

	if err != nil {
		res.Err = err
		r.fail(logger, res)
		return
	}

	r.opts.Metrics.RecordFile(metrics.StatusOK, res.Duration.Seconds(), res.CodeBytes)
	logger.Info("Processed file",
		slog.String("output", res.Output),
		slog.Duration("duration", res.Duration),
		slog.Int("code_bytes", res.CodeBytes),
	)
}

func (r *runner) fail(logger *slog.Logger, res *Result) {
	r.opts.Metrics.RecordFile(metrics.StatusFailed, res.Duration.Seconds(), 0)
	logger.Error("Failed to process file", slog.String("error", res.Err.Error()))

	if r.opts.Policy == StopOnError {
		r.stopped.Store(true)
	}
}

func (r *runner) roundTrip(ctx context.Context, logger *slog.Logger, res *Result) error {
	w, _, err := waveio.Load(res.Input)
	if err != nil {
		return err
	}

	mono, err := audio.Convert(w, r.job.SampleRate, 1)
	if err != nil {
		return err
	}

	decoded, code, err := r.runCodec(ctx, mono)
	if err != nil {
		return err
	}
	res.CodeBytes = code.Size()

	res.Peak = audio.Peak(decoded)
	if warning := audio.CheckClipping(decoded, r.job.Rescale, logger); warning != nil {
		res.Clipped = true
		r.opts.Metrics.RecordClipping()
	}

	return waveio.Save(decoded, res.Output, r.job.SampleRate, r.job.Rescale)
}

type codecResult struct {
	decoded *audio.Waveform
	code    codec.Code
	err     error
}

// runCodec encodes and decodes w. With a timeout the calls run in their
// own goroutine so a backend that ignores ctx cannot hold the worker.
func (r *runner) runCodec(ctx context.Context, w *audio.Waveform) (*audio.Waveform, codec.Code, error) {
	if r.opts.Timeout <= 0 {
		out := r.encodeDecode(ctx, w)
		return out.decoded, out.code, out.err
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	done := make(chan codecResult, 1)
	go func() {
		done <- r.encodeDecode(ctx, w)
	}()

	select {
	case out := <-done:
		return out.decoded, out.code, out.err
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("codec round trip: %w", ctx.Err())
	}
}

func (r *runner) encodeDecode(ctx context.Context, w *audio.Waveform) codecResult {
	code, err := r.codec.Encode(ctx, w, r.job.Bandwidth)
	if err != nil {
		return codecResult{err: fmt.Errorf("encode: %w", err)}
	}

	decoded, err := r.codec.Decode(ctx, code)
	if err != nil {
		return codecResult{err: fmt.Errorf("decode: %w", err)}
	}

	return codecResult{decoded: decoded, code: code}
}
