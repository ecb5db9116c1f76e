// SPDX-License-Identifier: EPL-2.0

// Command wavconvert conditions one audio file: channel mix, resampling
// and clip protection, written as 16-bit PCM WAV.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ik5/codecbench/audio"
	"github.com/ik5/codecbench/waveio"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("wavconvert", flag.ContinueOnError)
	fs.SetOutput(stderr)

	inPath := fs.String("in", "", "input file (wav, mp3, ogg, aiff)")
	outPath := fs.String("out", "", "output WAV file")
	rate := fs.Int("rate", 16000, "output sample rate")
	channels := fs.Int("channels", 1, "output channels, 1 or 2")
	rescale := fs.Bool("rescale", false, "rescale instead of clamping when the signal clips")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 1
	}

	if *inPath == "" || *outPath == "" {
		fmt.Fprintln(stderr, "usage: wavconvert -in <input.{wav|mp3|ogg|aiff}> -out <output.wav> [-rate 16000] [-channels 1] [-rescale]")
		return 1
	}

	logger := slog.New(slog.NewTextHandler(stderr, nil))

	w, sr, err := waveio.Load(*inPath)
	if err != nil {
		logger.Error("Failed to read input", slog.String("error", err.Error()))
		return 1
	}

	converted, err := audio.Convert(w, *rate, *channels)
	if err != nil {
		logger.Error("Failed to convert", slog.String("error", err.Error()))
		return 1
	}

	audio.CheckClipping(converted, *rescale, logger)

	if err := waveio.Save(converted, *outPath, *rate, *rescale); err != nil {
		logger.Error("Failed to write output", slog.String("error", err.Error()))
		return 1
	}

	fmt.Fprintf(stdout, "Wrote: %s (%d Hz, %d ch -> %d Hz, %d ch, %.2fs)\n",
		*outPath, sr, w.Channels, converted.SampleRate, converted.Channels, converted.Duration())

	return 0
}
