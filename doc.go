// SPDX-License-Identifier: EPL-2.0

// Package codecbench conditions audio for a speech codec, runs batches of
// files through a codec round trip and prepares trained neural codec
// checkpoints for inference.
//
// # Layout
//
//   - audio: waveforms, streaming resampler, channel mixing, clip guard
//   - formats/*: WAV, MP3, Ogg Vorbis and AIFF decoders, WAV writer
//   - waveio: load any supported file, save 16-bit PCM WAV
//   - codec: the Codec interface, its construction Config and a backend
//     registry; codec/opus is the default backend
//   - codec/seanet: the SEANet parameter layout a checkpoint is applied to
//   - checkpoint: safetensors reader and writer, key remapping, validation
//   - graph: module graph and weight-norm removal
//   - batch: directory round trips with workers, timeouts and progress
//
// # Conditioning
//
//	w, _, err := waveio.Load("speech.mp3")
//	mono, err := audio.Convert(w, 16000, 1)
//	audio.CheckClipping(mono, false, logger)
//	err = waveio.Save(mono, "speech.wav", 16000, false)
//
// # Round trip
//
//	c, err := codec.New("opus", codec.DefaultConfig())
//	report, err := batch.Run(ctx, batch.Job{
//		InputDir:   "in",
//		OutputDir:  "out",
//		SampleRate: 16000,
//		Bandwidth:  6,
//	}, c, batch.Options{Workers: 4})
//
// # Checkpoints
//
//	model, err := seanet.Build(codec.DefaultConfig())
//	pm, err := checkpoint.Load("encodec.safetensors", checkpoint.DefaultPrefixLen)
//	err = model.Load(pm)
//	n, err := model.RemoveWeightNorm()
//
// The cmd/codecbench command wires these together; cmd/wavconvert only
// conditions a single file.
package codecbench
