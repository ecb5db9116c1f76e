// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// chunkSize is the number of samples handed to the encoder per write.
const chunkSize = 8192

// WritePCM16 writes interleaved 16-bit PCM samples as a WAV file.
// The header sizes are patched on completion, hence the io.WriteSeeker.
func WritePCM16(w io.WriteSeeker, sampleRate, channels int, samples []int16) error {
	if channels < 1 {
		return fmt.Errorf("%d channels: %w", channels, ErrInvalidChannels)
	}
	if len(samples)%channels != 0 {
		return fmt.Errorf("%d samples for %d channels: %w", len(samples), channels, ErrInvalidChannels)
	}

	enc := wav.NewEncoder(w, sampleRate, 16, channels, formatPCM)

	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, min(len(samples), chunkSize)),
		SourceBitDepth: 16,
	}

	// at least one write, so an empty file still gets its header
	for i := 0; i == 0 || i < len(samples); i += chunkSize {
		chunk := samples[i:min(i+chunkSize, len(samples))]

		buf.Data = buf.Data[:len(chunk)]
		for j, s := range chunk {
			buf.Data[j] = int(s)
		}

		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("writing wav data: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("closing wav encoder: %w", err)
	}

	return nil
}
