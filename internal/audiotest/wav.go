// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// WAVBytes builds a canonical 44-byte-header PCM WAV in memory.
// samples are interleaved int16 values.
func WAVBytes(sampleRate, channels int, samples []int16) []byte {
	buf := new(bytes.Buffer)

	numChannels := uint16(channels)
	blockAlign := numChannels * 2
	byteRate := uint32(sampleRate) * uint32(blockAlign)
	dataSize := uint32(len(samples) * 2)

	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, 36+dataSize)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(buf, binary.LittleEndian, numChannels)
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(buf, binary.LittleEndian, byteRate)
	_ = binary.Write(buf, binary.LittleEndian, blockAlign)
	_ = binary.Write(buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, dataSize)
	_ = binary.Write(buf, binary.LittleEndian, samples)

	return buf.Bytes()
}

// ToInt16 scales float samples in [-1, 1] to PCM16 with 32767 full scale.
func ToInt16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, v := range samples {
		v = min(max(v, -1), 1)
		out[i] = int16(v * 32767)
	}
	return out
}

// WriteWAV writes a PCM16 WAV fixture into dir and returns its path.
func WriteWAV(tb testing.TB, dir, name string, sampleRate, channels int, samples []float32) string {
	tb.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, WAVBytes(sampleRate, channels, ToInt16(samples)), 0o644); err != nil {
		tb.Fatalf("write fixture %s: %v", path, err)
	}

	return path
}
