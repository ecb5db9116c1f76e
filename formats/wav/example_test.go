// SPDX-License-Identifier: EPL-2.0

package wav_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ik5/codecbench/audio"
	"github.com/ik5/codecbench/formats/wav"
	"github.com/ik5/codecbench/internal/audiotest"
)

func ExampleDecoder() {
	data := audiotest.WAVBytes(16000, 1, []int16{0, 16384, -16384})

	src, err := wav.Decoder{}.Decode(bytes.NewReader(data))
	if err != nil {
		fmt.Println(err)
		return
	}

	w, err := audio.Collect(src)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Printf("%d Hz, %d channel(s): %v\n", w.SampleRate, w.Channels, w.Samples)
	// Output:
	// 16000 Hz, 1 channel(s): [0 0.5 -0.5]
}

func ExampleWritePCM16() {
	dir, err := os.MkdirTemp("", "wav-example")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer os.RemoveAll(dir)

	f, err := os.Create(filepath.Join(dir, "tone.wav"))
	if err != nil {
		fmt.Println(err)
		return
	}
	defer f.Close()

	if err := wav.WritePCM16(f, 8000, 2, []int16{100, -100, 200, -200}); err != nil {
		fmt.Println(err)
		return
	}

	info, _ := f.Stat()
	fmt.Printf("wrote %d bytes\n", info.Size())
	// Output:
	// wrote 52 bytes
}
