// SPDX-License-Identifier: EPL-2.0

// Package mp3 provides MP3 decoding on top of github.com/hajimehoshi/go-mp3.
//
// go-mp3 always produces 16-bit stereo, so mono files are returned with
// the channel duplicated. Use audio.Convert or audio.MonoMixer to fold them
// back:
//
//	file, _ := os.Open("speech.mp3")
//	source, err := mp3.Decoder{}.Decode(file)
//	if err != nil {
//	    // errors.Is(err, mp3.ErrNotMP3File)
//	}
//	mono := audio.NewMonoMixer(source)
package mp3
