// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize = errors.New("dst size must be multiple of channels")
	ErrInvalidAudio   = errors.New("audio must be mono or stereo")
	ErrInvalidRate    = errors.New("sample rate must be positive")
	ErrShortBuffer    = errors.New("sample count is not a multiple of channels")
)
