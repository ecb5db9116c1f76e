// SPDX-License-Identifier: EPL-2.0

package utils

// Float32ToInt16 clamps x to [-1, 1] and scales it to 16-bit PCM.
// 32767 is used on both sides so the result is symmetric and never overflows.
func Float32ToInt16(x float32) int16 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	return int16(x * 32767.0)
}

// IntToFloat32 normalizes a signed PCM integer of the given bit depth to
// [-1, 1). Unknown depths are treated as 16-bit.
func IntToFloat32(v int, bitDepth int) float32 {
	return float32(v) / FullScale(bitDepth)
}

// FullScale is the magnitude of the most negative value for a bit depth.
func FullScale(bitDepth int) float32 {
	switch bitDepth {
	case 8:
		return 128.0
	case 24:
		return 8388608.0
	case 32:
		return 2147483648.0
	default:
		return 32768.0
	}
}
