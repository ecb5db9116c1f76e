// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"bytes"
	"encoding/binary"
	"math/bits"
)

// AIFFBytes builds a 16-bit PCM AIFF file (FORM/COMM/SSND) in memory.
// samples are interleaved int16 values.
func AIFFBytes(sampleRate, channels int, samples []int16) []byte {
	data := new(bytes.Buffer)
	_ = binary.Write(data, binary.BigEndian, samples)

	buf := new(bytes.Buffer)
	formSize := 4 + (8 + 18) + (8 + 8 + data.Len())

	buf.WriteString("FORM")
	_ = binary.Write(buf, binary.BigEndian, uint32(formSize))
	buf.WriteString("AIFF")

	buf.WriteString("COMM")
	_ = binary.Write(buf, binary.BigEndian, uint32(18))
	_ = binary.Write(buf, binary.BigEndian, uint16(channels))
	_ = binary.Write(buf, binary.BigEndian, uint32(len(samples)/channels))
	_ = binary.Write(buf, binary.BigEndian, uint16(16))
	buf.Write(extended(uint64(sampleRate)))

	buf.WriteString("SSND")
	_ = binary.Write(buf, binary.BigEndian, uint32(8+data.Len()))
	_ = binary.Write(buf, binary.BigEndian, uint32(0)) // offset
	_ = binary.Write(buf, binary.BigEndian, uint32(0)) // block size
	buf.Write(data.Bytes())

	return buf.Bytes()
}

// extended encodes a positive integer as an 80-bit IEEE 754 extended float.
func extended(v uint64) []byte {
	out := make([]byte, 10)
	if v == 0 {
		return out
	}

	e := bits.Len64(v) - 1
	binary.BigEndian.PutUint16(out[0:2], uint16(16383+e))
	binary.BigEndian.PutUint64(out[2:10], v<<(63-e))

	return out
}
