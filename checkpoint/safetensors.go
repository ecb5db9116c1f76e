// SPDX-License-Identifier: EPL-2.0

package checkpoint

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
	"os"

	"github.com/nlpodyssey/safetensors"
	"github.com/x448/float16"

	"github.com/ik5/codecbench/tensor"
)

var dtypeSize = map[safetensors.DType]int{
	safetensors.F32:  4,
	safetensors.F64:  8,
	safetensors.F16:  2,
	safetensors.BF16: 2,
}

// Decode parses a safetensors buffer. Keys are returned as stored.
func Decode(data []byte) (ParameterMap, error) {
	st, err := safetensors.Deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}

	names := st.Names()
	pm := make(ParameterMap, len(names))

	for _, name := range names {
		view, ok := st.Tensor(name)
		if !ok {
			return nil, fmt.Errorf("tensor %s: %w", name, ErrFormat)
		}

		t, err := decodeTensor(view.DType(), view.Shape(), view.Data())
		if err != nil {
			return nil, fmt.Errorf("tensor %s: %w", name, err)
		}
		pm[name] = t
	}

	return pm, nil
}

// numel multiplies the dims of shape, failing when the element count or
// its byte size does not fit in an int.
func numel(shape []uint64, size int) (int, error) {
	n := uint64(1)
	for _, d := range shape {
		hi, lo := bits.Mul64(n, d)
		if hi != 0 {
			return 0, fmt.Errorf("shape %v overflows: %w", shape, ErrFormat)
		}
		n = lo
	}

	hi, lo := bits.Mul64(n, uint64(size))
	if hi != 0 || lo > math.MaxInt {
		return 0, fmt.Errorf("shape %v overflows: %w", shape, ErrFormat)
	}

	return int(n), nil
}

func decodeTensor(dtype safetensors.DType, dims []uint64, raw []byte) (*tensor.Tensor, error) {
	size, ok := dtypeSize[dtype]
	if !ok {
		return nil, fmt.Errorf("dtype %v: %w", dtype, ErrFormat)
	}

	n, err := numel(dims, size)
	if err != nil {
		return nil, err
	}
	if len(raw) != n*size {
		return nil, fmt.Errorf("%d bytes for %v%v: %w", len(raw), dtype, dims, ErrFormat)
	}

	shape := make([]int, len(dims))
	for i, d := range dims {
		shape[i] = int(d)
	}

	out := make([]float32, n)
	for i := range out {
		b := raw[i*size : (i+1)*size]

		switch dtype {
		case safetensors.F32:
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b))
		case safetensors.F64:
			out[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(b)))
		case safetensors.F16:
			out[i] = float16.Frombits(binary.LittleEndian.Uint16(b)).Float32()
		case safetensors.BF16:
			out[i] = math.Float32frombits(uint32(binary.LittleEndian.Uint16(b)) << 16)
		}
	}

	return tensor.FromData(out, shape...)
}

// Encode serializes pm as F32 safetensors. Every tensor must be loaded.
func Encode(pm ParameterMap, metadata map[string]string) ([]byte, error) {
	views := make(map[string]safetensors.TensorView, len(pm))

	for _, name := range pm.Keys() {
		t := pm[name]
		if !t.Loaded() {
			return nil, fmt.Errorf("parameter %s is not loaded: %w", name, ErrFormat)
		}

		raw := make([]byte, 4*len(t.Data))
		for i, v := range t.Data {
			binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
		}

		shape := make([]uint64, len(t.Shape))
		for i, d := range t.Shape {
			shape[i] = uint64(d)
		}

		view, err := safetensors.NewTensorView(safetensors.F32, shape, raw)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		views[name] = view
	}

	out, err := safetensors.Serialize(views, metadata)
	if err != nil {
		return nil, fmt.Errorf("encode checkpoint: %w", err)
	}

	return out, nil
}

// Save writes pm to path with Encode.
func Save(path string, pm ParameterMap, metadata map[string]string) error {
	data, err := Encode(pm, metadata)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}

	return nil
}
