// SPDX-License-Identifier: EPL-2.0

// Package checkpoint reads and writes model parameters stored in the
// safetensors layout and applies them to a declared parameter set.
//
// A file is an 8-byte little-endian header length, a JSON header mapping
// each tensor name to {dtype, shape, data_offsets}, and the raw
// little-endian tensor data. F32, F64, F16 and BF16 tensors are accepted
// and widened or narrowed to float32.
package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/ik5/codecbench/tensor"
)

var ErrFormat = errors.New("checkpoint format error")

// DefaultPrefixLen drops the "module." prefix a distributed training
// wrapper adds to every key.
const DefaultPrefixLen = len("module.")

// ParameterMap maps a parameter path such as "encoder.model.0.conv.conv.weight_g"
// to its tensor.
type ParameterMap map[string]*tensor.Tensor

// Keys returns the parameter names in sorted order.
func (pm ParameterMap) Keys() []string {
	keys := make([]string, 0, len(pm))
	for k := range pm {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Load reads the safetensors file at path and strips the first prefixLen
// characters of every key.
func Load(path string, prefixLen int) (ParameterMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	raw, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	pm, err := Remap(raw, prefixLen)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return pm, nil
}

// Remap drops the first prefixLen characters of every key. A key shorter
// than the prefix, or two keys that collide after trimming, fail with
// ErrFormat.
func Remap(pm ParameterMap, prefixLen int) (ParameterMap, error) {
	if prefixLen < 0 {
		return nil, fmt.Errorf("prefix length %d: %w", prefixLen, ErrFormat)
	}

	out := make(ParameterMap, len(pm))
	for _, k := range pm.Keys() {
		if len(k) <= prefixLen {
			return nil, fmt.Errorf("key %q is shorter than the %d character prefix: %w", k, prefixLen, ErrFormat)
		}

		name := k[prefixLen:]
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("keys collide on %q after removing the prefix: %w", name, ErrFormat)
		}
		out[name] = pm[k]
	}

	return out, nil
}

// Target is anything exposing a declared parameter set. Apply fills the
// Data of the tensors it returns in place.
type Target interface {
	Parameters() ParameterMap
}

// ShapeMismatch is a parameter present on both sides with different shapes.
type ShapeMismatch struct {
	Name string
	Want []int
	Got  []int
}

// MismatchError lists every difference between a checkpoint and its target.
// All lists are sorted by name.
type MismatchError struct {
	Missing    []string
	Unexpected []string
	Shape      []ShapeMismatch
}

func (e *MismatchError) Error() string {
	var parts []string

	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing keys: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, fmt.Sprintf("unexpected keys: %s", strings.Join(e.Unexpected, ", ")))
	}
	for _, s := range e.Shape {
		parts = append(parts, fmt.Sprintf("size mismatch for %s: checkpoint %v, model %v", s.Name, s.Got, s.Want))
	}

	return "checkpoint does not match model: " + strings.Join(parts, "; ")
}

// Apply validates pm against the target's parameters and, only when the
// key sets and shapes match exactly, copies every tensor's data into the
// target. On failure nothing is assigned and the error wraps both
// ErrFormat and a *MismatchError.
func Apply(target Target, pm ParameterMap) error {
	params := target.Parameters()
	mismatch := &MismatchError{}

	for _, name := range params.Keys() {
		got, ok := pm[name]
		if !ok {
			mismatch.Missing = append(mismatch.Missing, name)
			continue
		}

		want := params[name]
		if !want.SameShape(got) {
			mismatch.Shape = append(mismatch.Shape, ShapeMismatch{
				Name: name,
				Want: slices.Clone(want.Shape),
				Got:  slices.Clone(got.Shape),
			})
			continue
		}

		if got.Data == nil || len(got.Data) != got.Numel() {
			return fmt.Errorf("parameter %s has no data: %w", name, ErrFormat)
		}
	}

	for _, name := range pm.Keys() {
		if _, ok := params[name]; !ok {
			mismatch.Unexpected = append(mismatch.Unexpected, name)
		}
	}

	if len(mismatch.Missing) > 0 || len(mismatch.Unexpected) > 0 || len(mismatch.Shape) > 0 {
		return fmt.Errorf("%w: %w", ErrFormat, mismatch)
	}

	for name, dst := range params {
		dst.Data = slices.Clone(pm[name].Data)
	}

	return nil
}
