// SPDX-License-Identifier: EPL-2.0

// Package tensor holds the shaped float32 buffers model parameters are
// stored in.
package tensor

import (
	"errors"
	"fmt"
	"slices"
)

var ErrShape = errors.New("invalid tensor shape")

// Tensor is a dense row-major float32 array. A nil Data with a non-empty
// Shape describes a parameter that is declared but not loaded yet.
type Tensor struct {
	Shape []int
	Data  []float32
}

// New allocates a zeroed tensor.
func New(shape ...int) *Tensor {
	return &Tensor{Shape: slices.Clone(shape), Data: make([]float32, Numel(shape))}
}

// Empty declares a tensor of the given shape without backing data.
func Empty(shape ...int) *Tensor {
	return &Tensor{Shape: slices.Clone(shape)}
}

// FromData wraps data, which must hold exactly Numel(shape) values.
func FromData(data []float32, shape ...int) (*Tensor, error) {
	if len(data) != Numel(shape) {
		return nil, fmt.Errorf("%d values for shape %v: %w", len(data), shape, ErrShape)
	}
	return &Tensor{Shape: slices.Clone(shape), Data: data}, nil
}

// Numel is the number of elements of shape. A scalar (no dims) has one.
func Numel(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func (t *Tensor) Numel() int { return Numel(t.Shape) }

// Loaded reports whether the tensor has data of the declared size.
func (t *Tensor) Loaded() bool {
	return t != nil && t.Data != nil && len(t.Data) == t.Numel()
}

// SameShape compares the shapes of two tensors.
func (t *Tensor) SameShape(o *Tensor) bool {
	return slices.Equal(t.Shape, o.Shape)
}

func (t *Tensor) Clone() *Tensor {
	out := &Tensor{Shape: slices.Clone(t.Shape)}
	if t.Data != nil {
		out.Data = slices.Clone(t.Data)
	}
	return out
}

// Slice returns the contiguous block at index i of dimension 0. The
// returned slice aliases t.Data.
func (t *Tensor) Slice(i int) []float32 {
	if len(t.Shape) == 0 {
		return t.Data
	}
	stride := Numel(t.Shape[1:])
	return t.Data[i*stride : (i+1)*stride]
}

func (t *Tensor) String() string {
	state := "loaded"
	if !t.Loaded() {
		state = "empty"
	}
	return fmt.Sprintf("Tensor%v(%s)", t.Shape, state)
}
