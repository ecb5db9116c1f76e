// SPDX-License-Identifier: EPL-2.0

package graph

import (
	"errors"
	"slices"
	"testing"

	"github.com/ik5/codecbench/tensor"
)

func TestGraph_ParametersAndFind(t *testing.T) {
	t.Parallel()

	g := New()
	root := g.Add(NoNode, "", Container)
	enc := g.Add(root, "encoder", Container)
	model := g.Add(enc, "model", Container)

	conv := g.Add(model, "0", NormConv1d)
	g.Node(conv).ParamPath = "conv.conv"
	g.SetParam(conv, ParamBias, tensor.Empty(4))

	_, block, short := g.AddResidual(model, "1", NormConv1d)
	g.Node(short).ParamPath = "conv.conv"
	g.SetParam(short, ParamWeightG, tensor.Empty(4, 1, 1))
	inner := g.Add(block, "1", NormConv1d)
	g.Node(inner).ParamPath = "conv.conv"
	g.SetParam(inner, ParamWeightV, tensor.Empty(2, 4, 3))

	want := []string{
		"encoder.model.0.conv.conv.bias",
		"encoder.model.1.block.1.conv.conv.weight_v",
		"encoder.model.1.shortcut.conv.conv.weight_g",
	}

	params := g.Parameters(root)
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	if !slices.Equal(keys, want) {
		t.Errorf("Parameters() keys = %v, want %v", keys, want)
	}

	id, err := g.Find(root, "encoder.model.1.block.1")
	if err != nil || id != inner {
		t.Errorf("Find() = %d, %v; want %d", id, err, inner)
	}
	if _, err := g.Find(root, "encoder.model.9"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Find(missing) error = %v, want %v", err, ErrNotFound)
	}

	if n := g.Count(root, NormConv1d); n != 3 {
		t.Errorf("Count(NormConv1d) = %d, want 3", n)
	}
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	for kind, want := range map[Kind]string{
		Other:               "Other",
		Container:           "Container",
		NormConv1d:          "NormConv1d",
		NormConvTranspose1d: "NormConvTranspose1d",
		ResidualBlock:       "ResidualBlock",
	} {
		if got := kind.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}
