// SPDX-License-Identifier: EPL-2.0

package graph

import (
	"fmt"
	"math"

	"github.com/ik5/codecbench/tensor"
)

// Parameter names of a weight-normalized convolution.
const (
	ParamWeightG = "weight_g"
	ParamWeightV = "weight_v"
	ParamWeight  = "weight"
	ParamBias    = "bias"
)

// Scope selects which node kinds StripWeightNorm rewrites.
type Scope int

const (
	// EncoderScope strips plain convolutions only.
	EncoderScope Scope = iota
	// DecoderScope also strips transposed convolutions.
	DecoderScope
)

func (s Scope) transposed() bool { return s == DecoderScope }

// Subtree is a container and the scope to strip it with.
type Subtree struct {
	Root  NodeID
	Scope Scope
}

// StripWeightNorm folds weight_g and weight_v into a plain weight on
// the convolutions directly under root:
//
//   - a NormConv1d child
//   - a NormConvTranspose1d child, in DecoderScope only
//   - for a ResidualBlock child, its shortcut and every NormConv1d
//     directly inside its block container
//
// Deeper nodes are left alone. Every target is checked before anything is
// rewritten, so on error the graph is unchanged. It returns the number of
// nodes stripped; a second call returns 0.
func (g *Graph) StripWeightNorm(root NodeID, scope Scope) (int, error) {
	return g.StripWeightNormAll(Subtree{Root: root, Scope: scope})
}

// StripWeightNormAll strips every subtree as StripWeightNorm does. All of
// them are folded before any is rewritten, so on error none changes.
func (g *Graph) StripWeightNormAll(subtrees ...Subtree) (int, error) {
	var (
		targets []NodeID
		folded  []*tensor.Tensor
	)

	for _, st := range subtrees {
		ids, err := g.stripTargets(st.Root, st.Scope)
		if err != nil {
			return 0, err
		}

		for _, id := range ids {
			w, err := g.fold(id)
			if err != nil {
				return 0, err
			}
			targets = append(targets, id)
			folded = append(folded, w)
		}
	}

	for i, id := range targets {
		n := &g.nodes[id]
		delete(n.Params, ParamWeightG)
		delete(n.Params, ParamWeightV)
		n.Params[ParamWeight] = folded[i]
		n.Kind = Other
	}

	return len(targets), nil
}

// stripTargets lists the normalized convolutions StripWeightNorm visits.
func (g *Graph) stripTargets(root NodeID, scope Scope) ([]NodeID, error) {
	if g.nodes[root].Kind != Container {
		return nil, fmt.Errorf("%s is %s: %w", g.Path(root), g.nodes[root].Kind, ErrNotContainer)
	}

	var targets []NodeID

	for _, c := range g.nodes[root].Children {
		n := &g.nodes[c]

		switch n.Kind {
		case NormConv1d:
			targets = append(targets, c)

		case NormConvTranspose1d:
			if scope.transposed() {
				targets = append(targets, c)
			}

		case ResidualBlock:
			if n.Shortcut != NoNode && g.nodes[n.Shortcut].Kind == NormConv1d {
				targets = append(targets, n.Shortcut)
			}
			if n.Block != NoNode {
				for _, b := range g.nodes[n.Block].Children {
					if g.nodes[b].Kind == NormConv1d {
						targets = append(targets, b)
					}
				}
			}
		}
	}

	return targets, nil
}

// fold computes weight[i] = g[i] * v[i] / ||v[i]|| over dimension 0.
// A zero slice of v folds to zeros.
func (g *Graph) fold(id NodeID) (*tensor.Tensor, error) {
	n := &g.nodes[id]
	path := g.Path(id)

	wg, wv := n.Params[ParamWeightG], n.Params[ParamWeightV]
	if !wg.Loaded() || !wv.Loaded() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotLoaded)
	}
	if len(wv.Shape) == 0 || wg.Numel() != wv.Shape[0] {
		return nil, fmt.Errorf("%s: weight_g %v, weight_v %v: %w", path, wg.Shape, wv.Shape, ErrBadShape)
	}

	w := tensor.New(wv.Shape...)

	for i := range wv.Shape[0] {
		v := wv.Slice(i)

		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		norm := math.Sqrt(sum)
		if norm == 0 {
			continue
		}

		scale := float64(wg.Data[i]) / norm
		out := w.Slice(i)
		for k, x := range v {
			out[k] = float32(float64(x) * scale)
		}
	}

	return w, nil
}
