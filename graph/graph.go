// SPDX-License-Identifier: EPL-2.0

// Package graph stores a model's module tree as an arena of nodes and
// rewrites it in place.
//
// Nodes are addressed by NodeID. Each node has a local name, a Kind and
// its own parameters; the full name of a parameter is the dotted path of
// node names from the root, then the node's ParamPath, then the parameter
// name, e.g. "encoder.model.0" + "conv.conv" + "weight_g".
package graph

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ik5/codecbench/tensor"
)

var (
	ErrNotContainer = errors.New("node is not a container")
	ErrNotLoaded    = errors.New("parameter is not loaded")
	ErrBadShape     = errors.New("parameter shapes do not match")
	ErrNotFound     = errors.New("node not found")
)

type NodeID int

// NoNode is the parent of a root node and the value of unset links.
const NoNode NodeID = -1

type Kind int

const (
	Other Kind = iota
	Container
	NormConv1d
	NormConvTranspose1d
	ResidualBlock
)

func (k Kind) String() string {
	switch k {
	case Container:
		return "Container"
	case NormConv1d:
		return "NormConv1d"
	case NormConvTranspose1d:
		return "NormConvTranspose1d"
	case ResidualBlock:
		return "ResidualBlock"
	default:
		return "Other"
	}
}

type Node struct {
	Name string
	Kind Kind

	// ParamPath is inserted between the node path and its parameter names.
	ParamPath string
	Params    map[string]*tensor.Tensor

	Parent   NodeID
	Children []NodeID

	// Residual blocks only.
	Block    NodeID
	Shortcut NodeID
}

type Graph struct {
	nodes []Node
}

func New() *Graph {
	return &Graph{}
}

// Add appends a node under parent (NoNode for a root) and returns its id.
func (g *Graph) Add(parent NodeID, name string, kind Kind) NodeID {
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, Node{
		Name:     name,
		Kind:     kind,
		Params:   make(map[string]*tensor.Tensor),
		Parent:   parent,
		Block:    NoNode,
		Shortcut: NoNode,
	})

	if parent != NoNode {
		g.nodes[parent].Children = append(g.nodes[parent].Children, id)
	}

	return id
}

// AddResidual adds a residual block with an empty "block" container and
// a shortcut node of the given kind. The block is returned for the caller
// to fill.
func (g *Graph) AddResidual(parent NodeID, name string, shortcut Kind) (id, block, short NodeID) {
	id = g.Add(parent, name, ResidualBlock)
	block = g.Add(id, "block", Container)
	short = g.Add(id, "shortcut", shortcut)

	g.nodes[id].Block = block
	g.nodes[id].Shortcut = short

	return id, block, short
}

// Node returns the node for id. The pointer is valid until the next Add.
func (g *Graph) Node(id NodeID) *Node {
	return &g.nodes[id]
}

func (g *Graph) Len() int { return len(g.nodes) }

// SetParam declares or replaces a parameter on node id.
func (g *Graph) SetParam(id NodeID, name string, t *tensor.Tensor) {
	g.nodes[id].Params[name] = t
}

// Path is the dotted name of id from its root.
func (g *Graph) Path(id NodeID) string {
	var parts []string
	for n := id; n != NoNode; n = g.nodes[n].Parent {
		if g.nodes[n].Name != "" {
			parts = append(parts, g.nodes[n].Name)
		}
	}
	slices.Reverse(parts)
	return strings.Join(parts, ".")
}

// Find resolves a dotted path below root.
func (g *Graph) Find(root NodeID, path string) (NodeID, error) {
	id := root
	if path == "" {
		return id, nil
	}

next:
	for part := range strings.SplitSeq(path, ".") {
		for _, c := range g.nodes[id].Children {
			if g.nodes[c].Name == part {
				id = c
				continue next
			}
		}
		return NoNode, fmt.Errorf("%s under %q: %w", path, g.Path(root), ErrNotFound)
	}

	return id, nil
}

// Parameters returns every parameter below root keyed by its full name.
// The tensors are shared with the graph.
func (g *Graph) Parameters(root NodeID) map[string]*tensor.Tensor {
	out := make(map[string]*tensor.Tensor)
	g.walk(root, func(id NodeID) {
		n := &g.nodes[id]
		prefix := join(g.Path(id), n.ParamPath)
		for name, t := range n.Params {
			out[join(prefix, name)] = t
		}
	})
	return out
}

// Count returns how many nodes of kind exist below root, root included.
func (g *Graph) Count(root NodeID, kind Kind) int {
	n := 0
	g.walk(root, func(id NodeID) {
		if g.nodes[id].Kind == kind {
			n++
		}
	})
	return n
}

func (g *Graph) walk(id NodeID, fn func(NodeID)) {
	fn(id)
	for _, c := range g.nodes[id].Children {
		g.walk(c, fn)
	}
}

func join(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + "." + b
}
