// SPDX-License-Identifier: EPL-2.0

// Package seanet declares the parameter graph of a SEANet encoder/decoder
// with a residual vector quantizer, the layout of the neural codec a
// checkpoint is trained for. It loads checkpoints into that graph and
// removes the weight-norm reparameterization before inference. It does
// not run the network.
package seanet

import (
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/ik5/codecbench/checkpoint"
	"github.com/ik5/codecbench/codec"
	"github.com/ik5/codecbench/graph"
	"github.com/ik5/codecbench/tensor"
)

const (
	// Bins is the codebook size of every quantizer layer.
	Bins = 1024

	kernelSize     = 7
	lastKernelSize = 7
	residualKernel = 3
	compress       = 2
	lstmLayers     = 2
)

type Model struct {
	cfg codec.Config
	g   *graph.Graph

	root         graph.NodeID
	encoderModel graph.NodeID
	decoderModel graph.NodeID
	quantizers   int
}

// NumQuantizers is the residual quantizer depth needed for the highest
// target bandwidth.
func NumQuantizers(cfg codec.Config) int {
	frameRate := math.Ceil(float64(cfg.SampleRate) / float64(cfg.HopLength()))
	maxBW := slices.Max(cfg.TargetBandwidths)
	return int(math.Floor(1000 * maxBW / (frameRate * 10)))
}

// Build declares every parameter for cfg. No tensor has data until Load.
func Build(cfg codec.Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := graph.New()
	m := &Model{
		cfg:        cfg,
		g:          g,
		root:       g.Add(graph.NoNode, "", graph.Container),
		quantizers: NumQuantizers(cfg),
	}

	m.buildEncoder()
	m.buildDecoder()
	m.buildQuantizer()

	return m, nil
}

func (m *Model) Config() codec.Config { return m.cfg }
func (m *Model) Graph() *graph.Graph  { return m.g }
func (m *Model) NumQuantizers() int   { return m.quantizers }

// Parameters returns every declared parameter by its checkpoint name.
// The tensors are shared with the model.
func (m *Model) Parameters() checkpoint.ParameterMap {
	return m.g.Parameters(m.root)
}

// Load assigns a checkpoint. The key set and shapes must match exactly;
// on mismatch nothing is assigned.
func (m *Model) Load(pm checkpoint.ParameterMap) error {
	return checkpoint.Apply(m, pm)
}

// RemoveWeightNorm folds weight_g and weight_v into plain weights in the
// encoder and decoder bodies. Transposed convolutions are only folded in
// the decoder. It returns the number of layers rewritten. On error
// neither side is changed.
func (m *Model) RemoveWeightNorm() (int, error) {
	n, err := m.g.StripWeightNormAll(
		graph.Subtree{Root: m.encoderModel, Scope: graph.EncoderScope},
		graph.Subtree{Root: m.decoderModel, Scope: graph.DecoderScope},
	)
	if err != nil {
		return 0, fmt.Errorf("remove weight norm: %w", err)
	}

	return n, nil
}

type layers struct {
	g      *graph.Graph
	parent graph.NodeID
	next   int
}

func (l *layers) name() string {
	s := strconv.Itoa(l.next)
	l.next++
	return s
}

// conv declares a weight-normalized Conv1d; weight_norm runs over out.
func conv(g *graph.Graph, parent graph.NodeID, name string, in, out, k int) graph.NodeID {
	id := g.Add(parent, name, graph.NormConv1d)
	g.Node(id).ParamPath = "conv.conv"
	g.SetParam(id, graph.ParamWeightG, tensor.Empty(out, 1, 1))
	g.SetParam(id, graph.ParamWeightV, tensor.Empty(out, in, k))
	g.SetParam(id, graph.ParamBias, tensor.Empty(out))
	return id
}

// convTranspose declares a weight-normalized ConvTranspose1d, whose
// weight is (in, out, k) so weight_norm runs over in.
func convTranspose(g *graph.Graph, parent graph.NodeID, name string, in, out, k int) graph.NodeID {
	id := g.Add(parent, name, graph.NormConvTranspose1d)
	g.Node(id).ParamPath = "convtr.convtr"
	g.SetParam(id, graph.ParamWeightG, tensor.Empty(in, 1, 1))
	g.SetParam(id, graph.ParamWeightV, tensor.Empty(in, out, k))
	g.SetParam(id, graph.ParamBias, tensor.Empty(out))
	return id
}

func (l *layers) conv(in, out, k int) {
	conv(l.g, l.parent, l.name(), in, out, k)
}

func (l *layers) convTranspose(in, out, k int) {
	convTranspose(l.g, l.parent, l.name(), in, out, k)
}

func (l *layers) elu() {
	l.g.Add(l.parent, l.name(), graph.Other)
}

// residual declares block = [ELU, conv dim->dim/2 k3, ELU, conv dim/2->dim k1]
// and a 1x1 conv shortcut.
func (l *layers) residual(dim int) {
	_, block, short := l.g.AddResidual(l.parent, l.name(), graph.NormConv1d)
	hidden := dim / compress

	l.g.Add(block, "0", graph.Other)
	conv(l.g, block, "1", dim, hidden, residualKernel)
	l.g.Add(block, "2", graph.Other)
	conv(l.g, block, "3", hidden, dim, 1)

	s := l.g.Node(short)
	s.ParamPath = "conv.conv"
	l.g.SetParam(short, graph.ParamWeightG, tensor.Empty(dim, 1, 1))
	l.g.SetParam(short, graph.ParamWeightV, tensor.Empty(dim, dim, 1))
	l.g.SetParam(short, graph.ParamBias, tensor.Empty(dim))
}

// lstm declares a stacked LSTM with hidden size dim.
func (l *layers) lstm(dim int) {
	id := l.g.Add(l.parent, l.name(), graph.Other)
	l.g.Node(id).ParamPath = "lstm"

	for layer := range lstmLayers {
		suffix := "_l" + strconv.Itoa(layer)
		l.g.SetParam(id, "weight_ih"+suffix, tensor.Empty(4*dim, dim))
		l.g.SetParam(id, "weight_hh"+suffix, tensor.Empty(4*dim, dim))
		l.g.SetParam(id, "bias_ih"+suffix, tensor.Empty(4*dim))
		l.g.SetParam(id, "bias_hh"+suffix, tensor.Empty(4*dim))
	}
}

func (m *Model) body(name string) *layers {
	top := m.g.Add(m.root, name, graph.Container)
	body := m.g.Add(top, "model", graph.Container)
	return &layers{g: m.g, parent: body}
}

func (m *Model) buildEncoder() {
	nf := m.cfg.Filters
	l := m.body("encoder")
	m.encoderModel = l.parent

	mult := 1
	l.conv(1, mult*nf, kernelSize)

	for _, ratio := range slices.Backward(m.cfg.Ratios) {
		l.residual(mult * nf)
		l.elu()
		l.conv(mult*nf, 2*mult*nf, 2*ratio)
		mult *= 2
	}

	l.lstm(mult * nf)
	l.elu()
	l.conv(mult*nf, m.cfg.Dimension, lastKernelSize)
}

func (m *Model) buildDecoder() {
	nf := m.cfg.Filters
	l := m.body("decoder")
	m.decoderModel = l.parent

	mult := 1 << len(m.cfg.Ratios)
	l.conv(m.cfg.Dimension, mult*nf, kernelSize)
	l.lstm(mult * nf)

	for _, ratio := range m.cfg.Ratios {
		l.elu()
		l.convTranspose(mult*nf, mult*nf/2, 2*ratio)
		l.residual(mult * nf / 2)
		mult /= 2
	}

	l.elu()
	l.conv(nf, 1, lastKernelSize)
}

func (m *Model) buildQuantizer() {
	q := m.g.Add(m.root, "quantizer", graph.Container)
	vq := m.g.Add(q, "vq", graph.Container)
	list := m.g.Add(vq, "layers", graph.Container)

	dim := m.cfg.Dimension
	for i := range m.quantizers {
		layer := m.g.Add(list, strconv.Itoa(i), graph.Container)
		cb := m.g.Add(layer, "_codebook", graph.Other)

		m.g.SetParam(cb, "inited", tensor.Empty(1))
		m.g.SetParam(cb, "cluster_size", tensor.Empty(Bins))
		m.g.SetParam(cb, "embed", tensor.Empty(Bins, dim))
		m.g.SetParam(cb, "embed_avg", tensor.Empty(Bins, dim))
	}
}
