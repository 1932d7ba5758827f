// Package net provides the Network orchestrator: an ordered layer stack with
// softmax output, closed-form softmax+MSE backpropagation, SGD updates,
// binary model persistence and a sample-at-a-time trainer.
package net

import (
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"strings"

	"github.com/FlavioCFOliveira/convnet/internal/layer"
	"github.com/FlavioCFOliveira/convnet/internal/loss"
	"github.com/FlavioCFOliveira/convnet/internal/tensor"
)

// Network is an ordered stack of layers. It owns its layers exclusively;
// LoadWeights replaces the whole stack.
type Network struct {
	layers []layer.Layer
	rng    *rand.Rand
	logger *log.Logger
	loss   loss.SoftmaxMSE
}

// Option configures a Network.
type Option func(*Network)

// WithSeed makes weight initialization reproducible.
func WithSeed(seed int64) Option {
	return func(n *Network) { n.rng = rand.New(rand.NewSource(seed)) }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *log.Logger) Option {
	return func(n *Network) { n.SetLogger(l) }
}

// DefaultLogger is the diagnostic logger a new Network starts with.
func DefaultLogger() *log.Logger {
	return log.New(os.Stderr, "convnet: ", log.LstdFlags)
}

// New creates an empty network.
func New(opts ...Option) *Network {
	n := &Network{logger: DefaultLogger()}
	for _, opt := range opts {
		opt(n)
	}
	if n.rng == nil {
		n.rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return n
}

// SetLogger replaces the diagnostic logger. A nil logger discards output.
func (n *Network) SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	n.logger = l
}

// Logger returns the diagnostic logger.
func (n *Network) Logger() *log.Logger { return n.logger }

// AddLayer initializes the layer's weights and appends it.
func (n *Network) AddLayer(l layer.Layer) {
	l.InitWeights(n.rng)
	n.layers = append(n.layers, l)
}

// Layers returns the layer stack in forward order.
func (n *Network) Layers() []layer.Layer {
	out := make([]layer.Layer, len(n.layers))
	copy(out, n.layers)
	return out
}

// Len returns the number of layers.
func (n *Network) Len() int { return len(n.layers) }

// Forward runs every layer in order and returns the softmax of the final
// output. The result is a probability distribution with the shape of the
// last layer's output.
func (n *Network) Forward(input *tensor.Tensor3) *tensor.Tensor3 {
	curr := input
	for _, l := range n.layers {
		curr = l.Forward(curr)
	}
	return loss.SoftmaxTensor(curr)
}

// Backwards propagates the softmax+MSE gradient of (result, expected)
// through the layers in reverse order and returns dL/d(input).
// result must be the value returned by the latest Forward.
func (n *Network) Backwards(result, expected *tensor.Tensor3) *tensor.Tensor3 {
	if result.Len() != expected.Len() {
		panic(fmt.Errorf("%w: result has %d values, expected %d",
			tensor.ErrShapeMismatch, result.Len(), expected.Len()))
	}
	w, h, c := result.Shape()
	curr := tensor.FromSlice3(w, h, c, n.loss.Backward(result.Data(), expected.Data()))
	for i := len(n.layers) - 1; i >= 0; i-- {
		curr = n.layers[i].Backward(curr)
	}
	return curr
}

// Update applies each layer's cached gradient with the given learning rate.
func (n *Network) Update(learningRate float32) {
	for _, l := range n.layers {
		l.Update(learningRate)
	}
}

// Loss returns the mean squared error between a Forward result and its label.
func (n *Network) Loss(result, expected *tensor.Tensor3) float32 {
	return loss.MSE{}.Forward(result.Data(), expected.Data())
}

// TrainStep runs forward, backwards and update for one sample and returns
// the sample loss measured before the update.
func (n *Network) TrainStep(input, expected *tensor.Tensor3, learningRate float32) float32 {
	result := n.Forward(input)
	l := n.Loss(result, expected)
	n.Backwards(result, expected)
	n.Update(learningRate)
	return l
}

// Predict returns the most probable class and the full distribution.
func (n *Network) Predict(input *tensor.Tensor3) (int, []float32) {
	probs := n.Forward(input)
	return probs.Argmax(), probs.Data()
}

// ParamCount returns the number of learnable scalars in the stack.
func (n *Network) ParamCount() int {
	total := 0
	for _, l := range n.layers {
		total += l.ParamCount()
	}
	return total
}

// Summary writes a table of layers, output shapes and parameter counts for an
// input of the given shape.
func (n *Network) Summary(w io.Writer, width, height, channels int) {
	rule := strings.Repeat("_", 65)
	fmt.Fprintln(w, "Model: Network")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-25s %-20s %-10s\n", "Layer (type)", "Output Shape", "Param #")
	fmt.Fprintln(w, strings.Repeat("=", 65))

	for i, l := range n.layers {
		width, height, channels = l.OutputShape(width, height, channels)
		fmt.Fprintf(w, "%-25s %-20s %-10d\n",
			fmt.Sprintf("%s_%d", l.Kind(), i),
			fmt.Sprintf("(%d, %d, %d)", width, height, channels),
			l.ParamCount())
	}
	fmt.Fprintln(w, strings.Repeat("=", 65))
	fmt.Fprintf(w, "Total params: %d\n", n.ParamCount())
	fmt.Fprintln(w, rule)
}
