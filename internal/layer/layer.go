// Package layer provides neural network layer implementations.
package layer

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/FlavioCFOliveira/convnet/internal/activations"
	"github.com/FlavioCFOliveira/convnet/internal/tensor"
)

// Layer is one stage of a sequential network.
// Forward caches what Backward needs; Backward caches what Update needs.
// A layer holds the state of a single in-flight sample.
type Layer interface {
	Forward(input *tensor.Tensor3) *tensor.Tensor3
	Backward(grad *tensor.Tensor3) *tensor.Tensor3
	Update(learningRate float32)
	InitWeights(rng *rand.Rand)

	// OutputShape maps an input shape to the shape Forward produces.
	OutputShape(width, height, channels int) (int, int, int)
	// ParamCount is the number of learnable scalars.
	ParamCount() int
	Kind() Kind
}

// Kind is the layer-type tag. The numeric values are part of the model file format.
type Kind int32

const (
	KindConvolutional Kind = iota
	KindDense
	KindMaxPool
	KindFlatten
	KindGAP
)

func (k Kind) String() string {
	switch k {
	case KindConvolutional:
		return "Conv2D"
	case KindDense:
		return "Dense"
	case KindMaxPool:
		return "MaxPool2D"
	case KindFlatten:
		return "Flatten"
	case KindGAP:
		return "GlobalAvgPool"
	default:
		return fmt.Sprintf("Kind(%d)", int32(k))
	}
}

// Valid reports whether k names a known layer type.
func (k Kind) Valid() bool {
	return k >= KindConvolutional && k <= KindGAP
}

// ErrNoForward is the panic value when Backward runs without a cached Forward.
var ErrNoForward = errors.New("backward called before forward")

func shapeMismatch(format string, args ...any) {
	panic(fmt.Errorf("%w: %s", tensor.ErrShapeMismatch, fmt.Sprintf(format, args...)))
}

func mustPositive(name string, dims ...int) {
	for _, d := range dims {
		if d <= 0 {
			shapeMismatch("%s dimensions must be positive, got %v", name, dims)
		}
	}
}

// initStddev selects He scaling for ReLU and Xavier scaling otherwise.
func initStddev(act activations.Activation, fanIn int) float64 {
	if act != nil && act.Kind() == activations.KindReLU {
		return math.Sqrt(2 / float64(fanIn))
	}
	return math.Sqrt(1 / float64(fanIn))
}

func fillNormal(data []float32, stddev float64, rng *rand.Rand) {
	for i := range data {
		data[i] = float32(rng.NormFloat64() * stddev)
	}
}

func zero(data []float32) {
	for i := range data {
		data[i] = 0
	}
}

func activate(m *tensor.Matrix, act activations.Activation) *tensor.Matrix {
	if activations.IsIdentity(act) {
		return m
	}
	return tensor.Apply(m, act.Activate)
}

// maskDerivative returns grad scaled by f'(preAct), or grad itself for identity.
func maskDerivative(grad, preAct *tensor.Matrix, act activations.Activation) *tensor.Matrix {
	if activations.IsIdentity(act) {
		return grad
	}
	return tensor.Hadamard(grad, tensor.Apply(preAct, act.Derivative))
}
