package layer

import (
	"math/rand"

	"github.com/FlavioCFOliveira/convnet/internal/tensor"
)

// Flatten reshapes a (W,H,C) tensor into (W·H·C,1,1), keeping channel-major
// order. Backward is the exact inverse.
type Flatten struct {
	inputWidth  int
	inputHeight int
	inputDepth  int
}

// NewFlatten creates a flatten layer for a fixed input shape.
func NewFlatten(inputWidth, inputHeight, inputDepth int) *Flatten {
	mustPositive("flatten", inputWidth, inputHeight, inputDepth)
	return &Flatten{
		inputWidth:  inputWidth,
		inputHeight: inputHeight,
		inputDepth:  inputDepth,
	}
}

func (f *Flatten) size() int {
	return f.inputWidth * f.inputHeight * f.inputDepth
}

// Forward performs a forward pass, flattening the input.
func (f *Flatten) Forward(input *tensor.Tensor3) *tensor.Tensor3 {
	w, h, c := input.Shape()
	if w != f.inputWidth || h != f.inputHeight || c != f.inputDepth {
		shapeMismatch("flatten expects (%d,%d,%d), got (%d,%d,%d)",
			f.inputWidth, f.inputHeight, f.inputDepth, w, h, c)
	}
	return input.Reshape(f.size(), 1, 1)
}

// Backward reshapes the gradient to the declared input shape.
func (f *Flatten) Backward(grad *tensor.Tensor3) *tensor.Tensor3 {
	if grad.Len() != f.size() {
		w, h, c := grad.Shape()
		shapeMismatch("flatten backward expects %d deltas, got (%d,%d,%d)", f.size(), w, h, c)
	}
	return grad.Reshape(f.inputWidth, f.inputHeight, f.inputDepth)
}

// Update is a no-op: Flatten has no parameters.
func (f *Flatten) Update(float32) {}

// InitWeights is a no-op: Flatten has no parameters.
func (f *Flatten) InitWeights(*rand.Rand) {}

func (f *Flatten) OutputShape(_, _, _ int) (int, int, int) {
	return f.size(), 1, 1
}

func (f *Flatten) ParamCount() int { return 0 }

func (f *Flatten) Kind() Kind { return KindFlatten }

// InputShape returns the declared (width, height, depth).
func (f *Flatten) InputShape() (int, int, int) {
	return f.inputWidth, f.inputHeight, f.inputDepth
}
