package layer

import (
	"math/rand"

	"github.com/FlavioCFOliveira/convnet/internal/tensor"
)

// GlobalAvgPool averages each channel over all spatial positions,
// mapping (W,H,C) to (1,1,C).
type GlobalAvgPool struct {
	inputWidth  int
	inputHeight int
}

// NewGlobalAvgPool creates a global average pool for a fixed spatial size.
func NewGlobalAvgPool(inputWidth, inputHeight int) *GlobalAvgPool {
	mustPositive("global average pool", inputWidth, inputHeight)
	return &GlobalAvgPool{inputWidth: inputWidth, inputHeight: inputHeight}
}

// Forward outputs the per-channel mean.
func (g *GlobalAvgPool) Forward(input *tensor.Tensor3) *tensor.Tensor3 {
	w, h, c := input.Shape()
	if w != g.inputWidth || h != g.inputHeight {
		shapeMismatch("global average pool expects (%d,%d,_), got (%d,%d,%d)",
			g.inputWidth, g.inputHeight, w, h, c)
	}
	plane := w * h
	in := input.Data()
	out := tensor.New3(1, 1, c)
	od := out.Data()
	for z := 0; z < c; z++ {
		var sum float32
		for _, v := range in[z*plane : (z+1)*plane] {
			sum += v
		}
		od[z] = sum / float32(plane)
	}
	return out
}

// Backward spreads each channel delta evenly over its W·H inputs.
func (g *GlobalAvgPool) Backward(grad *tensor.Tensor3) *tensor.Tensor3 {
	w, h, c := grad.Shape()
	if w != 1 || h != 1 {
		shapeMismatch("global average pool backward expects (1,1,_), got (%d,%d,%d)", w, h, c)
	}
	plane := g.inputWidth * g.inputHeight
	out := tensor.New3(g.inputWidth, g.inputHeight, c)
	od := out.Data()
	for z, d := range grad.Data() {
		share := d / float32(plane)
		for i := z * plane; i < (z+1)*plane; i++ {
			od[i] = share
		}
	}
	return out
}

// Update is a no-op: pooling has no parameters.
func (g *GlobalAvgPool) Update(float32) {}

// InitWeights is a no-op: pooling has no parameters.
func (g *GlobalAvgPool) InitWeights(*rand.Rand) {}

func (g *GlobalAvgPool) OutputShape(_, _, channels int) (int, int, int) {
	return 1, 1, channels
}

func (g *GlobalAvgPool) ParamCount() int { return 0 }

func (g *GlobalAvgPool) Kind() Kind { return KindGAP }

// InputWidth returns the declared input width.
func (g *GlobalAvgPool) InputWidth() int { return g.inputWidth }

// InputHeight returns the declared input height.
func (g *GlobalAvgPool) InputHeight() int { return g.inputHeight }
