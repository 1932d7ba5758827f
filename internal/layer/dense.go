package layer

import (
	"math/rand"

	"github.com/FlavioCFOliveira/convnet/internal/activations"
	"github.com/FlavioCFOliveira/convnet/internal/tensor"
)

// Dense is a fully connected layer computing act(W·x + b).
// The input tensor is read in flat channel-major order, so it can follow
// either a Flatten (n,1,1) or a GlobalAvgPool (1,1,n). Output is (out,1,1).
type Dense struct {
	inSize  int
	outSize int
	act     activations.Activation

	// weights is out x in; weight for output i, input j is at (i, j)
	weights *tensor.Matrix
	biases  *tensor.Matrix // out x 1

	// Forward cache
	lastInput *tensor.Matrix // in x 1
	preAct    *tensor.Matrix // out x 1
	inShape   [3]int

	// Backward cache
	delta *tensor.Matrix
}

// NewDense creates a dense layer with zeroed parameters. A nil act means ReLU.
// Weights are drawn by InitWeights (Network.AddLayer calls it).
func NewDense(in, out int, act activations.Activation) *Dense {
	mustPositive("dense", in, out)
	if act == nil {
		act = activations.ReLU{}
	}
	return &Dense{
		inSize:  in,
		outSize: out,
		act:     act,
		weights: tensor.NewMatrix(out, in),
		biases:  tensor.NewMatrix(out, 1),
	}
}

// Forward performs a forward pass through the dense layer.
func (d *Dense) Forward(input *tensor.Tensor3) *tensor.Tensor3 {
	if input.Len() != d.inSize {
		w, h, c := input.Shape()
		shapeMismatch("dense expects %d inputs, got (%d,%d,%d)", d.inSize, w, h, c)
	}

	x := tensor.MatrixFrom(d.inSize, 1, input.Data())
	z := tensor.Cross(d.weights, x).Add(d.biases)

	d.lastInput = x
	d.preAct = z
	d.inShape[0], d.inShape[1], d.inShape[2] = input.Shape()

	out := activate(z, d.act)
	return tensor.FromSlice3(d.outSize, 1, 1, out.Data())
}

// Backward turns dL/d(output) into dL/d(input) and caches the layer delta.
func (d *Dense) Backward(grad *tensor.Tensor3) *tensor.Tensor3 {
	if d.preAct == nil {
		panic(ErrNoForward)
	}
	if grad.Len() != d.outSize {
		w, h, c := grad.Shape()
		shapeMismatch("dense backward expects %d deltas, got (%d,%d,%d)", d.outSize, w, h, c)
	}

	g := tensor.MatrixFrom(d.outSize, 1, grad.Data())
	d.delta = maskDerivative(g, d.preAct, d.act)

	up := tensor.Cross(tensor.Transpose(d.weights), d.delta)
	return tensor.FromSlice3(d.inShape[0], d.inShape[1], d.inShape[2], up.Data())
}

// Update applies the cached delta: W -= lr·δxᵀ, b -= lr·δ.
func (d *Dense) Update(learningRate float32) {
	if d.delta == nil {
		return
	}
	gradW := tensor.Cross(d.delta, tensor.Transpose(d.lastInput))
	d.weights.SubScaled(gradW, learningRate)
	d.biases.SubScaled(d.delta, learningRate)
}

// InitWeights draws weights from N(0, σ²) with He or Xavier σ; biases start at zero.
func (d *Dense) InitWeights(rng *rand.Rand) {
	fillNormal(d.weights.Data(), initStddev(d.act, d.inSize), rng)
	zero(d.biases.Data())
}

func (d *Dense) OutputShape(_, _, _ int) (int, int, int) {
	return d.outSize, 1, 1
}

func (d *Dense) ParamCount() int {
	return d.outSize*d.inSize + d.outSize
}

func (d *Dense) Kind() Kind { return KindDense }

// InSize returns the input size of the layer.
func (d *Dense) InSize() int { return d.inSize }

// OutSize returns the output size of the layer.
func (d *Dense) OutSize() int { return d.outSize }

// Activation returns the activation function used by this layer.
func (d *Dense) Activation() activations.Activation { return d.act }

// Weights returns a copy of the out x in weight matrix.
func (d *Dense) Weights() *tensor.Matrix { return d.weights.Clone() }

// Biases returns a copy of the out x 1 bias column.
func (d *Dense) Biases() *tensor.Matrix { return d.biases.Clone() }

// SetWeights replaces the weights with a copy of w.
func (d *Dense) SetWeights(w *tensor.Matrix) {
	if w.Rows() != d.outSize || w.Cols() != d.inSize {
		shapeMismatch("dense weights %dx%d, want %dx%d", w.Rows(), w.Cols(), d.outSize, d.inSize)
	}
	d.weights = w.Clone()
}

// SetBiases replaces the biases with a copy of b.
func (d *Dense) SetBiases(b *tensor.Matrix) {
	if b.Rows() != d.outSize || b.Cols() != 1 {
		shapeMismatch("dense biases %dx%d, want %dx1", b.Rows(), b.Cols(), d.outSize)
	}
	d.biases = b.Clone()
}

// SetWeight sets a single weight at (row, col).
func (d *Dense) SetWeight(row, col int, val float32) {
	d.weights.Set(row, col, val)
}

// SetBias sets a single bias.
func (d *Dense) SetBias(idx int, val float32) {
	d.biases.Set(idx, 0, val)
}
