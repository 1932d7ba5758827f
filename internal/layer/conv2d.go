package layer

import (
	"math/rand"

	"github.com/FlavioCFOliveira/convnet/internal/activations"
	"github.com/FlavioCFOliveira/convnet/internal/tensor"
)

// Conv2D implements a stride-1, unpadded 2D convolution as a single matrix
// product between the im2col patch matrix and the flattened filters.
//
// Input (W, H, filterDepth) produces (W-f+1, H-f+1, filterCount).
type Conv2D struct {
	filterCount int
	filterSize  int
	filterDepth int
	act         activations.Activation

	// filters is filterCount x f²·depth; row k is filter k laid out
	// channel, then row, then column.
	filters *tensor.Matrix
	biases  *tensor.Matrix // filterCount x 1

	// Forward cache
	patches *tensor.Matrix // slides x f²·depth
	preAct  *tensor.Matrix // slides x filterCount
	inW     int
	inH     int
	slidesW int
	slidesH int

	// Backward cache
	delta *tensor.Matrix // slides x filterCount
}

// NewConv2D creates a convolutional layer with zeroed parameters.
// filterSize: side of the square kernel
// filterDepth: input channels each filter spans
// filterCount: number of output feature maps
// A nil act means ReLU.
func NewConv2D(filterSize, filterDepth, filterCount int, act activations.Activation) *Conv2D {
	mustPositive("conv2d", filterSize, filterDepth, filterCount)
	if act == nil {
		act = activations.ReLU{}
	}
	return &Conv2D{
		filterCount: filterCount,
		filterSize:  filterSize,
		filterDepth: filterDepth,
		act:         act,
		filters:     tensor.NewMatrix(filterCount, filterSize*filterSize*filterDepth),
		biases:      tensor.NewMatrix(filterCount, 1),
	}
}

// Forward performs a forward pass through the convolutional layer.
func (c *Conv2D) Forward(input *tensor.Tensor3) *tensor.Tensor3 {
	w, h, ch := input.Shape()
	if ch != c.filterDepth {
		shapeMismatch("conv2d expects %d channels, got (%d,%d,%d)", c.filterDepth, w, h, ch)
	}

	patches := tensor.Im2Col(input, c.filterSize, c.filterDepth)
	z := tensor.Cross(patches, tensor.Transpose(c.filters))

	bias := c.biases.Data()
	zd := z.Data()
	for row := 0; row < z.Rows(); row++ {
		base := row * c.filterCount
		for k := 0; k < c.filterCount; k++ {
			zd[base+k] += bias[k]
		}
	}

	c.patches = patches
	c.preAct = z
	c.inW, c.inH = w, h
	c.slidesW, c.slidesH = tensor.Slides(w, h, c.filterSize)

	a := activate(z, c.act).Data()
	plane := c.slidesW * c.slidesH
	out := tensor.New3(c.slidesW, c.slidesH, c.filterCount)
	od := out.Data()
	// row = y*slidesW + x, so channel k of the output is column k of a.
	for row := 0; row < plane; row++ {
		for k := 0; k < c.filterCount; k++ {
			od[k*plane+row] = a[row*c.filterCount+k]
		}
	}
	return out
}

// Backward turns dL/d(output) into dL/d(input) and caches the layer delta.
// Overlapping receptive fields accumulate their contributions.
func (c *Conv2D) Backward(grad *tensor.Tensor3) *tensor.Tensor3 {
	if c.preAct == nil {
		panic(ErrNoForward)
	}
	w, h, ch := grad.Shape()
	if w != c.slidesW || h != c.slidesH || ch != c.filterCount {
		shapeMismatch("conv2d backward expects (%d,%d,%d), got (%d,%d,%d)",
			c.slidesW, c.slidesH, c.filterCount, w, h, ch)
	}

	// One row per output pixel, one column per filter.
	g := tensor.Im2Col(grad, 1, c.filterCount)
	c.delta = maskDerivative(g, c.preAct, c.act)

	cols := tensor.Cross(c.delta, c.filters)
	return tensor.Col2Im(cols, c.inW, c.inH, c.filterDepth, c.filterSize)
}

// Update applies the cached delta to filters and biases.
// A bias feeds every spatial position of its map, so its gradient is the
// sum of the delta column.
func (c *Conv2D) Update(learningRate float32) {
	if c.delta == nil {
		return
	}
	gradF := tensor.Cross(tensor.Transpose(c.patches), c.delta) // f²·depth x filterCount
	c.filters.SubScaled(tensor.Transpose(gradF), learningRate)

	bias := c.biases.Data()
	dd := c.delta.Data()
	// Each bias moves by its whole delta column, not just the first position.
	for k := 0; k < c.filterCount; k++ {
		var sum float32
		for row := 0; row < c.delta.Rows(); row++ {
			sum += dd[row*c.filterCount+k]
		}
		bias[k] -= learningRate * sum
	}
}

// InitWeights draws filters from N(0, σ²) with fan-in f²·depth; biases start at zero.
func (c *Conv2D) InitWeights(rng *rand.Rand) {
	fanIn := c.filterSize * c.filterSize * c.filterDepth
	fillNormal(c.filters.Data(), initStddev(c.act, fanIn), rng)
	zero(c.biases.Data())
}

func (c *Conv2D) OutputShape(width, height, _ int) (int, int, int) {
	w, h := tensor.Slides(width, height, c.filterSize)
	return w, h, c.filterCount
}

func (c *Conv2D) ParamCount() int {
	return c.filterCount*c.filterSize*c.filterSize*c.filterDepth + c.filterCount
}

func (c *Conv2D) Kind() Kind { return KindConvolutional }

// FilterCount returns the number of output feature maps.
func (c *Conv2D) FilterCount() int { return c.filterCount }

// FilterSize returns the kernel side.
func (c *Conv2D) FilterSize() int { return c.filterSize }

// FilterDepth returns the number of input channels.
func (c *Conv2D) FilterDepth() int { return c.filterDepth }

// Activation returns the activation function.
func (c *Conv2D) Activation() activations.Activation { return c.act }

// Filters returns a copy of the filterCount x f²·depth filter matrix.
func (c *Conv2D) Filters() *tensor.Matrix { return c.filters.Clone() }

// Biases returns a copy of the filterCount x 1 bias column.
func (c *Conv2D) Biases() *tensor.Matrix { return c.biases.Clone() }

// Filter returns filter k as a (f, f, depth) tensor.
func (c *Conv2D) Filter(k int) *tensor.Tensor3 {
	n := c.filters.Cols()
	return tensor.FromSlice3(c.filterSize, c.filterSize, c.filterDepth, c.filters.Data()[k*n:(k+1)*n])
}

// SetFilters replaces the filters with a copy of f.
func (c *Conv2D) SetFilters(f *tensor.Matrix) {
	if !f.SameShape(c.filters) {
		shapeMismatch("conv2d filters %dx%d, want %dx%d", f.Rows(), f.Cols(), c.filters.Rows(), c.filters.Cols())
	}
	c.filters = f.Clone()
}

// SetBiases replaces the biases with a copy of b.
func (c *Conv2D) SetBiases(b *tensor.Matrix) {
	if !b.SameShape(c.biases) {
		shapeMismatch("conv2d biases %dx%d, want %dx1", b.Rows(), b.Cols(), c.filterCount)
	}
	c.biases = b.Clone()
}
