package layer

import (
	"math/rand"

	"github.com/FlavioCFOliveira/convnet/internal/tensor"
)

// MaxPool2D implements non-overlapping 2D max pooling.
// Stores the argmax displacement of each window for gradient routing.
type MaxPool2D struct {
	poolSize  int
	poolDepth int

	// Forward cache
	inW      int
	inH      int
	outW     int
	outH     int
	argmax   []int // py*poolSize + px of the winner, per output cell
	hasCache bool
}

// NewMaxPool2D creates a pooling layer over poolSize x poolSize windows of
// a poolDepth-channel input.
func NewMaxPool2D(poolSize, poolDepth int) *MaxPool2D {
	mustPositive("maxpool2d", poolSize, poolDepth)
	return &MaxPool2D{
		poolSize:  poolSize,
		poolDepth: poolDepth,
	}
}

// Forward keeps the maximum of each window. Trailing rows and columns that
// do not fill a window are dropped. Ties go to the first cell in scan order.
func (m *MaxPool2D) Forward(input *tensor.Tensor3) *tensor.Tensor3 {
	w, h, ch := input.Shape()
	if ch != m.poolDepth {
		shapeMismatch("maxpool2d expects %d channels, got (%d,%d,%d)", m.poolDepth, w, h, ch)
	}
	ps := m.poolSize
	outW, outH := w/ps, h/ps
	if outW == 0 || outH == 0 {
		shapeMismatch("maxpool2d window %d larger than input (%d,%d)", ps, w, h)
	}

	out := tensor.New3(outW, outH, ch)
	if cap(m.argmax) < out.Len() {
		m.argmax = make([]int, out.Len())
	}
	m.argmax = m.argmax[:out.Len()]

	in := input.Data()
	od := out.Data()
	plane := w * h
	outPlane := outW * outH

	for c := 0; c < ch; c++ {
		for y := 0; y < outH; y++ {
			for x := 0; x < outW; x++ {
				base := c*plane + y*ps*w + x*ps
				maxVal := in[base]
				maxIdx := 0
				for py := 0; py < ps; py++ {
					for px := 0; px < ps; px++ {
						if v := in[base+py*w+px]; v > maxVal {
							maxVal = v
							maxIdx = py*ps + px
						}
					}
				}
				pos := c*outPlane + y*outW + x
				od[pos] = maxVal
				m.argmax[pos] = maxIdx
			}
		}
	}

	m.inW, m.inH = w, h
	m.outW, m.outH = outW, outH
	m.hasCache = true
	return out
}

// Backward routes each delta to the input cell that won its window.
func (m *MaxPool2D) Backward(grad *tensor.Tensor3) *tensor.Tensor3 {
	if !m.hasCache {
		panic(ErrNoForward)
	}
	w, h, ch := grad.Shape()
	if w != m.outW || h != m.outH || ch != m.poolDepth {
		shapeMismatch("maxpool2d backward expects (%d,%d,%d), got (%d,%d,%d)",
			m.outW, m.outH, m.poolDepth, w, h, ch)
	}

	ps := m.poolSize
	out := tensor.New3(m.inW, m.inH, m.poolDepth)
	od := out.Data()
	gd := grad.Data()
	plane := m.inW * m.inH
	outPlane := m.outW * m.outH

	for c := 0; c < m.poolDepth; c++ {
		for y := 0; y < m.outH; y++ {
			for x := 0; x < m.outW; x++ {
				pos := c*outPlane + y*m.outW + x
				d := m.argmax[pos]
				px, py := d%ps, d/ps
				od[c*plane+(y*ps+py)*m.inW+x*ps+px] += gd[pos]
			}
		}
	}
	return out
}

// Update is a no-op: pooling has no parameters.
func (m *MaxPool2D) Update(float32) {}

// InitWeights is a no-op: pooling has no parameters.
func (m *MaxPool2D) InitWeights(*rand.Rand) {}

func (m *MaxPool2D) OutputShape(width, height, _ int) (int, int, int) {
	return width / m.poolSize, height / m.poolSize, m.poolDepth
}

func (m *MaxPool2D) ParamCount() int { return 0 }

func (m *MaxPool2D) Kind() Kind { return KindMaxPool }

// PoolSize returns the window side.
func (m *MaxPool2D) PoolSize() int { return m.poolSize }

// PoolDepth returns the channel count.
func (m *MaxPool2D) PoolDepth() int { return m.poolDepth }

// Argmax returns a copy of the winner displacements from the last Forward.
func (m *MaxPool2D) Argmax() []int {
	out := make([]int, len(m.argmax))
	copy(out, m.argmax)
	return out
}
