package tensor

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/FlavioCFOliveira/convnet/internal/parallel"
)

var workers = parallel.DefaultConfig()

// SetParallelism replaces the worker configuration used by Im2Col and Col2Im.
// It must not be called while another goroutine runs tensor operations.
func SetParallelism(cfg parallel.Config) {
	workers = cfg
}

// Cross returns the matrix product a x b. a.Cols must equal b.Rows.
func Cross(a, b *Matrix) *Matrix {
	if a.cols != b.rows {
		panicShape("cross %dx%d by %dx%d", a.rows, a.cols, b.rows, b.cols)
	}
	out := NewMatrix(a.rows, b.cols)
	if a.rows == 0 || a.cols == 0 || b.cols == 0 {
		return out
	}
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1, a.general(), b.general(), 0, out.general())
	return out
}

// Transpose returns a new matrix with rows and columns swapped.
func Transpose(m *Matrix) *Matrix {
	out := NewMatrix(m.cols, m.rows)
	for r := 0; r < m.rows; r++ {
		row := m.data[r*m.cols : (r+1)*m.cols]
		for c, v := range row {
			out.data[c*m.rows+r] = v
		}
	}
	return out
}

// Apply returns f applied to every element of m.
func Apply(m *Matrix, f func(float32) float32) *Matrix {
	out := NewMatrix(m.rows, m.cols)
	for i, v := range m.data {
		out.data[i] = f(v)
	}
	return out
}

// Hadamard returns the elementwise product of a and b.
func Hadamard(a, b *Matrix) *Matrix {
	a.mustMatch(b, "hadamard")
	out := NewMatrix(a.rows, a.cols)
	for i, v := range a.data {
		out.data[i] = v * b.data[i]
	}
	return out
}

// Slides returns how many stride-1, unpadded window positions fit along each axis.
func Slides(width, height, filterSize int) (int, int) {
	return width - filterSize + 1, height - filterSize + 1
}

// Im2Col lays out every filterSize x filterSize x filterDepth window of t
// (stride 1, no padding) as one matrix row. Row index is y*slidesW + x;
// column index is z*filterSize*filterSize + fy*filterSize + fx.
func Im2Col(t *Tensor3, filterSize, filterDepth int) *Matrix {
	if filterSize <= 0 || filterSize > t.w || filterSize > t.h {
		panicShape("im2col window %d over tensor (%d,%d,%d)", filterSize, t.w, t.h, t.c)
	}
	if filterDepth <= 0 || filterDepth > t.c {
		panicShape("im2col depth %d over tensor (%d,%d,%d)", filterDepth, t.w, t.h, t.c)
	}
	slidesW, slidesH := Slides(t.w, t.h, filterSize)
	area := filterSize * filterSize
	out := NewMatrix(slidesW*slidesH, area*filterDepth)
	plane := t.w * t.h

	parallel.For(out.rows, func(row int) {
		x, y := row%slidesW, row/slidesW
		dst := out.data[row*out.cols : (row+1)*out.cols]
		for z := 0; z < filterDepth; z++ {
			for fy := 0; fy < filterSize; fy++ {
				src := t.data[z*plane+(y+fy)*t.w+x:]
				copy(dst[z*area+fy*filterSize:z*area+(fy+1)*filterSize], src[:filterSize])
			}
		}
	}, workers)
	return out
}

// Col2Im is the adjoint of Im2Col: it scatters each row of cols back onto the
// window it came from in a (width, height, depth) tensor, summing where
// windows overlap.
func Col2Im(cols *Matrix, width, height, depth, filterSize int) *Tensor3 {
	slidesW, slidesH := Slides(width, height, filterSize)
	area := filterSize * filterSize
	if slidesW <= 0 || slidesH <= 0 || cols.rows != slidesW*slidesH || cols.cols != area*depth {
		panicShape("col2im %dx%d into (%d,%d,%d) with window %d", cols.rows, cols.cols, width, height, depth, filterSize)
	}
	out := New3(width, height, depth)
	plane := width * height

	// Channels are disjoint in the output, so each worker owns one plane.
	parallel.For(depth, func(z int) {
		dst := out.data[z*plane : (z+1)*plane]
		for row := 0; row < cols.rows; row++ {
			x, y := row%slidesW, row/slidesW
			src := cols.data[row*cols.cols+z*area : row*cols.cols+(z+1)*area]
			for fy := 0; fy < filterSize; fy++ {
				base := (y+fy)*width + x
				for fx := 0; fx < filterSize; fx++ {
					dst[base+fx] += src[fy*filterSize+fx]
				}
			}
		}
	}, channelWorkers())
	return out
}

func channelWorkers() parallel.Config {
	cfg := workers
	cfg.MinChunkSize = 1
	return cfg
}
