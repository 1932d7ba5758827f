package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/convnet/internal/parallel"
)

func TestCross(t *testing.T) {
	a := MatrixFrom(2, 3, []float32{1, 2, 3, 4, 5, 6})
	b := MatrixFrom(3, 2, []float32{7, 8, 9, 10, 11, 12})

	c := Cross(a, b)
	require.Equal(t, 2, c.Rows())
	require.Equal(t, 2, c.Cols())
	assert.Equal(t, []float32{58, 64, 139, 154}, c.Data())
}

func TestCrossColumnVector(t *testing.T) {
	w := MatrixFrom(2, 2, []float32{1, 0, 0, 2})
	x := MatrixFrom(2, 1, []float32{3, 4})

	assert.Equal(t, []float32{3, 8}, Cross(w, x).Data())
}

func TestCrossDimensionMismatch(t *testing.T) {
	requirePanicIs(t, ErrShapeMismatch, func() {
		Cross(NewMatrix(2, 3), NewMatrix(2, 3))
	})
}

func TestTranspose(t *testing.T) {
	m := MatrixFrom(2, 3, []float32{1, 2, 3, 4, 5, 6})
	tr := Transpose(m)

	assert.Equal(t, 3, tr.Rows())
	assert.Equal(t, 2, tr.Cols())
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, tr.Data())
	assert.Equal(t, m.Data(), Transpose(tr).Data())
}

func TestApplyAndHadamard(t *testing.T) {
	m := MatrixFrom(1, 3, []float32{-1, 0, 2})
	sq := Apply(m, func(v float32) float32 { return v * v })
	assert.Equal(t, []float32{1, 0, 4}, sq.Data())

	h := Hadamard(m, MatrixFrom(1, 3, []float32{3, 3, 3}))
	assert.Equal(t, []float32{-3, 0, 6}, h.Data())

	requirePanicIs(t, ErrShapeMismatch, func() { Hadamard(m, NewMatrix(3, 1)) })
}

func TestIm2ColLayout(t *testing.T) {
	// 3x3 single channel:
	// 1 2 3
	// 4 5 6
	// 7 8 9
	in := FromSlice3(3, 3, 1, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9})
	cols := Im2Col(in, 2, 1)

	require.Equal(t, 4, cols.Rows())
	require.Equal(t, 4, cols.Cols())
	assert.Equal(t, []float32{
		1, 2, 4, 5,
		2, 3, 5, 6,
		4, 5, 7, 8,
		5, 6, 8, 9,
	}, cols.Data())
}

func TestIm2ColChannelsGroupFirst(t *testing.T) {
	in := New3(2, 2, 2)
	for i := range in.Data() {
		in.Data()[i] = float32(i)
	}
	cols := Im2Col(in, 2, 2)

	require.Equal(t, 1, cols.Rows())
	assert.Equal(t, []float32{0, 1, 2, 3, 4, 5, 6, 7}, cols.Data())
}

func TestIm2ColShape(t *testing.T) {
	in := New3(28, 28, 3)
	cols := Im2Col(in, 5, 3)

	assert.Equal(t, 24*24, cols.Rows())
	assert.Equal(t, 5*5*3, cols.Cols())

	requirePanicIs(t, ErrShapeMismatch, func() { Im2Col(in, 29, 1) })
	requirePanicIs(t, ErrShapeMismatch, func() { Im2Col(in, 3, 4) })
}

func TestIm2ColOneByOneIsChannelTranspose(t *testing.T) {
	in := FromSlice3(2, 1, 3, []float32{1, 2, 3, 4, 5, 6})
	cols := Im2Col(in, 1, 3)

	// one row per pixel, one column per channel
	assert.Equal(t, []float32{1, 3, 5, 2, 4, 6}, cols.Data())
}

func TestCol2ImSumsOverlaps(t *testing.T) {
	ones := NewMatrix(4, 4)
	for i := range ones.Data() {
		ones.Data()[i] = 1
	}
	out := Col2Im(ones, 3, 3, 1, 2)

	// Each cell counts how many 2x2 windows cover it.
	assert.Equal(t, []float32{
		1, 2, 1,
		2, 4, 2,
		1, 2, 1,
	}, out.Data())

	requirePanicIs(t, ErrShapeMismatch, func() { Col2Im(ones, 4, 4, 1, 2) })
}

func TestCol2ImAdjointOfIm2Col(t *testing.T) {
	// <Im2Col(x), y> == <x, Col2Im(y)> for any x, y.
	x := New3(5, 4, 2)
	for i := range x.Data() {
		x.Data()[i] = float32(i%7) - 3
	}
	cols := Im2Col(x, 3, 2)
	y := NewMatrix(cols.Rows(), cols.Cols())
	for i := range y.Data() {
		y.Data()[i] = float32(i%5) - 2
	}

	var lhs, rhs float64
	for i, v := range cols.Data() {
		lhs += float64(v) * float64(y.Data()[i])
	}
	back := Col2Im(y, 5, 4, 2, 3)
	for i, v := range x.Data() {
		rhs += float64(v) * float64(back.Data()[i])
	}
	assert.InDelta(t, lhs, rhs, 1e-6)
}

func TestParallelMatchesSequential(t *testing.T) {
	in := New3(30, 30, 4)
	for i := range in.Data() {
		in.Data()[i] = float32(i%13) * 0.25
	}

	defer SetParallelism(parallel.DefaultConfig())

	SetParallelism(parallel.Sequential())
	seqCols := Im2Col(in, 3, 4)
	seqBack := Col2Im(seqCols, 30, 30, 4, 3)

	SetParallelism(parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 16})
	parCols := Im2Col(in, 3, 4)
	parBack := Col2Im(parCols, 30, 30, 4, 3)

	assert.Equal(t, seqCols.Data(), parCols.Data())
	assert.Equal(t, seqBack.Data(), parBack.Data())
}
