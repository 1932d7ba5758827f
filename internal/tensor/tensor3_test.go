package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requirePanicIs runs f and checks it panics with an error matching target.
func requirePanicIs(t *testing.T, target error, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		assert.ErrorIs(t, err, target)
	}()
	f()
}

func TestTensor3Layout(t *testing.T) {
	tt := New3(3, 2, 2)
	tt.Set(2, 1, 1, 7)
	tt.Set(1, 0, 0, 3)

	// index = z*w*h + y*w + x
	assert.Equal(t, float32(7), tt.Data()[1*6+1*3+2])
	assert.Equal(t, float32(3), tt.Data()[1])
	assert.Equal(t, float32(7), tt.At(2, 1, 1))
	assert.Equal(t, 12, tt.Len())
}

func TestTensor3OutOfBounds(t *testing.T) {
	tt := New3(2, 2, 1)
	requirePanicIs(t, ErrOutOfBounds, func() { tt.At(2, 0, 0) })
	requirePanicIs(t, ErrOutOfBounds, func() { tt.At(0, -1, 0) })
	requirePanicIs(t, ErrOutOfBounds, func() { tt.Set(0, 0, 1, 1) })
}

func TestTensor3CloneIsIndependent(t *testing.T) {
	a := Vector(1, 2, 3)
	b := a.Clone()
	b.Set(0, 0, 0, 9)

	assert.Equal(t, float32(1), a.At(0, 0, 0))
	assert.Equal(t, float32(9), b.At(0, 0, 0))
}

func TestTensor3FromSliceCopies(t *testing.T) {
	src := []float32{1, 2}
	tt := FromSlice3(2, 1, 1, src)
	src[0] = 5
	assert.Equal(t, float32(1), tt.At(0, 0, 0))

	requirePanicIs(t, ErrShapeMismatch, func() { FromSlice3(3, 1, 1, src) })
}

func TestTensor3Arithmetic(t *testing.T) {
	a := Vector(1, 2, 3)
	b := Vector(4, 5, 6)

	assert.Equal(t, []float32{5, 7, 9}, a.Add(b).Data())
	assert.Equal(t, []float32{-3, -3, -3}, a.Sub(b).Data())
	assert.Equal(t, []float32{2, 4, 6}, a.Scale(2).Data())
	assert.Equal(t, []float32{0.5, 1, 1.5}, a.Div(2).Data())
	assert.Equal(t, []float32{1, 2, 3}, a.Data(), "operands must not change")

	requirePanicIs(t, ErrShapeMismatch, func() { a.Add(New3(1, 3, 1)) })
	requirePanicIs(t, ErrDivisionByZero, func() { a.Div(0) })
}

func TestTensor3Reshape(t *testing.T) {
	a := FromSlice3(2, 2, 1, []float32{1, 2, 3, 4})
	r := a.Reshape(4, 1, 1)

	w, h, c := r.Shape()
	assert.Equal(t, [3]int{4, 1, 1}, [3]int{w, h, c})
	assert.Equal(t, a.Data(), r.Data())

	requirePanicIs(t, ErrShapeMismatch, func() { a.Reshape(3, 1, 1) })
}

func TestTensor3Argmax(t *testing.T) {
	assert.Equal(t, 2, Vector(0.1, 0.2, 0.7, 0.7).Argmax(), "first maximum wins")
	assert.InDelta(t, 1.7, Vector(0.1, 0.2, 0.7, 0.7).Sum(), 1e-6)
}
