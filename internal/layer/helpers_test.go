package layer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/convnet/internal/tensor"
)

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

func randomTensor(rng *rand.Rand, w, h, c int) *tensor.Tensor3 {
	t := tensor.New3(w, h, c)
	for i := range t.Data() {
		t.Data()[i] = float32(rng.NormFloat64())
	}
	return t
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// dot is the scalar loss Σ g·y used by the gradient checks: its gradient
// with respect to y is g, so Backward(g) must equal dL/dx.
func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func assertRelClose(t *testing.T, want, got []float64, tol float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		scale := max(abs(want[i]), abs(got[i]), 1e-2)
		assert.LessOrEqual(t, abs(want[i]-got[i])/scale, tol, "element %d: want %v, got %v", i, want[i], got[i])
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
