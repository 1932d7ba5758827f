// Package tensor provides dense float32 storage and the algebra the layers are built from.
package tensor

import (
	"fmt"
	"strings"
)

// Tensor3 is a dense width x height x channel volume.
// Values are stored channel-major: index = z*w*h + y*w + x.
type Tensor3 struct {
	w, h, c int
	data    []float32
}

// New3 allocates a zeroed tensor.
func New3(width, height, channels int) *Tensor3 {
	if width < 0 || height < 0 || channels < 0 {
		panicShape("negative tensor shape (%d,%d,%d)", width, height, channels)
	}
	return &Tensor3{
		w:    width,
		h:    height,
		c:    channels,
		data: make([]float32, width*height*channels),
	}
}

// FromSlice3 builds a tensor from channel-major values. The slice is copied.
func FromSlice3(width, height, channels int, values []float32) *Tensor3 {
	t := New3(width, height, channels)
	if len(values) != len(t.data) {
		panicShape("%d values for tensor (%d,%d,%d)", len(values), width, height, channels)
	}
	copy(t.data, values)
	return t
}

// Vector builds a (n,1,1) tensor from values.
func Vector(values ...float32) *Tensor3 {
	return FromSlice3(len(values), 1, 1, values)
}

// Width returns the x extent.
func (t *Tensor3) Width() int { return t.w }

// Height returns the y extent.
func (t *Tensor3) Height() int { return t.h }

// Channels returns the z extent.
func (t *Tensor3) Channels() int { return t.c }

// Len returns the number of elements.
func (t *Tensor3) Len() int { return len(t.data) }

// Shape returns (width, height, channels).
func (t *Tensor3) Shape() (int, int, int) { return t.w, t.h, t.c }

// SameShape reports whether both tensors have identical extents.
func (t *Tensor3) SameShape(o *Tensor3) bool {
	return t.w == o.w && t.h == o.h && t.c == o.c
}

// Data exposes the backing slice in channel-major order.
func (t *Tensor3) Data() []float32 { return t.data }

func (t *Tensor3) index(x, y, z int) int {
	if x < 0 || x >= t.w || y < 0 || y >= t.h || z < 0 || z >= t.c {
		panicBounds("(%d,%d,%d) outside tensor (%d,%d,%d)", x, y, z, t.w, t.h, t.c)
	}
	return z*t.w*t.h + y*t.w + x
}

// At returns the value at (x, y, z).
func (t *Tensor3) At(x, y, z int) float32 {
	return t.data[t.index(x, y, z)]
}

// Set stores v at (x, y, z).
func (t *Tensor3) Set(x, y, z int, v float32) {
	t.data[t.index(x, y, z)] = v
}

// Clone returns a deep copy.
func (t *Tensor3) Clone() *Tensor3 {
	out := &Tensor3{w: t.w, h: t.h, c: t.c, data: make([]float32, len(t.data))}
	copy(out.data, t.data)
	return out
}

// Reshape returns a copy with new extents and the same channel-major values.
func (t *Tensor3) Reshape(width, height, channels int) *Tensor3 {
	if width*height*channels != len(t.data) {
		panicShape("reshape (%d,%d,%d) to (%d,%d,%d)", t.w, t.h, t.c, width, height, channels)
	}
	return FromSlice3(width, height, channels, t.data)
}

// Add returns t + o.
func (t *Tensor3) Add(o *Tensor3) *Tensor3 {
	t.mustMatch(o, "add")
	out := t.Clone()
	for i, v := range o.data {
		out.data[i] += v
	}
	return out
}

// Sub returns t - o.
func (t *Tensor3) Sub(o *Tensor3) *Tensor3 {
	t.mustMatch(o, "sub")
	out := t.Clone()
	for i, v := range o.data {
		out.data[i] -= v
	}
	return out
}

// Scale returns t * s.
func (t *Tensor3) Scale(s float32) *Tensor3 {
	out := t.Clone()
	for i := range out.data {
		out.data[i] *= s
	}
	return out
}

// Div returns t / s. Dividing by zero panics.
func (t *Tensor3) Div(s float32) *Tensor3 {
	if s == 0 {
		panicDivZero("tensor divided by zero scalar")
	}
	out := t.Clone()
	for i := range out.data {
		out.data[i] /= s
	}
	return out
}

// Sum returns the sum of all elements.
func (t *Tensor3) Sum() float32 {
	var s float32
	for _, v := range t.data {
		s += v
	}
	return s
}

// Argmax returns the flat index of the first maximum.
func (t *Tensor3) Argmax() int {
	best := 0
	for i := 1; i < len(t.data); i++ {
		if t.data[i] > t.data[best] {
			best = i
		}
	}
	return best
}

func (t *Tensor3) mustMatch(o *Tensor3, op string) {
	if !t.SameShape(o) {
		panicShape("%s (%d,%d,%d) and (%d,%d,%d)", op, t.w, t.h, t.c, o.w, o.h, o.c)
	}
}

func (t *Tensor3) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tensor3(%d,%d,%d)", t.w, t.h, t.c)
	for z := 0; z < t.c; z++ {
		fmt.Fprintf(&b, "\n[%d]", z)
		for y := 0; y < t.h; y++ {
			b.WriteString("\n ")
			for x := 0; x < t.w; x++ {
				if x > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, "%g", t.data[z*t.w*t.h+y*t.w+x])
			}
		}
	}
	return b.String()
}
