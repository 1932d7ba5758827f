package tensor

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/blas/blas32"
)

// Matrix is a dense row-major float32 matrix.
type Matrix struct {
	rows, cols int
	data       []float32
}

// NewMatrix allocates a zeroed rows x cols matrix.
func NewMatrix(rows, cols int) *Matrix {
	if rows < 0 || cols < 0 {
		panicShape("negative matrix shape %dx%d", rows, cols)
	}
	return &Matrix{rows: rows, cols: cols, data: make([]float32, rows*cols)}
}

// MatrixFrom builds a matrix from row-major values. The slice is copied.
func MatrixFrom(rows, cols int, values []float32) *Matrix {
	m := NewMatrix(rows, cols)
	if len(values) != len(m.data) {
		panicShape("%d values for %dx%d matrix", len(values), rows, cols)
	}
	copy(m.data, values)
	return m
}

// Rows returns the row count.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the column count.
func (m *Matrix) Cols() int { return m.cols }

// Data exposes the row-major backing slice.
func (m *Matrix) Data() []float32 { return m.data }

// SameShape reports whether both matrices have identical extents.
func (m *Matrix) SameShape(o *Matrix) bool {
	return m.rows == o.rows && m.cols == o.cols
}

func (m *Matrix) index(r, c int) int {
	if r < 0 || r >= m.rows || c < 0 || c >= m.cols {
		panicBounds("(%d,%d) outside %dx%d matrix", r, c, m.rows, m.cols)
	}
	return r*m.cols + c
}

// At returns the element at row r, column c.
func (m *Matrix) At(r, c int) float32 {
	return m.data[m.index(r, c)]
}

// Set stores v at row r, column c.
func (m *Matrix) Set(r, c int, v float32) {
	m.data[m.index(r, c)] = v
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	return MatrixFrom(m.rows, m.cols, m.data)
}

// Add returns m + o.
func (m *Matrix) Add(o *Matrix) *Matrix {
	m.mustMatch(o, "add")
	out := m.Clone()
	for i, v := range o.data {
		out.data[i] += v
	}
	return out
}

// Sub returns m - o.
func (m *Matrix) Sub(o *Matrix) *Matrix {
	m.mustMatch(o, "sub")
	out := m.Clone()
	for i, v := range o.data {
		out.data[i] -= v
	}
	return out
}

// Scale returns m * s.
func (m *Matrix) Scale(s float32) *Matrix {
	out := m.Clone()
	for i := range out.data {
		out.data[i] *= s
	}
	return out
}

// Div returns m / s. Dividing by zero panics.
func (m *Matrix) Div(s float32) *Matrix {
	if s == 0 {
		panicDivZero("matrix divided by zero scalar")
	}
	out := m.Clone()
	for i := range out.data {
		out.data[i] /= s
	}
	return out
}

// SubScaled performs m -= s*o in place.
func (m *Matrix) SubScaled(o *Matrix, s float32) {
	m.mustMatch(o, "sub scaled")
	for i, v := range o.data {
		m.data[i] -= s * v
	}
}

func (m *Matrix) mustMatch(o *Matrix, op string) {
	if !m.SameShape(o) {
		panicShape("%s %dx%d and %dx%d", op, m.rows, m.cols, o.rows, o.cols)
	}
}

// general views the matrix as a BLAS operand without copying.
func (m *Matrix) general() blas32.General {
	return blas32.General{Rows: m.rows, Cols: m.cols, Stride: m.cols, Data: m.data}
}

func (m *Matrix) String() string {
	var b strings.Builder
	b.WriteString("[")
	for r := 0; r < m.rows; r++ {
		if r > 0 {
			b.WriteString(",\n ")
		}
		b.WriteString("[")
		for c := 0; c < m.cols; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%g", m.data[r*m.cols+c])
		}
		b.WriteString("]")
	}
	b.WriteString("]")
	return b.String()
}
