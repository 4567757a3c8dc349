package core

import (
	"errors"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a dense row-major matrix. Draw collections and predictive
// samples are stored as one row per draw.
type Matrix struct {
	R, C int
	Data []float64
}

// NewMatrix allocates a zero matrix.
func NewMatrix(r, c int) *Matrix {
	return &Matrix{R: r, C: c, Data: make([]float64, r*c)}
}

// FromSlice creates a Matrix from a nested slice (copies).
func FromSlice(a [][]float64) *Matrix {
	r := len(a)
	if r == 0 {
		return &Matrix{R: 0, C: 0}
	}

	c := len(a[0])
	m := NewMatrix(r, c)
	k := 0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.Data[k] = a[i][j]
			k++
		}
	}
	return m
}

// At returns element (i, j)
func (m *Matrix) At(i, j int) float64 { return m.Data[i*m.C+j] }

// Set sets element (i, j)
func (m *Matrix) Set(i, j int, v float64) { m.Data[i*m.C+j] = v }

// Clone deep copies the matrix.
func (m *Matrix) Clone() *Matrix {
	n := &Matrix{R: m.R, C: m.C, Data: make([]float64, len(m.Data))}
	copy(n.Data, m.Data)
	return n
}

func (m *Matrix) Transpose() *Matrix {
	t := NewMatrix(m.C, m.R)
	for i := 0; i < m.R; i++ {
		for j := 0; j < m.C; j++ {
			t.Data[j*t.C+i] = m.Data[i*m.C+j]
		}
	}
	return t
}

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []float64 {
	v := make([]float64, m.C)
	copy(v, m.Data[i*m.C:(i+1)*m.C])
	return v
}

// Col returns a copy of column j.
func (m *Matrix) Col(j int) []float64 {
	v := make([]float64, m.R)
	for i := 0; i < m.R; i++ {
		v[i] = m.Data[i*m.C+j]
	}
	return v
}

// Head returns a copy of the first n rows.
func (m *Matrix) Head(n int) *Matrix {
	if n > m.R {
		n = m.R
	}
	h := NewMatrix(n, m.C)
	copy(h.Data, m.Data[:n*m.C])
	return h
}

// Dense wraps the matrix as a gonum Dense sharing the same backing slice.
func (m *Matrix) Dense() *mat.Dense {
	return mat.NewDense(m.R, m.C, m.Data)
}

// VStack stacks matrices with equal column counts on top of each other.
func VStack(ms ...*Matrix) (*Matrix, error) {
	if len(ms) == 0 {
		return &Matrix{}, nil
	}
	c, r := ms[0].C, 0
	for _, m := range ms {
		if m.C != c {
			return nil, errors.New("Dimension mismatch")
		}
		r += m.R
	}
	out := NewMatrix(r, c)
	off := 0
	for _, m := range ms {
		copy(out.Data[off:], m.Data)
		off += len(m.Data)
	}
	return out, nil
}

// MatMul computes A*B, splitting rows of A across GOMAXPROCS workers.
func MatMul(A, B *Matrix) (*Matrix, error) {
	if A.C != B.R {
		return nil, errors.New("Dimension mismatch")
	}

	C := NewMatrix(A.R, B.C)
	workers := runtime.GOMAXPROCS(0)
	var wg sync.WaitGroup
	rowsPerWorker := (A.R + workers - 1) / workers

	for w := 0; w < workers; w++ {
		start := w * rowsPerWorker
		end := min(start+rowsPerWorker, A.R)
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(rs, re int) {
			defer wg.Done()
			for i := rs; i < re; i++ {
				for k := 0; k < A.C; k++ {
					ai := A.Data[i*A.C+k]
					for j := 0; j < B.C; j++ {
						C.Data[i*C.C+j] += ai * B.Data[k*B.C+j]
					}
				}
			}
		}(start, end)
	}
	wg.Wait()
	return C, nil
}
