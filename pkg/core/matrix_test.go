package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSliceAndAccessors(t *testing.T) {
	m := FromSlice([][]float64{{1, 2, 3}, {4, 5, 6}})
	require.Equal(t, 2, m.R)
	require.Equal(t, 3, m.C)

	assert.Equal(t, 6.0, m.At(1, 2))
	m.Set(0, 1, 9)
	assert.Equal(t, []float64{1, 9, 3}, m.Row(0))
	assert.Equal(t, []float64{3, 6}, m.Col(2))

	// Row and Col return copies
	r := m.Row(1)
	r[0] = 100
	assert.Equal(t, 4.0, m.At(1, 0))
}

func TestTransposeAndHead(t *testing.T) {
	m := FromSlice([][]float64{{1, 2}, {3, 4}, {5, 6}})
	tr := m.Transpose()
	assert.Equal(t, 2, tr.R)
	assert.Equal(t, []float64{1, 3, 5}, tr.Row(0))

	h := m.Head(2)
	assert.Equal(t, 2, h.R)
	assert.Equal(t, []float64{3, 4}, h.Row(1))
	assert.Equal(t, 3, m.Head(10).R)
}

func TestMatMul(t *testing.T) {
	A := FromSlice([][]float64{{1, 2}, {3, 4}, {5, 6}})
	B := FromSlice([][]float64{{1, 0, 2}, {0, 1, -1}})
	C, err := MatMul(A, B)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 0}, C.Row(0))
	assert.Equal(t, []float64{5, 6, 4}, C.Row(2))

	_, err = MatMul(A, A)
	assert.Error(t, err)
}

func TestVStack(t *testing.T) {
	a := FromSlice([][]float64{{1, 2}})
	b := FromSlice([][]float64{{3, 4}, {5, 6}})
	s, err := VStack(a, b)
	require.NoError(t, err)
	assert.Equal(t, 3, s.R)
	assert.Equal(t, []float64{5, 6}, s.Row(2))

	_, err = VStack(a, NewMatrix(1, 3))
	assert.Error(t, err)
}

func TestDenseSharesData(t *testing.T) {
	m := FromSlice([][]float64{{1, 2}, {3, 4}})
	d := m.Dense()
	d.Set(0, 0, 7)
	assert.Equal(t, 7.0, m.At(0, 0))
}
