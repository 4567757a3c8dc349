package dataprep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelsOrdering(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "10"}, Levels([]string{"10", "2", "1", "2"}))
	assert.Equal(t, []string{"a", "b", "c"}, Levels([]string{"c", "a", "b"}))

	// equal numeric values fall back to text order
	for i := 0; i < 20; i++ {
		assert.Equal(t, []string{"01", "1", "2"}, Levels([]string{"2", "1", "01", "1"}))
	}
}

func TestDummyCodeUsesFirstLevelAsReference(t *testing.T) {
	cols, err := DummyCode([]string{"1", "3", "2", "1"}, []string{"1", "2", "3"})
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, []float64{0, 0, 1, 0}, cols[0])
	assert.Equal(t, []float64{0, 1, 0, 0}, cols[1])

	_, err = DummyCode([]string{"4"}, []string{"1", "2"})
	assert.Error(t, err)
}

func TestOneHotKeepsEveryLevel(t *testing.T) {
	cols, err := OneHot([]string{"b", "a", "c", "a"}, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.Equal(t, []float64{0, 1, 0, 1}, cols[0])
	assert.Equal(t, []float64{1, 0, 0, 0}, cols[1])
	assert.Equal(t, []float64{0, 0, 1, 0}, cols[2])

	_, err = OneHot([]string{"d"}, []string{"a", "b"})
	assert.Error(t, err)
}

func TestCompleteRows(t *testing.T) {
	missing := [][]bool{
		{false, true, false, false},
		{false, false, false, true},
	}
	assert.Equal(t, []int{0, 2}, CompleteRows(missing, 4))
	assert.True(t, IsMissing("NA"))
	assert.False(t, IsMissing("0"))
}

func TestInteractAndPower(t *testing.T) {
	assert.Equal(t, []float64{2, 6}, Interact([]float64{1, 2}, []float64{2, 3}))
	assert.Equal(t, []float64{1, 8}, Power([]float64{1, 2}, 3))
}
