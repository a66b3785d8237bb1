package tensor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func TestNew_ValidatesShape(t *testing.T) {
	_, err := New([]int{2, 3}, seq(5))
	assert.True(t, errors.Is(err, ErrShape))

	_, err = New([]int{2, -1}, nil)
	assert.True(t, errors.Is(err, ErrShape))

	// 2^62 * 4 wraps to 0 in int arithmetic.
	_, err = New([]int{1 << 62, 4}, nil)
	assert.True(t, errors.Is(err, ErrShape))
	_, err = New([]int{1 << 33, 1 << 31}, nil)
	assert.True(t, errors.Is(err, ErrShape))

	d, err := New([]int{1 << 62, 0}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, d.Len())

	d, err = New([]int{2, 3, 4}, seq(24))
	require.NoError(t, err)
	assert.Equal(t, 3, d.Rank())
	assert.Equal(t, 24, d.Len())
	assert.Equal(t, []int{4}, d.BatchShape())
}

func TestDense_RowMajorIndexing(t *testing.T) {
	d, err := New([]int{2, 3, 4}, seq(24))
	require.NoError(t, err)

	assert.Equal(t, 0.0, d.At(0, 0, 0))
	assert.Equal(t, 7.0, d.At(0, 1, 3))
	assert.Equal(t, 23.0, d.At(1, 2, 3))
	assert.Equal(t, []int{1, 2, 3}, d.Unravel(23))
	assert.Equal(t, []int{0, 1, 3}, d.Unravel(7))

	_, err = d.Offset(0, 3, 0)
	assert.True(t, errors.Is(err, ErrIndex))
	_, err = d.Offset(0, 0)
	assert.True(t, errors.Is(err, ErrIndex))
	assert.Panics(t, func() { d.At(2, 0, 0) })

	d.Set(-1, 1, 0, 2)
	assert.Equal(t, -1.0, d.Data()[14])
}

func TestDense_ScalarAndClone(t *testing.T) {
	s := Zeros()
	assert.Equal(t, 0, s.Rank())
	assert.Equal(t, 1, s.Len())
	s.Set(3.5)
	assert.Equal(t, 3.5, s.Scalar())

	v := Zeros(3)
	assert.Panics(t, func() { v.Scalar() })

	c := s.Clone()
	c.Set(1)
	assert.Equal(t, 3.5, s.Scalar())
}

func TestFromMatrix(t *testing.T) {
	d, err := FromMatrix([][]float64{{1, 2}, {3, 4}, {5, 6}})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, d.Shape())
	assert.Equal(t, 4.0, d.At(1, 1))

	_, err = FromMatrix([][]float64{{1, 2}, {3}})
	assert.True(t, errors.Is(err, ErrShape))
}

func TestStack_TrailingAxis(t *testing.T) {
	a, _ := FromMatrix([][]float64{{1, 2}, {3, 4}})
	b, _ := FromMatrix([][]float64{{10, 20}, {30, 40}})
	s, err := Stack(a, b, a)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 2, 3}, s.Shape())
	assert.Equal(t, 3.0, s.At(1, 0, 0))
	assert.Equal(t, 30.0, s.At(1, 0, 1))
	assert.Equal(t, 3.0, s.At(1, 0, 2))

	back, err := s.BatchSlice(1)
	require.NoError(t, err)
	assert.Equal(t, b.Data(), back.Data())

	_, err = s.BatchSlice(3)
	assert.True(t, errors.Is(err, ErrIndex))

	_, err = Stack(a, Zeros(3, 2))
	assert.True(t, errors.Is(err, ErrShape))
	_, err = Stack()
	assert.True(t, errors.Is(err, ErrShape))
}

func TestReshapeSharesData(t *testing.T) {
	d, _ := New([]int{2, 6}, seq(12))
	r, err := d.Reshape(2, 3, 2)
	require.NoError(t, err)
	r.Set(100, 1, 2, 1)
	assert.Equal(t, 100.0, d.At(1, 5))

	_, err = d.Reshape(5)
	assert.True(t, errors.Is(err, ErrShape))
}
