// Package tensor provides a minimal row-major n-dimensional float64 array
// together with the batched reductions used by the rm-ANOVA engine.
package tensor

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrShape is returned when a shape has a negative extent or does not match
	// the length of the backing data.
	ErrShape = errors.New("tensor: invalid shape")

	// ErrIndex is returned for out-of-range or wrong-rank indices.
	ErrIndex = errors.New("tensor: index out of range")
)

// Dense is a row-major n-dimensional array. A rank-0 Dense holds exactly one
// value and represents a scalar.
type Dense struct {
	shape   []int
	strides []int
	data    []float64
}

// New wraps data in a Dense of the given shape. The slice is not copied.
func New(shape []int, data []float64) (*Dense, error) {
	size, err := volume(shape)
	if err != nil {
		return nil, err
	}
	if size != len(data) {
		return nil, fmt.Errorf("%w: shape %v needs %d values, got %d", ErrShape, shape, size, len(data))
	}
	s := append([]int(nil), shape...)
	return &Dense{shape: s, strides: rowMajorStrides(s), data: data}, nil
}

// Zeros allocates a zero-filled Dense. It panics on a negative extent.
func Zeros(shape ...int) *Dense {
	size, err := volume(shape)
	if err != nil {
		panic(err)
	}
	d, _ := New(shape, make([]float64, size))
	return d
}

// FromMatrix builds a rank-2 Dense from rows of equal length.
func FromMatrix(rows [][]float64) (*Dense, error) {
	if len(rows) == 0 {
		return New([]int{0, 0}, nil)
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrShape, i, len(r), cols)
		}
		data = append(data, r...)
	}
	return New([]int{len(rows), cols}, data)
}

func volume(shape []int) (int, error) {
	size := 1
	for _, s := range shape {
		if s < 0 {
			return 0, fmt.Errorf("%w: negative extent in %v", ErrShape, shape)
		}
		if s != 0 && size > math.MaxInt/s {
			return 0, fmt.Errorf("%w: size of %v overflows int", ErrShape, shape)
		}
		size *= s
	}
	return size, nil
}

func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	acc := 1
	for a := len(shape) - 1; a >= 0; a-- {
		strides[a] = acc
		acc *= shape[a]
	}
	return strides
}

// Shape returns a copy of the array extents.
func (d *Dense) Shape() []int { return append([]int(nil), d.shape...) }

// Rank returns the number of axes.
func (d *Dense) Rank() int { return len(d.shape) }

// Len returns the number of elements.
func (d *Dense) Len() int { return len(d.data) }

// Data exposes the backing slice in row-major order.
func (d *Dense) Data() []float64 { return d.data }

// Dim returns the extent of axis a.
func (d *Dense) Dim(a int) int { return d.shape[a] }

// Offset converts a multi-index to a position in Data.
func (d *Dense) Offset(idx ...int) (int, error) {
	if len(idx) != len(d.shape) {
		return 0, fmt.Errorf("%w: got %d indices for rank %d", ErrIndex, len(idx), len(d.shape))
	}
	off := 0
	for a, i := range idx {
		if i < 0 || i >= d.shape[a] {
			return 0, fmt.Errorf("%w: index %d on axis %d of extent %d", ErrIndex, i, a, d.shape[a])
		}
		off += i * d.strides[a]
	}
	return off, nil
}

// At returns the element at idx and panics on a bad index, like slice access.
func (d *Dense) At(idx ...int) float64 {
	off, err := d.Offset(idx...)
	if err != nil {
		panic(err)
	}
	return d.data[off]
}

// Set stores v at idx and panics on a bad index.
func (d *Dense) Set(v float64, idx ...int) {
	off, err := d.Offset(idx...)
	if err != nil {
		panic(err)
	}
	d.data[off] = v
}

// Scalar returns the single value of a one-element array.
func (d *Dense) Scalar() float64 {
	if len(d.data) != 1 {
		panic(fmt.Errorf("%w: Scalar on array of shape %v", ErrShape, d.shape))
	}
	return d.data[0]
}

// Unravel converts a flat position into a multi-index.
func (d *Dense) Unravel(flat int) []int {
	idx := make([]int, len(d.shape))
	for a := range d.shape {
		idx[a] = flat / d.strides[a]
		flat %= d.strides[a]
	}
	return idx
}

// Clone returns a deep copy.
func (d *Dense) Clone() *Dense {
	out, _ := New(d.shape, append([]float64(nil), d.data...))
	return out
}

// Reshape returns a view over the same data with a new shape.
func (d *Dense) Reshape(shape ...int) (*Dense, error) {
	return New(shape, d.data)
}

// BatchShape returns the extents of axes 2 and above.
func (d *Dense) BatchShape() []int {
	if len(d.shape) < 2 {
		return nil
	}
	return append([]int{}, d.shape[2:]...)
}

// BatchSlice copies out the (n, k) matrix at flat batch position b.
func (d *Dense) BatchSlice(b int) (*Dense, error) {
	p, err := d.Panel()
	if err != nil {
		return nil, err
	}
	if b < 0 || b >= p.M {
		return nil, fmt.Errorf("%w: batch cell %d of %d", ErrIndex, b, p.M)
	}
	out := Zeros(p.N, p.K)
	for i := 0; i < p.N; i++ {
		for j := 0; j < p.K; j++ {
			out.data[i*p.K+j] = p.Cell(i, j)[b]
		}
	}
	return out, nil
}

// Stack joins equally shaped arrays along a new trailing axis.
func Stack(slices ...*Dense) (*Dense, error) {
	if len(slices) == 0 {
		return nil, fmt.Errorf("%w: nothing to stack", ErrShape)
	}
	base := slices[0].shape
	for t, s := range slices[1:] {
		if !equalShape(base, s.shape) {
			return nil, fmt.Errorf("%w: slice %d has shape %v, want %v", ErrShape, t+1, s.shape, base)
		}
	}
	shape := append(append([]int(nil), base...), len(slices))
	size := len(slices[0].data)
	data := make([]float64, size*len(slices))
	for t, s := range slices {
		for f, v := range s.data {
			data[f*len(slices)+t] = v
		}
	}
	return New(shape, data)
}

func equalShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
