package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Panel views an array of shape (n, k, ...batch) as an n x k grid of batch
// vectors. Row-major layout keeps every (subject, condition) vector contiguous,
// so reductions over the first two axes become whole-vector operations.
//
// A Panel may be narrowed to a window [lo, lo+M) of the flattened batch axis.
type Panel struct {
	N, K, M int

	stride int
	lo     int
	data   []float64
}

// Panel returns the full-width panel over d. d must have rank >= 2.
func (d *Dense) Panel() (Panel, error) {
	if len(d.shape) < 2 {
		return Panel{}, fmt.Errorf("%w: rank %d, panel needs at least 2 axes", ErrShape, len(d.shape))
	}
	m := 1
	for _, s := range d.shape[2:] {
		m *= s
	}
	return Panel{N: d.shape[0], K: d.shape[1], M: m, stride: m, data: d.data}, nil
}

// Window narrows the panel to batch positions [lo, hi) relative to the
// current window.
func (p Panel) Window(lo, hi int) Panel {
	if lo < 0 || hi > p.M || lo > hi {
		panic(fmt.Errorf("%w: window [%d, %d) of %d", ErrIndex, lo, hi, p.M))
	}
	q := p
	q.lo = p.lo + lo
	q.M = hi - lo
	return q
}

// Offset is the absolute batch position of the window start.
func (p Panel) Offset() int { return p.lo }

// Cell returns the batch vector of subject i under condition j. The slice
// aliases the underlying array.
func (p Panel) Cell(i, j int) []float64 {
	start := (i*p.K+j)*p.stride + p.lo
	return p.data[start : start+p.M : start+p.M]
}

// MeanOverSubjects stores in dst[j] the mean of Cell(i, j) across subjects.
func (p Panel) MeanOverSubjects(dst [][]float64) {
	for j := 0; j < p.K; j++ {
		acc := dst[j]
		copy(acc, p.Cell(0, j))
		for i := 1; i < p.N; i++ {
			floats.Add(acc, p.Cell(i, j))
		}
		floats.Scale(1/float64(p.N), acc)
	}
}

// MeanOverConditions stores in dst[i] the mean of Cell(i, j) across conditions.
func (p Panel) MeanOverConditions(dst [][]float64) {
	for i := 0; i < p.N; i++ {
		acc := dst[i]
		copy(acc, p.Cell(i, 0))
		for j := 1; j < p.K; j++ {
			floats.Add(acc, p.Cell(i, j))
		}
		floats.Scale(1/float64(p.K), acc)
	}
}

// MeanVectors stores the elementwise mean of vecs in dst.
func MeanVectors(dst []float64, vecs [][]float64) {
	copy(dst, vecs[0])
	for _, v := range vecs[1:] {
		floats.Add(dst, v)
	}
	floats.Scale(1/float64(len(vecs)), dst)
}

// AccumulateSquaredDeviations adds (x - center)^2 into acc elementwise. scratch
// is overwritten.
func AccumulateSquaredDeviations(acc, scratch, x, center []float64) {
	floats.SubTo(scratch, x, center)
	floats.Mul(scratch, scratch)
	floats.Add(acc, scratch)
}

// Rows allocates n vectors of length m over one backing slice.
func Rows(n, m int) [][]float64 {
	backing := make([]float64, n*m)
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = backing[i*m : (i+1)*m : (i+1)*m]
	}
	return rows
}
