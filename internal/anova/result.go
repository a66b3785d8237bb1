package anova

import (
	"rmanova/domain/tensor"
)

// Result holds the per-cell rm-ANOVA output. Every array has the batch shape of
// the input; for a plain (subjects, conditions) matrix they are rank 0 and
// Scalar reads the value.
type Result struct {
	Subjects    int
	Conditions  int
	DFCondition int
	DFError     int

	F *tensor.Dense
	P *tensor.Dense

	SSTotal     *tensor.Dense
	SSSubject   *tensor.Dense
	SSCondition *tensor.Dense
	SSError     *tensor.Dense
}

// CellSummary is the source table of one batch cell.
type CellSummary struct {
	Index       []int
	SSTotal     float64
	SSSubject   float64
	SSCondition float64
	SSError     float64
	DFCondition int
	DFError     int
	MSCondition float64
	MSError     float64
	F           float64
	P           float64
}

func newResult(batch []int, n, k int) *Result {
	return &Result{
		Subjects:    n,
		Conditions:  k,
		DFCondition: k - 1,
		DFError:     (n - 1) * (k - 1),
		F:           tensor.Zeros(batch...),
		P:           tensor.Zeros(batch...),
		SSTotal:     tensor.Zeros(batch...),
		SSSubject:   tensor.Zeros(batch...),
		SSCondition: tensor.Zeros(batch...),
		SSError:     tensor.Zeros(batch...),
	}
}

// BatchShape returns the shape shared by all result arrays.
func (r *Result) BatchShape() []int { return r.F.Shape() }

// Len returns the number of batch cells.
func (r *Result) Len() int { return r.F.Len() }

// Cell returns the source table of the batch cell at flat position b.
func (r *Result) Cell(b int) CellSummary {
	ssCond := r.SSCondition.Data()[b]
	ssErr := r.SSError.Data()[b]
	return CellSummary{
		Index:       r.F.Unravel(b),
		SSTotal:     r.SSTotal.Data()[b],
		SSSubject:   r.SSSubject.Data()[b],
		SSCondition: ssCond,
		SSError:     ssErr,
		DFCondition: r.DFCondition,
		DFError:     r.DFError,
		MSCondition: ssCond / float64(r.DFCondition),
		MSError:     ssErr / float64(r.DFError),
		F:           r.F.Data()[b],
		P:           r.P.Data()[b],
	}
}
