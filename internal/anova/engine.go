// Package anova computes one-way repeated-measures ANOVA over the first two
// axes of an observation array, independently for every trailing batch cell.
//
// The input is shaped (subjects, conditions, ...batch). The decomposition uses
// the closed-form sums of squares
//
//	SS_total     = sum_ij (x_ij - grand)^2
//	SS_subject   = k * sum_i (subject_i - grand)^2
//	SS_condition = n * sum_j (condition_j - grand)^2
//	SS_error     = SS_total - SS_subject - SS_condition
//
// with df_condition = k-1 and df_error = (n-1)(k-1). No sphericity correction
// is applied; designs must be balanced.
package anova

import (
	"context"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"rmanova/domain/tensor"
	"rmanova/internal/errors"
)

// DefaultChunkSize is the number of batch cells evaluated per work unit.
const DefaultChunkSize = 4096

// Engine evaluates rm-ANOVA over batch cells. The zero value is not usable;
// construct with NewEngine. An Engine holds only settings and is safe for
// concurrent use.
type Engine struct {
	workers   int
	chunkSize int
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets how many batch chunks may be evaluated at once.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithChunkSize sets the number of batch cells per chunk.
func WithChunkSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates a sequential engine unless WithWorkers says otherwise.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		workers:   1,
		chunkSize: DefaultChunkSize,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute runs the sequential engine on data.
func Compute(data *tensor.Dense) (*Result, error) {
	return NewEngine().Compute(context.Background(), data)
}

// Compute returns F and p for every batch cell of data.
//
// Chunks cover disjoint batch windows and run the same elementwise operations
// as a single full-width pass, so the output does not depend on the worker
// count or chunk size.
func (e *Engine) Compute(ctx context.Context, data *tensor.Dense) (*Result, error) {
	panel, err := validate(data)
	if err != nil {
		return nil, err
	}

	res := newResult(data.BatchShape(), panel.N, panel.K)
	chunks := split(panel.M, e.chunkSize)

	e.logger.Debug("rm-anova",
		"subjects", panel.N,
		"conditions", panel.K,
		"batch_cells", panel.M,
		"chunks", len(chunks),
		"workers", e.workers)

	if e.workers <= 1 || len(chunks) <= 1 {
		for _, c := range chunks {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			res.fill(panel.Window(c[0], c[1]))
		}
		return res, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, c := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res.fill(panel.Window(c[0], c[1]))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func validate(data *tensor.Dense) (tensor.Panel, error) {
	if data == nil {
		return tensor.Panel{}, errors.InvalidShape("observation array is nil")
	}
	if data.Rank() < 2 {
		return tensor.Panel{}, errors.InvalidShape(
			"observation array has rank %d, need at least 2 axes (subjects, conditions)", data.Rank())
	}
	panel, err := data.Panel()
	if err != nil {
		return tensor.Panel{}, errors.WithCode(errors.CodeInvalidShape, err)
	}
	if panel.N < 2 {
		return tensor.Panel{}, errors.DegenerateDesign(
			"subject axis (axis 0) has %d subjects, need at least 2 for df_error > 0", panel.N)
	}
	if panel.K < 2 {
		return tensor.Panel{}, errors.DegenerateDesign(
			"condition axis (axis 1) has %d conditions, need at least 2 for df_condition > 0", panel.K)
	}
	return panel, nil
}

// split cuts [0, m) into windows of at most size cells.
func split(m, size int) [][2]int {
	var out [][2]int
	for lo := 0; lo < m; lo += size {
		out = append(out, [2]int{lo, min(lo+size, m)})
	}
	return out
}

// fill evaluates one batch window and writes it into the result arrays.
func (r *Result) fill(p tensor.Panel) {
	lo, hi := p.Offset(), p.Offset()+p.M

	condMeans := tensor.Rows(p.K, p.M)
	subjMeans := tensor.Rows(p.N, p.M)
	grand := make([]float64, p.M)
	scratch := make([]float64, p.M)
	column := make([]float64, p.M)

	p.MeanOverSubjects(condMeans)
	tensor.MeanVectors(grand, condMeans)
	p.MeanOverConditions(subjMeans)

	ssTotal := r.SSTotal.Data()[lo:hi]
	for j := 0; j < p.K; j++ {
		clear(column)
		for i := 0; i < p.N; i++ {
			tensor.AccumulateSquaredDeviations(column, scratch, p.Cell(i, j), grand)
		}
		floats.Add(ssTotal, column)
	}

	ssSubject := r.SSSubject.Data()[lo:hi]
	for _, m := range subjMeans {
		tensor.AccumulateSquaredDeviations(ssSubject, scratch, m, grand)
	}
	floats.Scale(float64(p.K), ssSubject)

	ssCondition := r.SSCondition.Data()[lo:hi]
	for _, m := range condMeans {
		tensor.AccumulateSquaredDeviations(ssCondition, scratch, m, grand)
	}
	floats.Scale(float64(p.N), ssCondition)

	ssError := r.SSError.Data()[lo:hi]
	floats.SubTo(ssError, ssTotal, ssSubject)
	floats.Sub(ssError, ssCondition)

	dfCondition := float64(r.DFCondition)
	dfError := float64(r.DFError)

	// grand is spent; reuse it as the divisor vector.
	divisor := grand
	msCondition := scratch
	msError := column
	fillConst(divisor, dfCondition)
	floats.DivTo(msCondition, ssCondition, divisor)
	fillConst(divisor, dfError)
	floats.DivTo(msError, ssError, divisor)

	f := r.F.Data()[lo:hi]
	floats.DivTo(f, msCondition, msError)
	fSurvivalTo(r.P.Data()[lo:hi], f, dfCondition, dfError)
}

func fillConst(dst []float64, v float64) {
	for i := range dst {
		dst[i] = v
	}
}
