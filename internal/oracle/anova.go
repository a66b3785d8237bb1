package oracle

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"rmanova/domain/tensor"
	"rmanova/internal/anova"
	"rmanova/internal/errors"
)

// Row is one line of an ANOVA source table.
type Row struct {
	Source string
	SS     float64
	DF     int
	MS     float64
	F      float64
	P      float64
}

// Table is an ANOVA source table.
type Table []Row

// Effect finds the row for source.
func (t Table) Effect(source string) (Row, bool) {
	for _, r := range t {
		if r.Source == source {
			return r, true
		}
	}
	return Row{}, false
}

// RMAnova fits value ~ subject + condition and value ~ subject by least
// squares and reports the uncorrected condition effect. Every subject must
// appear exactly once under every condition.
func RMAnova(t LongTable) (Table, error) {
	n, k := len(t.Subjects), len(t.Conditions)
	if n < 2 || k < 2 {
		return nil, errors.DegenerateDesign("oracle needs at least 2 subjects and 2 conditions, got %dx%d", n, k)
	}

	subjectCol := make(map[int]int, n)
	for i, s := range t.Subjects {
		subjectCol[s] = i
	}
	conditionCol := make(map[string]int, k)
	for j, c := range t.Conditions {
		conditionCol[c] = j
	}

	seen := make(map[[2]int]bool, n*k)
	y := mat.NewVecDense(len(t.Rows), nil)
	full := mat.NewDense(len(t.Rows), n+k-1, nil)
	for r, obs := range t.Rows {
		i, ok := subjectCol[obs.Subject]
		if !ok {
			return nil, errors.InvalidInput("row references unknown subject")
		}
		j, ok := conditionCol[obs.Condition]
		if !ok {
			return nil, errors.InvalidInput("row references unknown condition " + obs.Condition)
		}
		if seen[[2]int{i, j}] {
			return nil, errors.InvalidInput("duplicate subject/condition observation")
		}
		seen[[2]int{i, j}] = true

		y.SetVec(r, obs.Value)
		full.Set(r, 0, 1)
		if i > 0 {
			full.Set(r, i, 1)
		}
		if j > 0 {
			full.Set(r, n-1+j, 1)
		}
	}
	if len(seen) != n*k {
		return nil, errors.InvalidInput("unbalanced design: missing subject/condition observations")
	}

	reduced := full.Slice(0, len(t.Rows), 0, n)
	rssFull, err := residualSS(full, y)
	if err != nil {
		return nil, errors.Wrap(err, "fit subject + condition model")
	}
	rssReduced, err := residualSS(reduced, y)
	if err != nil {
		return nil, errors.Wrap(err, "fit subject model")
	}

	dfCondition := k - 1
	dfError := (n - 1) * (k - 1)
	ssCondition := rssReduced - rssFull
	msCondition := ssCondition / float64(dfCondition)
	msError := rssFull / float64(dfError)
	f := msCondition / msError

	fDist := distuv.F{D1: float64(dfCondition), D2: float64(dfError)}
	p := 1 - fDist.CDF(f)

	return Table{
		{Source: "condition", SS: ssCondition, DF: dfCondition, MS: msCondition, F: f, P: p},
		{Source: "error", SS: rssFull, DF: dfError, MS: msError, F: math.NaN(), P: math.NaN()},
	}, nil
}

func residualSS(x mat.Matrix, y *mat.VecDense) (float64, error) {
	var beta mat.VecDense
	if err := beta.SolveVec(x, y); err != nil {
		return 0, err
	}
	var resid mat.VecDense
	resid.MulVec(x, &beta)
	resid.SubVec(y, &resid)
	return mat.Dot(&resid, &resid), nil
}

// Agreement records how one batch cell of the engine compares to the oracle.
type Agreement struct {
	Index   []int
	EngineF float64
	EngineP float64
	OracleF float64
	OracleP float64
	Summary []ConditionSummary
	Agree   bool
}

// Verify recomputes every batch cell of data with the oracle and compares it
// with res. Agreement is relative within tol on both F and p.
func Verify(data *tensor.Dense, res *anova.Result, labels []string, tol float64) ([]Agreement, error) {
	out := make([]Agreement, 0, res.Len())
	for b := 0; b < res.Len(); b++ {
		slice, err := data.BatchSlice(b)
		if err != nil {
			return nil, errors.WithCode(errors.CodeInvalidShape, err)
		}
		long, err := Melt(slice, labels)
		if err != nil {
			return nil, err
		}
		table, err := RMAnova(long)
		if err != nil {
			return nil, err
		}
		summary, err := Describe(long)
		if err != nil {
			return nil, err
		}
		effect, _ := table.Effect("condition")
		cell := res.Cell(b)
		out = append(out, Agreement{
			Index:   cell.Index,
			EngineF: cell.F,
			EngineP: cell.P,
			OracleF: effect.F,
			OracleP: effect.P,
			Summary: summary,
			Agree:   Close(cell.F, effect.F, tol) && Close(cell.P, effect.P, tol),
		})
	}
	return out, nil
}

// Close reports whether a and b agree within relative tolerance tol. Values
// below tol in magnitude are compared absolutely.
func Close(a, b, tol float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	diff := math.Abs(a - b)
	scale := math.Max(math.Abs(a), math.Abs(b))
	if scale < tol {
		return diff <= tol
	}
	return diff <= tol*scale
}
