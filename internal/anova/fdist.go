package anova

import (
	"math"

	"gonum.org/v1/gonum/mathext"
)

// FSurvival returns the upper-tail probability P(X > f) for X ~ F(d1, d2).
//
// The tail is evaluated directly as the regularized incomplete beta
// I_x(d2/2, d1/2) with x = d2/(d2 + d1*f), which keeps full relative precision
// for small p-values where 1 - CDF would cancel to zero.
func FSurvival(f, d1, d2 float64) float64 {
	switch {
	case badDF(d1) || badDF(d2) || math.IsNaN(f):
		return math.NaN()
	case f <= 0:
		return 1
	case math.IsInf(f, 1):
		return 0
	}
	x := d2 / (d2 + d1*f)
	return mathext.RegIncBeta(d2/2, d1/2, x)
}

func badDF(df float64) bool {
	return df <= 0 || math.IsNaN(df) || math.IsInf(df, 0)
}

// fSurvivalTo writes FSurvival(f[i], d1, d2) into dst.
func fSurvivalTo(dst, f []float64, d1, d2 float64) {
	for i, v := range f {
		dst[i] = FSurvival(v, d1, d2)
	}
}
