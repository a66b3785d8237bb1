package testkit

import (
	"fmt"
	"math/rand"

	"rmanova/domain/tensor"
)

// DesignConfig configures a synthetic balanced within-subject design
type DesignConfig struct {
	Subjects   int   `json:"subjects"`
	Conditions int   `json:"conditions"`
	Batch      []int `json:"batch"`
	Seed       int64 `json:"seed"`

	// ConditionEffects is added to every observation of condition j. Missing
	// entries count as zero.
	ConditionEffects []float64 `json:"condition_effects"`
	// SubjectSpread scales the per-subject random offset.
	SubjectSpread float64 `json:"subject_spread"`
	// Noise scales the per-observation noise. Zero with zero spread yields
	// uniform [0, 1) data, the shape of the classic 10 x 4 benchmark matrix.
	Noise float64 `json:"noise"`
}

// DefaultDesignConfig returns a 10 subject x 4 condition design with uniform
// observations
func DefaultDesignConfig() DesignConfig {
	return DesignConfig{
		Subjects:   10,
		Conditions: 4,
		Seed:       42,
	}
}

// GenerateDesign builds the observation array for cfg. Output is fully
// determined by the config, seed included.
func GenerateDesign(cfg DesignConfig) (*tensor.Dense, error) {
	if cfg.Subjects < 0 || cfg.Conditions < 0 {
		return nil, fmt.Errorf("negative design size %dx%d", cfg.Subjects, cfg.Conditions)
	}
	shape := append([]int{cfg.Subjects, cfg.Conditions}, cfg.Batch...)
	out := tensor.Zeros(shape...)
	panel, err := out.Panel()
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	uniform := cfg.Noise == 0 && cfg.SubjectSpread == 0

	subject := make([]float64, panel.M)
	for i := 0; i < panel.N; i++ {
		for b := range subject {
			subject[b] = cfg.SubjectSpread * rng.NormFloat64()
		}
		for j := 0; j < panel.K; j++ {
			effect := 0.0
			if j < len(cfg.ConditionEffects) {
				effect = cfg.ConditionEffects[j]
			}
			cell := panel.Cell(i, j)
			for b := range cell {
				if uniform {
					cell[b] = rng.Float64() + effect
					continue
				}
				cell[b] = subject[b] + effect + cfg.Noise*rng.NormFloat64()
			}
		}
	}
	return out, nil
}

// Replicate stacks copies of a matrix along a new trailing axis.
func Replicate(d *tensor.Dense, copies int) (*tensor.Dense, error) {
	slices := make([]*tensor.Dense, copies)
	for t := range slices {
		slices[t] = d
	}
	return tensor.Stack(slices...)
}

// PermuteConditions returns a copy of d with condition j taken from perm[j].
func PermuteConditions(d *tensor.Dense, perm []int) (*tensor.Dense, error) {
	out := d.Clone()
	src, err := d.Panel()
	if err != nil {
		return nil, err
	}
	if len(perm) != src.K {
		return nil, fmt.Errorf("permutation has %d entries for %d conditions", len(perm), src.K)
	}
	dst, _ := out.Panel()
	for i := 0; i < src.N; i++ {
		for j, from := range perm {
			copy(dst.Cell(i, j), src.Cell(i, from))
		}
	}
	return out, nil
}

// ShiftSubject returns a copy of d with c added to every observation of
// subject i.
func ShiftSubject(d *tensor.Dense, i int, c float64) (*tensor.Dense, error) {
	out := d.Clone()
	p, err := out.Panel()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= p.N {
		return nil, fmt.Errorf("subject %d out of range [0, %d)", i, p.N)
	}
	for j := 0; j < p.K; j++ {
		cell := p.Cell(i, j)
		for b := range cell {
			cell[b] += c
		}
	}
	return out, nil
}
