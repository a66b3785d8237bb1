// Package oracle recomputes rm-ANOVA for a single (subjects, conditions)
// matrix through the generic long-format route: melt to one row per
// observation, fit dummy-coded linear models, compare residual sums of squares.
// It is slow and exists to cross-check the closed-form engine.
package oracle

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"rmanova/domain/tensor"
	"rmanova/internal/errors"
)

// Observation is one long-format row.
type Observation struct {
	Subject   int     `json:"subject"`
	Condition string  `json:"condition"`
	Value     float64 `json:"value"`
}

// LongTable is a melted observation matrix.
type LongTable struct {
	Subjects   []int
	Conditions []string
	Rows       []Observation
}

// ConditionSummary describes the observations of one condition.
type ConditionSummary struct {
	Condition string
	N         int
	Mean      float64
	StdDev    float64
}

// DefaultLabels returns cond0..cond{k-1}.
func DefaultLabels(k int) []string {
	labels := make([]string, k)
	for j := range labels {
		labels[j] = fmt.Sprintf("cond%d", j)
	}
	return labels
}

// Melt converts a (subjects, conditions) matrix to long format. Subjects are
// numbered from 1; nil labels fall back to DefaultLabels. Rows are ordered by
// condition, then subject.
func Melt(data *tensor.Dense, labels []string) (LongTable, error) {
	if data == nil || data.Rank() != 2 {
		return LongTable{}, errors.InvalidShape("melt needs a 2D (subjects, conditions) matrix")
	}
	n, k := data.Dim(0), data.Dim(1)
	if labels == nil {
		labels = DefaultLabels(k)
	}
	if len(labels) != k {
		return LongTable{}, errors.InvalidShape("%d labels for %d conditions", len(labels), k)
	}

	t := LongTable{
		Subjects:   make([]int, n),
		Conditions: append([]string(nil), labels...),
		Rows:       make([]Observation, 0, n*k),
	}
	for i := range t.Subjects {
		t.Subjects[i] = i + 1
	}
	for j, label := range labels {
		for i := 0; i < n; i++ {
			t.Rows = append(t.Rows, Observation{
				Subject:   i + 1,
				Condition: label,
				Value:     data.At(i, j),
			})
		}
	}
	return t, nil
}

// Describe summarizes each condition in table order.
func Describe(t LongTable) ([]ConditionSummary, error) {
	groups := make(map[string][]float64, len(t.Conditions))
	for _, r := range t.Rows {
		groups[r.Condition] = append(groups[r.Condition], r.Value)
	}

	out := make([]ConditionSummary, 0, len(t.Conditions))
	for _, c := range t.Conditions {
		values := groups[c]
		mean, err := stats.Mean(values)
		if err != nil {
			return nil, errors.Wrapf(err, "mean of condition %q", c)
		}
		sd, err := stats.StandardDeviationSample(values)
		if err != nil {
			return nil, errors.Wrapf(err, "standard deviation of condition %q", c)
		}
		out = append(out, ConditionSummary{Condition: c, N: len(values), Mean: mean, StdDev: sd})
	}
	return out, nil
}
