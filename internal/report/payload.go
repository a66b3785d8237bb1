// Package report renders engine results for people (tables) and programs
// (JSON payloads).
package report

import (
	"math"

	"rmanova/domain/core"
	"rmanova/internal/anova"
)

// Payload is the JSON form of a result. Non-finite F and p values encode as
// null since JSON has no NaN or Infinity.
type Payload struct {
	RunID       core.RunID `json:"run_id"`
	Subjects    int        `json:"subjects"`
	Conditions  int        `json:"conditions"`
	BatchShape  []int      `json:"batch_shape"`
	DFCondition int        `json:"df_condition"`
	DFError     int        `json:"df_error"`
	Labels      []string   `json:"labels,omitempty"`
	F           []*float64 `json:"f"`
	P           []*float64 `json:"p"`
}

// NewPayload flattens res in row-major batch order.
func NewPayload(id core.RunID, res *anova.Result, labels []string) Payload {
	return Payload{
		RunID:       id,
		Subjects:    res.Subjects,
		Conditions:  res.Conditions,
		BatchShape:  res.BatchShape(),
		DFCondition: res.DFCondition,
		DFError:     res.DFError,
		Labels:      labels,
		F:           nullable(res.F.Data()),
		P:           nullable(res.P.Data()),
	}
}

func nullable(vs []float64) []*float64 {
	out := make([]*float64, len(vs))
	for i, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[i] = &v
	}
	return out
}
