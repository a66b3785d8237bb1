package testkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDesign_Deterministic(t *testing.T) {
	cfg := DefaultDesignConfig()
	cfg.Batch = []int{3}

	a, err := GenerateDesign(cfg)
	require.NoError(t, err)
	b, err := GenerateDesign(cfg)
	require.NoError(t, err)

	assert.Equal(t, []int{10, 4, 3}, a.Shape())
	assert.Equal(t, a.Data(), b.Data())
	for _, v := range a.Data() {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}

	cfg.Seed++
	c, err := GenerateDesign(cfg)
	require.NoError(t, err)
	assert.NotEqual(t, a.Data(), c.Data())

	_, err = GenerateDesign(DesignConfig{Subjects: -1, Conditions: 2})
	assert.Error(t, err)
}

func TestGenerateDesign_ConditionEffects(t *testing.T) {
	d, err := GenerateDesign(DesignConfig{
		Subjects:         200,
		Conditions:       2,
		Seed:             1,
		ConditionEffects: []float64{0, 5},
		Noise:            0.1,
	})
	require.NoError(t, err)

	var diff float64
	for i := 0; i < 200; i++ {
		diff += d.At(i, 1) - d.At(i, 0)
	}
	assert.InDelta(t, 5.0, diff/200, 0.05)
}

func TestPermuteAndShift(t *testing.T) {
	d, err := GenerateDesign(DesignConfig{Subjects: 3, Conditions: 3, Seed: 4})
	require.NoError(t, err)

	p, err := PermuteConditions(d, []int{2, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, d.At(1, 2), p.At(1, 0))
	assert.Equal(t, d.At(1, 0), p.At(1, 1))
	_, err = PermuteConditions(d, []int{0})
	assert.Error(t, err)

	s, err := ShiftSubject(d, 2, 1.5)
	require.NoError(t, err)
	assert.InDelta(t, d.At(2, 1)+1.5, s.At(2, 1), 1e-15)
	assert.Equal(t, d.At(0, 1), s.At(0, 1))
	_, err = ShiftSubject(d, 3, 1)
	assert.Error(t, err)

	r, err := Replicate(d, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 4}, r.Shape())
	assert.Equal(t, d.At(2, 2), r.At(2, 2, 3))
}
