package oracle

import (
	stderrors "errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rmanova/domain/tensor"
	"rmanova/internal/anova"
	"rmanova/internal/errors"
	"rmanova/internal/testkit"
)

func TestMelt_LongFormatLayout(t *testing.T) {
	data, err := tensor.FromMatrix([][]float64{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)

	long, err := Melt(data, nil)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, long.Subjects)
	assert.Equal(t, []string{"cond0", "cond1", "cond2"}, long.Conditions)
	require.Len(t, long.Rows, 6)
	assert.Equal(t, Observation{Subject: 1, Condition: "cond0", Value: 1}, long.Rows[0])
	assert.Equal(t, Observation{Subject: 2, Condition: "cond0", Value: 4}, long.Rows[1])
	assert.Equal(t, Observation{Subject: 2, Condition: "cond2", Value: 6}, long.Rows[5])

	_, err = Melt(data, []string{"a"})
	assert.True(t, stderrors.Is(err, errors.ErrInvalidShape))
	_, err = Melt(tensor.Zeros(2, 2, 2), nil)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidShape))
}

func TestDescribe(t *testing.T) {
	data, _ := tensor.FromMatrix([][]float64{{1, 10}, {3, 20}, {5, 30}})
	long, err := Melt(data, []string{"pre", "post"})
	require.NoError(t, err)

	summary, err := Describe(long)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, "pre", summary[0].Condition)
	assert.Equal(t, 3, summary[0].N)
	assert.InDelta(t, 3.0, summary[0].Mean, 1e-12)
	assert.InDelta(t, 2.0, summary[0].StdDev, 1e-12)
	assert.InDelta(t, 20.0, summary[1].Mean, 1e-12)
	assert.InDelta(t, 10.0, summary[1].StdDev, 1e-12)
}

func TestRMAnova_AgreesWithEngine(t *testing.T) {
	data, err := testkit.GenerateDesign(testkit.DefaultDesignConfig())
	require.NoError(t, err)

	res, err := anova.Compute(data)
	require.NoError(t, err)

	long, err := Melt(data, nil)
	require.NoError(t, err)
	table, err := RMAnova(long)
	require.NoError(t, err)

	effect, ok := table.Effect("condition")
	require.True(t, ok)
	assert.Equal(t, res.DFCondition, effect.DF)
	assert.InEpsilon(t, res.SSCondition.Scalar(), effect.SS, 1e-9)
	assert.InEpsilon(t, res.F.Scalar(), effect.F, 1e-6)
	assert.InEpsilon(t, res.P.Scalar(), effect.P, 1e-6)

	residual, ok := table.Effect("error")
	require.True(t, ok)
	assert.Equal(t, res.DFError, residual.DF)
	assert.InEpsilon(t, res.SSError.Scalar(), residual.SS, 1e-9)

	_, ok = table.Effect("interaction")
	assert.False(t, ok)
}

func TestRMAnova_RejectsBadTables(t *testing.T) {
	data, _ := tensor.FromMatrix([][]float64{{1, 2}, {3, 5}, {4, 4}})
	long, err := Melt(data, nil)
	require.NoError(t, err)

	missing := long
	missing.Rows = long.Rows[:5]
	_, err = RMAnova(missing)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))

	dup := long
	dup.Rows = append(append([]Observation(nil), long.Rows[:5]...), long.Rows[0])
	_, err = RMAnova(dup)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))

	single, _ := tensor.FromMatrix([][]float64{{1, 2, 3}})
	one, err := Melt(single, nil)
	require.NoError(t, err)
	_, err = RMAnova(one)
	assert.True(t, stderrors.Is(err, errors.ErrDegenerateDesign))
}

func TestVerify_EveryBatchCell(t *testing.T) {
	data, err := testkit.GenerateDesign(testkit.DesignConfig{
		Subjects:         10,
		Conditions:       4,
		Batch:            []int{3},
		Seed:             21,
		ConditionEffects: []float64{0, 0.3, 0.6, 0.1},
		SubjectSpread:    1,
		Noise:            1,
	})
	require.NoError(t, err)
	res, err := anova.Compute(data)
	require.NoError(t, err)

	agreements, err := Verify(data, res, nil, 1e-6)
	require.NoError(t, err)
	require.Len(t, agreements, 3)
	for b, a := range agreements {
		assert.Equal(t, []int{b}, a.Index)
		assert.True(t, a.Agree, "cell %d: engine F=%g p=%g oracle F=%g p=%g", b, a.EngineF, a.EngineP, a.OracleF, a.OracleP)
		assert.Len(t, a.Summary, 4)
	}
}

func TestClose(t *testing.T) {
	assert.True(t, Close(1, 1+1e-9, 1e-6))
	assert.False(t, Close(1, 1.01, 1e-6))
	assert.True(t, Close(0, 1e-9, 1e-6))
	assert.True(t, Close(math.NaN(), math.NaN(), 1e-6))
	assert.False(t, Close(math.NaN(), 1, 1e-6))
	assert.True(t, Close(math.Inf(1), math.Inf(1), 1e-6))
	assert.False(t, Close(math.Inf(1), 1e300, 1e-6))
}
