package objective

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/sicsearch/pkg/gmatrix"
	"github.com/orneryd/sicsearch/pkg/sampler"
)

func TestCallbackCountsEveryCall(t *testing.T) {
	fn := New(3)
	calls := 0

	assert.Equal(t, math.MaxFloat64, fn([]float64{0, 0, 0, 0}, false, &calls))
	assert.Equal(t, 1, calls)

	loss := fn([]float64{0.1, -0.2, 0.3, 0.4}, true, &calls)
	assert.Equal(t, 2, calls)
	assert.Less(t, loss, math.MaxFloat64)
	assert.Greater(t, loss, -1.0)
}

func TestCallbackMatchesSampler(t *testing.T) {
	s := sampler.New(4)
	s.Reseed(227)
	params, err := s.Params(5)
	require.NoError(t, err)
	v, err := s.Sample(5)
	require.NoError(t, err)

	calls := 0
	assert.InDelta(t, gmatrix.Loss(v), New(4)(params, true, &calls), 1e-15)
}

func TestCallbackPanicsOnWrongLength(t *testing.T) {
	calls := 0
	assert.Panics(t, func() { New(3)([]float64{0}, true, &calls) })
}

func TestExpandIsUnit(t *testing.T) {
	v := Expand([]float64{0.3, -0.7, 0.1, 0.9})
	assert.Equal(t, 3, v.Dim())
	assert.InDelta(t, 1.0, v.NormSquared(), 1e-14)
}

func TestInBounds(t *testing.T) {
	assert.True(t, InBounds([]float64{-1, 0, 1}))
	assert.False(t, InBounds([]float64{-1.0001}))
	assert.False(t, InBounds([]float64{1.5, 0}))
	assert.False(t, InBounds([]float64{math.NaN()}))
	assert.True(t, InBounds(nil))
}

func TestGlobalImprovesOnStart(t *testing.T) {
	s := sampler.New(2)
	s.Reseed(7)
	v, err := s.Sample(0)
	require.NoError(t, err)
	start := gmatrix.Loss(v)

	res, err := Global(2, GlobalOptions{Seed: 7, Index: 0, MaxEvaluations: 400})
	require.NoError(t, err)
	assert.LessOrEqual(t, res.Loss, start)
	assert.True(t, InBounds(res.Params))
	assert.Positive(t, res.Calls)
	assert.LessOrEqual(t, res.Calls, 400+10)
	assert.InDelta(t, 1.0, res.Vector.NormSquared(), 1e-14)
	assert.NotEmpty(t, res.Status)
}

func TestGlobalRejectsBadInput(t *testing.T) {
	_, err := Global(1, GlobalOptions{})
	assert.Error(t, err)

	_, err = Global(2, GlobalOptions{Index: sampler.NumBins})
	assert.ErrorIs(t, err, sampler.ErrOutOfRange)
}
