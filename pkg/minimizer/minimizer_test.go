package minimizer

import (
	"testing"

	"github.com/orneryd/sicsearch/pkg/gmatrix"
	"github.com/orneryd/sicsearch/pkg/math/vector"
	"github.com/orneryd/sicsearch/pkg/sampler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusString(t *testing.T) {
	assert.Equal(t, "searching", Searching.String())
	assert.Equal(t, "converged", Converged.String())
	assert.Equal(t, "stalled", Stalled.String())
	assert.Equal(t, "max_iter_reached", MaxIterReached.String())
	assert.Equal(t, "unknown", Status(42).String())
}

func TestStallsAtNonFiducialStationaryPoint(t *testing.T) {
	// the tangent gradient vanishes at a basis vector, so no block can improve
	v := vector.FromComplex(complex(1, 0), complex(0, 0))
	res := Minimize(v, DefaultOptions())

	assert.Equal(t, Stalled, res.Status)
	assert.False(t, res.Accepted)
	assert.Equal(t, 100, res.Steps)
	assert.InDelta(t, 1.0/3, res.Loss, 1e-15)
}

func TestMaxIterReached(t *testing.T) {
	s := sampler.New(3)
	s.Reseed(1)
	v, err := s.Sample(0)
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.MaxIter = 200
	opts.StallFactor = 1e6 // only a blow-up counts as a stall
	opts.FirstAnnealLoss = 100
	opts.SecondAnnealLoss = 50
	opts.RecordTrajectory = true

	res := Minimize(v, opts)
	assert.Equal(t, MaxIterReached, res.Status)
	assert.False(t, res.Accepted)
	assert.Equal(t, 200, res.Steps)
	// both annealing stages fired once each
	assert.InDelta(t, 0.05, res.StepSize, 1e-15)

	require.Len(t, res.Trajectory, 2)
	assert.Equal(t, 0, res.Trajectory[0].Step)
	assert.Equal(t, 100, res.Trajectory[1].Step)
	assert.Equal(t, res.Loss, res.Trajectory[1].Loss)
}

func TestDescentKeepsUnitNormAndCanonicalPhase(t *testing.T) {
	s := sampler.New(4)
	s.Reseed(3)
	v, err := s.Sample(7)
	require.NoError(t, err)
	start := gmatrix.Loss(v)

	opts := DefaultOptions()
	opts.MaxIter = 500
	res := Minimize(v, opts)

	assert.Same(t, v, res.Vector)
	assert.InDelta(t, 1.0, v.NormSquared(), 1e-12)
	assert.InDelta(t, 0.0, imag(v.At(0)), 1e-15)
	assert.GreaterOrEqual(t, real(v.At(0)), 0.0)
	assert.Less(t, res.Loss, start)
}

func TestFindsFiducialInDimensionTwo(t *testing.T) {
	s := sampler.New(2)
	s.Reseed(227)

	accepted := 0
	for i := 0; i < sampler.NumBins && accepted == 0; i++ {
		v, err := s.Sample(i)
		require.NoError(t, err)

		res := Minimize(v, DefaultOptions())
		if !res.Accepted {
			assert.False(t, res.Status == Converged && gmatrix.Loss(v) < 2e-15)
			continue
		}

		accepted++
		assert.Equal(t, Converged, res.Status)
		assert.Less(t, res.Loss, 1e-15)
		assert.Less(t, gmatrix.Loss(v), 2e-15)
		assert.InDelta(t, 1.0, v.NormSquared(), 1e-12)
	}
	assert.Equal(t, 1, accepted)
}

func TestOutcomeInDimensionThreeIsDistinguishable(t *testing.T) {
	s := sampler.New(3)
	s.Reseed(227)
	v, err := s.Sample(0)
	require.NoError(t, err)

	res := Minimize(v, DefaultOptions())
	require.Contains(t, []Status{Converged, Stalled, MaxIterReached}, res.Status)
	if res.Accepted {
		assert.Equal(t, Converged, res.Status)
		assert.Less(t, gmatrix.Loss(v), 2e-15)
	} else {
		assert.False(t, res.Status == Converged && gmatrix.Loss(v) < 2e-15)
	}
	assert.LessOrEqual(t, res.Steps, 100_000)
}

func TestZeroOptionsUseDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, DefaultOptions(), o)

	custom := Options{StepSize: 0.1, RecordTrajectory: true}.withDefaults()
	assert.Equal(t, 0.1, custom.StepSize)
	assert.True(t, custom.RecordTrajectory)
	assert.Equal(t, 100, custom.BlockSize)
}
