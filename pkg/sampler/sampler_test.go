package sampler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinsArePermutations(t *testing.T) {
	for dim := 2; dim < 6; dim++ {
		for _, seed := range []uint64{0, 1, 227, 1 << 40} {
			s := New(dim)
			s.Reseed(seed)
			require.Equal(t, 2*dim-2, s.NumParams())

			for p := 0; p < s.NumParams(); p++ {
				used := make([]bool, NumBins)
				for i := 0; i < NumBins; i++ {
					bin := s.Bin(p, i)
					require.GreaterOrEqual(t, bin, 0)
					require.Less(t, bin, NumBins)
					require.False(t, used[bin], "dim %d seed %d param %d: bin %d repeated", dim, seed, p, bin)
					used[bin] = true
				}
			}
		}
	}
}

func TestSamplesHaveUnitNorm(t *testing.T) {
	for dim := 2; dim < 12; dim++ {
		s := New(dim)
		s.Reseed(uint64(dim) * 31)
		for i := 0; i < NumBins; i++ {
			v, err := s.Sample(i)
			require.NoError(t, err)
			assert.Equal(t, dim, v.Dim())
			assert.InDelta(t, 1.0, v.NormSquared(), 1e-13)
			assert.Equal(t, 0.0, imag(v.At(0)))
		}
	}
}

func TestSampleOutOfRange(t *testing.T) {
	s := New(2)
	s.Reseed(0)

	for _, idx := range []int{-1, NumBins, NumBins + 1} {
		v, err := s.Sample(idx)
		assert.Nil(t, v)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrOutOfRange))

		var oor *ErrIndexOutOfRange
		require.True(t, errors.As(err, &oor))
		assert.Equal(t, idx, oor.Index)
		assert.Equal(t, NumBins, oor.Bound)
		assert.Contains(t, err.Error(), "100 bins")
		assert.Contains(t, err.Error(), "Reseed")
	}
}

func TestReseedIsDeterministic(t *testing.T) {
	a := New(4)
	b := New(4)
	a.Reseed(227)
	b.Reseed(227)
	assert.Equal(t, a.bins, b.bins)
	assert.Equal(t, uint64(227), a.Seed())

	va, err := a.Sample(17)
	require.NoError(t, err)
	vb, err := b.Sample(17)
	require.NoError(t, err)
	assert.Equal(t, va.Complex(), vb.Complex())

	b.Reseed(228)
	assert.NotEqual(t, a.bins, b.bins)
}

func TestParamsAreBinCentres(t *testing.T) {
	s := New(3)
	s.Reseed(5)
	params, err := s.Params(0)
	require.NoError(t, err)
	require.Len(t, params, 4)
	for p, c := range params {
		assert.Greater(t, c, -1.0)
		assert.Less(t, c, 1.0)
		assert.InDelta(t, -1+0.02*float64(s.Bin(p, 0))+0.01, c, 1e-15)
	}

	_, err = s.Params(NumBins)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestBinCenter(t *testing.T) {
	assert.InDelta(t, -0.99, binCenter(0), 1e-15)
	assert.InDelta(t, 0.99, binCenter(NumBins-1), 1e-15)
	assert.InDelta(t, 0.01, binCenter(NumBins/2), 1e-15)
}

func TestNewRejectsSmallDimension(t *testing.T) {
	assert.Panics(t, func() { New(1) })
}
