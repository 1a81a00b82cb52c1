package povm

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/sicsearch/pkg/math/vector"
)

func qubitFiducial() *vector.Vector {
	theta := math.Acos(1 / math.Sqrt(3))
	return vector.FromComplex(
		complex(math.Cos(theta/2), 0),
		cmplx.Rect(math.Sin(theta/2), math.Pi/4),
	)
}

func TestShiftAndPhase(t *testing.T) {
	v := vector.FromComplex(1, 2, 3)

	assert.Equal(t, []complex128{3, 1, 2}, Shift(v, 1).Complex())
	assert.Equal(t, []complex128{2, 3, 1}, Shift(v, -1).Complex())

	z := Phase(vector.FromComplex(1, 1, 1), 1).Complex()
	w := cmplx.Exp(complex(0, 2*math.Pi/3))
	assert.InDelta(t, 0, cmplx.Abs(z[0]-1), 1e-15)
	assert.InDelta(t, 0, cmplx.Abs(z[1]-w), 1e-15)
	assert.InDelta(t, 0, cmplx.Abs(z[2]-w*w), 1e-15)
}

func TestDisplacePreservesNorm(t *testing.T) {
	v := vector.FromComplex(complex(0.5, -0.2), complex(0.1, 0.7), complex(-0.3, 0.4), complex(0.2, 0.2))
	for k := 0; k < 4; k++ {
		for l := 0; l < 4; l++ {
			assert.InDelta(t, v.NormSquared(), Displace(v, k, l).NormSquared(), 1e-14)
		}
	}
	assert.Equal(t, v.Complex(), Displace(v, 0, 0).Complex())
}

func TestGenerateSize(t *testing.T) {
	v := vector.FromComplex(1, 0, 0)
	assert.Len(t, Generate(v), 9)
}

func TestVerifyQubitFiducial(t *testing.T) {
	require.NoError(t, VerifyFiducial(qubitFiducial(), 1e-12))
}

func TestVerifyRejectsBasisVector(t *testing.T) {
	err := VerifyFiducial(vector.FromComplex(1, 0), DefaultTolerance)
	require.Error(t, err)

	var ov *OverlapError
	require.ErrorAs(t, err, &ov)
	assert.InDelta(t, 1.0/3, ov.Want, 1e-15)
}

func TestVerifyNormalizesInput(t *testing.T) {
	v := qubitFiducial()
	raw := v.Raw()
	for i := range raw {
		raw[i] *= 3
	}
	assert.NoError(t, VerifyFiducial(v, 1e-12))
}

func TestVerifySetShape(t *testing.T) {
	assert.Error(t, Verify(nil, DefaultTolerance))
	assert.Error(t, Verify([]*vector.Vector{qubitFiducial()}, DefaultTolerance))
}

func TestInnerDimensionMismatchPanics(t *testing.T) {
	assert.Panics(t, func() { Inner(vector.New(2), vector.New(3)) })
}
