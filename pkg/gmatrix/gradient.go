package gmatrix

import (
	"fmt"
	"math"

	"github.com/orneryd/sicsearch/pkg/math/vector"
	"github.com/orneryd/sicsearch/pkg/simd"
)

// DefaultFiniteDifferenceStep is the perturbation used by NumericalGradient.
const DefaultFiniteDifferenceStep = 1e-10

// Gradient writes the analytic gradient of the loss with respect to the real
// and imaginary parts of each component of v into grad, using g as the
// G-matrix of v.
//
// grad[i] = dL/dRe(v[i]) + i*dL/dIm(v[i]).
func Gradient(g *Matrix, v, grad *vector.Vector) {
	d := v.Dim()
	if g.Dim() != d || grad.Dim() != d {
		panic(fmt.Sprintf("gmatrix: dimension mismatch: matrix %d, vector %d, gradient %d", g.Dim(), d, grad.Dim()))
	}

	for i := 0; i < d; i++ {
		var gradRe, gradIm float64

		// off-diagonal pairs appear twice in the symmetric matrix
		for k := 0; k < d; k++ {
			for l := k + 1; l < d; l++ {
				a := v.At(i+k) * v.At(i+l) * conj(v.At(i+k+l))
				b := conj(v.At(i-k)) * v.At(i-k+l) * conj(v.At(i+l))
				c := conj(v.At(i-l)) * v.At(i+k-l) * conj(v.At(i+k))
				e := conj(v.At(i-k-l)) * v.At(i-l) * v.At(i-k)

				gkl := g.At(k, l)
				gradRe += real(gkl * (a + b + c + e))
				gradIm += imag(gkl * (a - b - c + e))
			}
		}
		gradRe *= 2
		gradIm *= 2

		for k := 0; k < d; k++ {
			a := v.At(i+k) * v.At(i+k) * conj(v.At(i+2*k))
			b := 2 * conj(v.At(i-k)) * v.At(i) * conj(v.At(i+k))
			e := conj(v.At(i-2*k)) * v.At(i-k) * v.At(i-k)

			gkk := g.At(k, k)
			gradRe += real(gkk * (a + b + e))
			gradIm += imag(gkk * (a - b + e))
		}

		grad.Set(i, complex(2*gradRe, 2*gradIm))
	}
}

// GradientOf computes the G-matrix of v and then its analytic gradient.
func GradientOf(v, grad *vector.Vector) {
	Gradient(New(v), v, grad)
}

// NormalizedGradient writes the analytic gradient projected onto the tangent
// space of the sphere at v:
//
//	grad -= v * Re(<v, grad>) / |v|^2
//
// Steps along the result preserve |v| to first order.
func NormalizedGradient(g *Matrix, v, grad *vector.Vector) {
	Gradient(g, v, grad)

	vr, gr := v.Raw(), grad.Raw()
	n2 := simd.DotProduct(vr, vr)
	if n2 == 0 {
		return
	}
	simd.AxpyInPlace(gr, -simd.DotProduct(vr, gr)/n2, vr)
}

// NumericalGradient approximates the gradient with forward differences of
// size step, perturbing the real and then the imaginary part of every
// component independently. It is only used to validate Gradient.
func NumericalGradient(v, grad *vector.Vector, step float64) {
	if grad.Dim() != v.Dim() {
		panic(fmt.Sprintf("gmatrix: dimension mismatch: vector %d, gradient %d", v.Dim(), grad.Dim()))
	}
	if step <= 0 {
		step = DefaultFiniteDifferenceStep
	}

	base := Loss(v)
	w := v.Clone()
	for i := 0; i < v.Dim(); i++ {
		vi := v.At(i)

		w.Set(i, complex(real(vi)+step, imag(vi)))
		dRe := (Loss(w) - base) / step

		w.Set(i, complex(real(vi), imag(vi)+step))
		dIm := (Loss(w) - base) / step

		grad.Set(i, complex(dRe, dIm))
		w.Set(i, vi)
	}
}

// GradientError returns the largest per-coordinate difference between the
// analytic and numerical gradients at v.
func GradientError(v *vector.Vector, step float64) float64 {
	analytic := vector.New(v.Dim())
	numeric := vector.New(v.Dim())
	GradientOf(v, analytic)
	NumericalGradient(v, numeric, step)

	worst := 0.0
	ar, nr := analytic.Raw(), numeric.Raw()
	for i := range ar {
		worst = math.Max(worst, math.Abs(ar[i]-nr[i]))
	}
	return worst
}
