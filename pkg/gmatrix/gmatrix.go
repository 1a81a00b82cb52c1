package gmatrix

import (
	"fmt"

	"github.com/orneryd/sicsearch/pkg/math/vector"
)

// Matrix is the packed upper triangle of the G-matrix of one vector.
type Matrix struct {
	dim      int
	elements []complex128
}

// New computes the G-matrix of v. Cost is O(d^3).
func New(v *vector.Vector) *Matrix {
	d := v.Dim()
	g := &Matrix{
		dim:      d,
		elements: make([]complex128, d*(d+1)/2),
	}
	g.compute(v)
	return g
}

// Update recomputes every element from v. There is no incremental path.
//
// Panics if v does not have the matrix's dimension.
func (g *Matrix) Update(v *vector.Vector) {
	if v.Dim() != g.dim {
		panic(fmt.Sprintf("gmatrix: dimension mismatch: matrix %d, vector %d", g.dim, v.Dim()))
	}
	g.compute(v)
}

// Dim returns the dimension of the vector the matrix belongs to.
func (g *Matrix) Dim() int { return g.dim }

// At returns G[k,l] for 0 <= k <= l < d.
func (g *Matrix) At(k, l int) complex128 {
	return g.elements[g.index(k, l)]
}

func (g *Matrix) index(k, l int) int {
	if k > l || l >= g.dim || k < 0 {
		panic(fmt.Sprintf("gmatrix: index (%d, %d) outside upper triangle of dimension %d", k, l, g.dim))
	}
	return l + g.dim*k - k*(k+1)/2
}

func (g *Matrix) compute(v *vector.Vector) {
	for k := 0; k < g.dim; k++ {
		for l := k; l < g.dim; l++ {
			g.elements[g.index(k, l)] = element(v, k, l)
		}
	}
}

func element(v *vector.Vector, k, l int) complex128 {
	var sum complex128
	for m := 0; m < v.Dim(); m++ {
		sum += v.At(m) * conj(v.At(m+k)) * conj(v.At(m+l)) * v.At(m+k+l)
	}
	return sum
}

// SumOfSquares returns 2 * sum_{k<=l} |G[k,l]|^2 - sum_k |G[k,k]|^2, i.e. the
// sum of |G[k,l]|^2 over the full symmetric matrix.
func (g *Matrix) SumOfSquares() float64 {
	var s float64
	for _, e := range g.elements {
		s += abs2(e)
	}
	s *= 2
	for k := 0; k < g.dim; k++ {
		s -= abs2(g.At(k, k))
	}
	return s
}

// Loss returns the G-matrix loss. Zero (within tolerance) marks a fiducial.
func (g *Matrix) Loss() float64 {
	return g.SumOfSquares() - 2.0/float64(g.dim+1)
}

// Loss is a convenience wrapper computing the loss of v from scratch.
func Loss(v *vector.Vector) float64 {
	return New(v).Loss()
}

func conj(c complex128) complex128 { return complex(real(c), -imag(c)) }

func abs2(c complex128) float64 { return real(c)*real(c) + imag(c)*imag(c) }
