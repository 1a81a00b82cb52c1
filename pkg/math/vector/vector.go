// Package vector provides the complex vector type the fiducial search runs on.
//
// A Vector of dimension d holds d complex numbers. Indexing is cyclic: At(i)
// and At(i+d) refer to the same element, and negative indices wrap from the
// end. The G-matrix and gradient formulas in pkg/gmatrix rely on this to
// reach offsets such as i-k-l without manual wraparound.
//
// Elements are stored as interleaved real/imaginary float64 pairs so that
// bulk sphere operations (norm, scaling, gradient steps) run through the
// pkg/simd kernels.
//
// Main Functions:
//   - New / FromComplex: construct vectors
//   - FromSpherical: hyperspherical parametrization of the unit sphere in C^d
//   - Normalize: rescale to unit norm
//   - RemoveGlobalPhase: rotate so the first element is real and non-negative
package vector

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"github.com/orneryd/sicsearch/pkg/simd"
)

// Vector is a complex vector with cyclic indexing.
//
// A Vector is not safe for concurrent mutation. Search workers each own their
// vectors; a vector accepted as a result is treated as immutable.
type Vector struct {
	dim  int
	data []float64 // re0, im0, re1, im1, ...
}

// New returns a zero vector of the given dimension.
func New(dim int) *Vector {
	if dim <= 0 {
		panic(fmt.Sprintf("vector: invalid dimension %d", dim))
	}
	return &Vector{dim: dim, data: make([]float64, 2*dim)}
}

// FromComplex returns a vector holding a copy of values.
//
// Example:
//
//	v := vector.FromComplex(complex(1, -1), complex(2, -2), complex(3, -3))
func FromComplex(values ...complex128) *Vector {
	v := New(len(values))
	for i, c := range values {
		v.data[2*i] = real(c)
		v.data[2*i+1] = imag(c)
	}
	return v
}

// Mod reduces i into [0, d).
func Mod(i, d int) int {
	r := i % d
	if r < 0 {
		r += d
	}
	return r
}

// Dim returns the number of complex components.
func (v *Vector) Dim() int { return v.dim }

// At returns the element at cyclic index i mod d.
func (v *Vector) At(i int) complex128 {
	j := 2 * Mod(i, v.dim)
	return complex(v.data[j], v.data[j+1])
}

// Set stores c at cyclic index i mod d.
func (v *Vector) Set(i int, c complex128) {
	j := 2 * Mod(i, v.dim)
	v.data[j] = real(c)
	v.data[j+1] = imag(c)
}

// Raw exposes the interleaved backing buffer. Writes through it mutate v.
func (v *Vector) Raw() []float64 { return v.data }

// Complex returns a copy of the elements as complex128 values.
func (v *Vector) Complex() []complex128 {
	out := make([]complex128, v.dim)
	for i := range out {
		out[i] = complex(v.data[2*i], v.data[2*i+1])
	}
	return out
}

// Clone returns a deep copy of v.
func (v *Vector) Clone() *Vector {
	c := &Vector{dim: v.dim, data: make([]float64, len(v.data))}
	copy(c.data, v.data)
	return c
}

// CopyFrom overwrites v with the contents of other. Both must share a dimension.
func (v *Vector) CopyFrom(other *Vector) {
	if other.dim != v.dim {
		panic(fmt.Sprintf("vector: dimension mismatch: expected %d, got %d", v.dim, other.dim))
	}
	copy(v.data, other.data)
}

// NormSquared returns sum |v[i]|^2.
func (v *Vector) NormSquared() float64 {
	return simd.DotProduct(v.data, v.data)
}

// Norm returns the Euclidean norm of v.
func (v *Vector) Norm() float64 {
	return simd.Norm(v.data)
}

// Normalize rescales v to unit norm. A zero vector is left unchanged.
func (v *Vector) Normalize() {
	n := v.Norm()
	if n == 0 {
		return
	}
	simd.ScaleInPlace(v.data, 1/n)
}

// RemoveGlobalPhase multiplies every element by exp(-i*arg(v[0])), fixing the
// U(1) gauge so equivalent solutions compare and store identically.
func (v *Vector) RemoveGlobalPhase() {
	phase := cmplx.Phase(v.At(0))
	factor := complex(math.Cos(phase), -math.Sin(phase))
	for i := 0; i < v.dim; i++ {
		v.Set(i, v.At(i)*factor)
	}
}

// String formats v with one element per line as a+bi (or a-bi) at 16
// significant digits, ending in a newline.
func (v *Vector) String() string {
	var sb strings.Builder
	for i := 0; i < v.dim; i++ {
		re, im := v.data[2*i], v.data[2*i+1]
		sign := "+"
		if im < 0 {
			sign = "-"
		}
		fmt.Fprintf(&sb, "%.16g%s%.16gi\n", re, sign, math.Abs(im))
	}
	return sb.String()
}
