// Package povm builds the Weyl-Heisenberg orbit of a vector and checks
// whether it forms a SIC-POVM.
//
// The shift and phase operators act on the standard basis as
//
//	X|j> = |j+1 mod d>
//	Z|j> = w^j |j>,  w = exp(2*pi*i/d)
//
// and the displacement operators are D(k,l) = exp(i*pi*k*l/d) X^k Z^l. The
// d*d vectors D(k,l)v form a SIC exactly when every pair of distinct unit
// vectors overlaps with |<a|b>|^2 = 1/(d+1).
package povm

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/orneryd/sicsearch/pkg/math/vector"
)

// DefaultTolerance is the relative overlap error accepted by VerifyFiducial
// for vectors that passed the 2e-15 loss bound.
const DefaultTolerance = 1e-6

// OverlapError reports the first pair whose overlap is out of tolerance.
type OverlapError struct {
	I, J      int
	Got, Want float64
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("povm: |<a%d|a%d>|^2 = %.6g, want %.6g", e.I, e.J, e.Got, e.Want)
}

// Shift returns X^k v.
func Shift(v *vector.Vector, k int) *vector.Vector {
	d := v.Dim()
	out := vector.New(d)
	for j := 0; j < d; j++ {
		out.Set(j, v.At(j-k))
	}
	return out
}

// Phase returns Z^l v.
func Phase(v *vector.Vector, l int) *vector.Vector {
	d := v.Dim()
	out := vector.New(d)
	for j := 0; j < d; j++ {
		out.Set(j, omega(d, l*j)*v.At(j))
	}
	return out
}

// Displace returns D(k,l) v.
func Displace(v *vector.Vector, k, l int) *vector.Vector {
	d := v.Dim()
	out := Shift(Phase(v, l), k)
	ph := cmplx.Exp(complex(0, math.Pi*float64(k*l)/float64(d)))
	for j := 0; j < d; j++ {
		out.Set(j, ph*out.At(j))
	}
	return out
}

// Generate returns the d*d orbit vectors ordered by k*d + l.
func Generate(v *vector.Vector) []*vector.Vector {
	d := v.Dim()
	set := make([]*vector.Vector, 0, d*d)
	for k := 0; k < d; k++ {
		for l := 0; l < d; l++ {
			set = append(set, Displace(v, k, l))
		}
	}
	return set
}

// Inner returns <a|b>.
func Inner(a, b *vector.Vector) complex128 {
	if a.Dim() != b.Dim() {
		panic(fmt.Sprintf("povm: dimension mismatch: %d vs %d", a.Dim(), b.Dim()))
	}
	var sum complex128
	for j := 0; j < a.Dim(); j++ {
		sum += cmplx.Conj(a.At(j)) * b.At(j)
	}
	return sum
}

// Verify checks |<a_i|a_j>|^2 = (d*delta_ij + 1)/(d+1) for every pair of the
// set within relTol. The set must hold d*d vectors of dimension d.
func Verify(set []*vector.Vector, relTol float64) error {
	if len(set) == 0 {
		return fmt.Errorf("povm: empty set")
	}
	d := set[0].Dim()
	if len(set) != d*d {
		return fmt.Errorf("povm: got %d vectors, want %d for dimension %d", len(set), d*d, d)
	}

	offDiag := 1 / float64(d+1)
	for i := range set {
		for j := i; j < len(set); j++ {
			want := offDiag
			if i == j {
				want = 1
			}
			ov := Inner(set[i], set[j])
			got := real(ov)*real(ov) + imag(ov)*imag(ov)
			if math.Abs(got-want) > relTol*want {
				return &OverlapError{I: i, J: j, Got: got, Want: want}
			}
		}
	}
	return nil
}

// VerifyFiducial normalizes a copy of v and verifies its orbit.
func VerifyFiducial(v *vector.Vector, relTol float64) error {
	u := v.Clone()
	u.Normalize()
	return Verify(Generate(u), relTol)
}

func omega(d, n int) complex128 {
	return cmplx.Exp(complex(0, 2*math.Pi*float64(vector.Mod(n, d))/float64(d)))
}
