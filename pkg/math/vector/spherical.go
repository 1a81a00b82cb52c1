package vector

import (
	"fmt"
	"math"
)

// FromSpherical maps 2d-2 hyperspherical angles to a unit vector in C^d whose
// first element is real.
//
// The recurrence order is part of the contract: samplers and the objective
// callback depend on identical angles producing identical vectors.
//
//	v[0]   = cos(a0)
//	c      = sin(a0)
//	v[i]   = c*cos(a[2i-1]) + i*c*sin(a[2i-1])*cos(a[2i]),   c *= sin(a[2i-1])*sin(a[2i])
//	v[d-1] = c*cos(a[2d-3]) + i*c*sin(a[2d-3])
func FromSpherical(angles []float64) *Vector {
	if len(angles) < 2 || len(angles)%2 != 0 {
		panic(fmt.Sprintf("vector: need an even number (>= 2) of angles, got %d", len(angles)))
	}
	dim := len(angles)/2 + 1
	v := New(dim)

	v.Set(0, complex(math.Cos(angles[0]), 0))
	c := math.Sin(angles[0])
	for i := 1; i < dim-1; i++ {
		re := c * math.Cos(angles[2*i-1])
		c *= math.Sin(angles[2*i-1])
		im := c * math.Cos(angles[2*i])
		c *= math.Sin(angles[2*i])
		v.Set(i, complex(re, im))
	}
	last := angles[2*dim-3]
	v.Set(dim-1, complex(c*math.Cos(last), c*math.Sin(last)))

	return v
}

// NumParams returns the number of spherical angles for dimension d.
func NumParams(dim int) int { return 2*dim - 2 }
