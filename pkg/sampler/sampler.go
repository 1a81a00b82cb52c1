// Package sampler produces stratified starting vectors for the fiducial search.
//
// The design is a Latin hypercube over the 2d-2 hyperspherical angles of
// vector.FromSpherical: every parameter axis is split into NumBins bins of
// equal width in cosine space (matching the natural spherical measure), and
// after Reseed each axis assigns its bins to the NumBins samples through an
// independent random permutation. No two samples share a bin on any single
// axis, while combinations across axes are random.
//
// A Sampler is written only by Reseed. Once reseeded it is read-only and can
// be shared by any number of concurrent Sample callers.
package sampler

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/orneryd/sicsearch/pkg/math/vector"
)

// NumBins is the number of strata per parameter and therefore the number of
// samples available per seed.
const NumBins = 100

// normTolerance bounds |norm^2 - 1| of every generated vector.
const normTolerance = 1e-13

// ErrOutOfRange is matched by errors.Is for every *ErrIndexOutOfRange.
var ErrOutOfRange = errors.New("sample index out of range")

// ErrIndexOutOfRange is returned by Sample for an index outside [0, Bound).
type ErrIndexOutOfRange struct {
	Index int
	Bound int
}

func (e *ErrIndexOutOfRange) Error() string {
	return fmt.Sprintf("vector index %d out of range for sampler with %d bins: call Reseed(seed) to redistribute bins and start again from 0",
		e.Index, e.Bound)
}

// Is reports ErrOutOfRange as a match.
func (e *ErrIndexOutOfRange) Is(target error) bool { return target == ErrOutOfRange }

// Sampler holds the per-parameter bin permutations for one dimension.
type Sampler struct {
	dim       int
	numParams int
	seed      uint64
	// bins[p*NumBins + s] is the bin of parameter p used by sample s
	bins []int
}

// New returns a sampler for dimension dim, seeded with 0.
func New(dim int) *Sampler {
	if dim < 2 {
		panic(fmt.Sprintf("sampler: dimension must be >= 2, got %d", dim))
	}
	s := &Sampler{
		dim:       dim,
		numParams: vector.NumParams(dim),
	}
	s.bins = make([]int, s.numParams*NumBins)
	s.Reseed(0)
	return s
}

// Reseed draws a fresh permutation of [0, NumBins) for every parameter.
// The same seed always yields the same design.
func (s *Sampler) Reseed(seed uint64) {
	s.seed = seed
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for p := 0; p < s.numParams; p++ {
		row := s.bins[p*NumBins : (p+1)*NumBins]
		for i := range row {
			row[i] = i
		}
		rng.Shuffle(len(row), func(i, j int) { row[i], row[j] = row[j], row[i] })
	}
}

// Seed returns the seed of the current design.
func (s *Sampler) Seed() uint64 { return s.seed }

// Dim returns the vector dimension.
func (s *Sampler) Dim() int { return s.dim }

// NumParams returns the number of angles per sample (2d-2).
func (s *Sampler) NumParams() int { return s.numParams }

// Bin returns the bin assigned to parameter param for sample index.
func (s *Sampler) Bin(param, index int) int {
	return s.bins[param*NumBins+index]
}

// Params returns the cosine-space bin centres of sample index, each in (-1, 1).
// These are the raw parameters accepted by the objective callback.
func (s *Sampler) Params(index int) ([]float64, error) {
	if index < 0 || index >= NumBins {
		return nil, &ErrIndexOutOfRange{Index: index, Bound: NumBins}
	}
	params := make([]float64, s.numParams)
	for p := range params {
		params[p] = binCenter(s.Bin(p, index))
	}
	return params, nil
}

// Sample returns the starting vector for sample index in [0, NumBins).
//
// Panics if the generated vector drifts from unit norm; that indicates a
// defect in the parametrization, not bad input.
func (s *Sampler) Sample(index int) (*vector.Vector, error) {
	params, err := s.Params(index)
	if err != nil {
		return nil, err
	}
	for p, c := range params {
		params[p] = math.Acos(c)
	}

	v := vector.FromSpherical(params)
	if drift := math.Abs(v.NormSquared() - 1); drift >= normTolerance {
		panic(fmt.Sprintf("sampler: generated vector has |norm^2 - 1| = %g (dim %d, seed %d, index %d)",
			drift, s.dim, s.seed, index))
	}
	return v, nil
}

// binCenter maps a bin to the centre of its interval in [-1, 1].
func binCenter(bin int) float64 {
	const binSize = 2.0 / NumBins
	lower := float64(bin)*binSize - 1
	return lower + 0.5*binSize
}
