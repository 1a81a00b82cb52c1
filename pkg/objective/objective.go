// Package objective exposes the fiducial loss to derivative-free global
// optimizers.
//
// Parameters live in cosine space: each of the 2d-2 values is the cosine of
// one hyperspherical angle, so the search box is [-1, 1]^(2d-2) and the
// uniform measure on the box matches the sampler's stratification.
package objective

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/orneryd/sicsearch/pkg/gmatrix"
	"github.com/orneryd/sicsearch/pkg/math/vector"
	"github.com/orneryd/sicsearch/pkg/sampler"
)

// Func is the callback contract: every call increments *calls; an invalid
// parameter vector scores math.MaxFloat64.
type Func func(params []float64, valid bool, calls *int) float64

// New returns the loss callback for dimension dim.
func New(dim int) Func {
	numParams := vector.NumParams(dim)
	return func(params []float64, valid bool, calls *int) float64 {
		*calls++
		if !valid {
			return math.MaxFloat64
		}
		if len(params) != numParams {
			panic(fmt.Sprintf("objective: got %d params, want %d", len(params), numParams))
		}
		return gmatrix.Loss(Expand(params))
	}
}

// Expand maps cosine-space parameters to a unit vector.
func Expand(params []float64) *vector.Vector {
	angles := make([]float64, len(params))
	for i, c := range params {
		angles[i] = math.Acos(c)
	}
	return vector.FromSpherical(angles)
}

// InBounds reports whether every parameter is in [-1, 1].
func InBounds(params []float64) bool {
	for _, c := range params {
		if c < -1 || c > 1 || math.IsNaN(c) {
			return false
		}
	}
	return true
}

// GlobalOptions configures Global.
type GlobalOptions struct {
	// Seed and Index pick the starting point from the stratified sampler.
	Seed  uint64
	Index int
	// MaxEvaluations caps callback invocations. Zero means 200*(2d-2).
	MaxEvaluations int
	// Tolerance is the absolute loss change below which the simplex is
	// considered converged. Zero means 1e-16.
	Tolerance float64
}

// GlobalResult is the best point found by Global.
type GlobalResult struct {
	Params []float64
	Vector *vector.Vector
	Loss   float64
	Calls  int
	Status string
}

// Global runs Nelder-Mead over the callback starting from the sampler point
// (Seed, Index). Points leaving [-1, 1] are scored as invalid.
func Global(dim int, opts GlobalOptions) (*GlobalResult, error) {
	if dim < 2 {
		return nil, fmt.Errorf("dimension must be at least 2, got %d", dim)
	}
	if opts.MaxEvaluations <= 0 {
		opts.MaxEvaluations = 200 * vector.NumParams(dim)
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = 1e-16
	}

	samp := sampler.New(dim)
	samp.Reseed(opts.Seed)
	start, err := samp.Params(opts.Index)
	if err != nil {
		return nil, err
	}

	fn := New(dim)
	calls := 0
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return fn(x, InBounds(x), &calls)
		},
	}
	settings := optimize.Settings{
		FuncEvaluations: opts.MaxEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   opts.Tolerance,
			Iterations: 50,
		},
	}

	// hitting the evaluation limit still yields a usable best point, so err
	// only matters when there is no result at all
	res, err := optimize.Minimize(problem, start, &settings, &optimize.NelderMead{})
	if res == nil {
		return nil, fmt.Errorf("nelder-mead failed: %w", err)
	}
	if !InBounds(res.X) {
		return nil, fmt.Errorf("nelder-mead ended outside the parameter box")
	}

	v := Expand(res.X)
	return &GlobalResult{
		Params: res.X,
		Vector: v,
		Loss:   gmatrix.Loss(v),
		Calls:  calls,
		Status: res.Status.String(),
	}, nil
}
