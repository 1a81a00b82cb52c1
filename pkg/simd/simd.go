package simd

import "github.com/viterin/vek"

// Implementation represents the active SIMD implementation
type Implementation string

const (
	// ImplGeneric indicates the vek fallback
	ImplGeneric Implementation = "generic"
	// ImplAVX2 indicates x86 AVX2+FMA SIMD
	ImplAVX2 Implementation = "avx2"
)

// RuntimeInfo contains information about the active SIMD implementation
type RuntimeInfo struct {
	// Implementation is the active SIMD backend
	Implementation Implementation
	// Features lists specific CPU features being used
	Features []string
	// Accelerated indicates whether SIMD acceleration is active
	Accelerated bool
}

// DotProduct computes the dot product of two float64 vectors.
//
// Returns 0 if the vectors are empty or have different lengths.
//
// Example:
//
//	a := []float64{1, 2, 3}
//	b := []float64{4, 5, 6}
//	result := simd.DotProduct(a, b) // 32
func DotProduct(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return dotProduct(a, b)
}

// Norm computes the Euclidean norm of a float64 vector.
//
// Example:
//
//	v := []float64{3, 4}
//	result := simd.Norm(v) // 5.0
func Norm(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return vek.Norm(v)
}

// ScaleInPlace multiplies every element of v by s.
func ScaleInPlace(v []float64, s float64) {
	if len(v) == 0 {
		return
	}
	vek.MulNumber_Inplace(v, s)
}

// AxpyInPlace computes dst += alpha * x element-wise.
//
// The call is a no-op when the lengths differ.
//
// Example:
//
//	v := []float64{1, 1}
//	g := []float64{2, 4}
//	simd.AxpyInPlace(v, -0.5, g) // v is now {0, -1}
func AxpyInPlace(dst []float64, alpha float64, x []float64) {
	if len(dst) != len(x) || len(dst) == 0 {
		return
	}
	axpy(dst, alpha, x)
}

// Info returns information about the active SIMD implementation.
//
// Example:
//
//	info := simd.Info()
//	if info.Accelerated {
//	    fmt.Printf("Using %s SIMD\n", info.Implementation)
//	}
func Info() RuntimeInfo {
	return runtimeInfo()
}
