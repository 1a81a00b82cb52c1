// Package simd provides SIMD-accelerated float64 kernels for sicsearch.
//
// Complex vectors in pkg/math/vector are stored as interleaved real/imaginary
// float64 pairs, so the real inner product of two such buffers is
// Re(<a, b>) and the kernels here cover every bulk operation on the sphere:
//
//   - DotProduct: sum(a[i] * b[i])
//   - Norm: Euclidean norm of a buffer
//   - ScaleInPlace: v[i] *= s
//   - AxpyInPlace: dst[i] += alpha * x[i] (gradient step, tangent projection)
//
// Platform selection:
//
//   - x86/amd64: 4-way unrolled loops the compiler vectorizes for AVX2+FMA
//   - everything else: github.com/viterin/vek, which ships its own NEON/AVX kernels
//
// Build with the nosimd tag to force the vek path on amd64.
//
// # Usage
//
//	a := []float64{1, 2, 3, 4}
//	b := []float64{5, 6, 7, 8}
//	dot := simd.DotProduct(a, b) // 70
//
//	simd.AxpyInPlace(a, -0.5, b) // a = a - 0.5*b
//
//	info := simd.Info()
//	fmt.Printf("SIMD: %s (%s)\n", info.Implementation, info.Features)
//
// # Thread Safety
//
// All functions in this package are safe for concurrent use on distinct
// buffers. They do not modify any global state.
package simd
