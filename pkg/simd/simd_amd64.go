//go:build amd64 && !nosimd

package simd

import (
	"golang.org/x/sys/cpu"
)

// x86/amd64 implementations.
// 4-way unrolling matches a 256-bit AVX2 register of float64 lanes; the Go
// compiler keeps the independent accumulators in separate registers.

// hasAVX2 checks if the CPU supports AVX2+FMA at runtime
var hasAVX2 = cpu.X86.HasAVX2 && cpu.X86.HasFMA

func dotProduct(a, b []float64) float64 {
	n := len(a)
	sum0, sum1, sum2, sum3 := 0.0, 0.0, 0.0, 0.0

	i := 0
	for ; i <= n-4; i += 4 {
		sum0 += a[i] * b[i]
		sum1 += a[i+1] * b[i+1]
		sum2 += a[i+2] * b[i+2]
		sum3 += a[i+3] * b[i+3]
	}

	// Handle remaining elements
	for ; i < n; i++ {
		sum0 += a[i] * b[i]
	}

	return (sum0 + sum1) + (sum2 + sum3)
}

func axpy(dst []float64, alpha float64, x []float64) {
	n := len(dst)
	x = x[:n]

	i := 0
	for ; i <= n-4; i += 4 {
		dst[i] += alpha * x[i]
		dst[i+1] += alpha * x[i+1]
		dst[i+2] += alpha * x[i+2]
		dst[i+3] += alpha * x[i+3]
	}

	for ; i < n; i++ {
		dst[i] += alpha * x[i]
	}
}

func runtimeInfo() RuntimeInfo {
	if hasAVX2 {
		return RuntimeInfo{
			Implementation: ImplAVX2,
			Features:       []string{"avx2", "fma", "auto-vectorized"},
			Accelerated:    true,
		}
	}
	return RuntimeInfo{
		Implementation: ImplGeneric,
		Features:       []string{"sse2"},
		Accelerated:    false,
	}
}
