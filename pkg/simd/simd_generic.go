//go:build !amd64 || nosimd

package simd

import (
	"github.com/viterin/vek"
)

// Generic implementations using viterin/vek. On arm64 vek dispatches to NEON
// kernels; elsewhere it falls back to pure Go loops.

func dotProduct(a, b []float64) float64 {
	return vek.Dot(a, b)
}

func axpy(dst []float64, alpha float64, x []float64) {
	for i, xi := range x[:len(dst)] {
		dst[i] += alpha * xi
	}
}

func runtimeInfo() RuntimeInfo {
	info := vek.Info()
	return RuntimeInfo{
		Implementation: ImplGeneric,
		Features:       info.CPUFeatures,
		Accelerated:    info.Acceleration,
	}
}
