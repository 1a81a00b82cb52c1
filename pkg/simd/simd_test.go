package simd

import (
	"math"
	"testing"
)

const epsilon = 1e-12

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

func TestDotProduct(t *testing.T) {
	tests := []struct {
		name     string
		a        []float64
		b        []float64
		expected float64
	}{
		{
			name:     "simple",
			a:        []float64{1, 2, 3},
			b:        []float64{4, 5, 6},
			expected: 32, // 1*4 + 2*5 + 3*6
		},
		{
			name:     "zeros",
			a:        []float64{0, 0, 0},
			b:        []float64{0, 0, 0},
			expected: 0,
		},
		{
			name:     "empty",
			a:        []float64{},
			b:        []float64{},
			expected: 0,
		},
		{
			name:     "length mismatch",
			a:        []float64{1, 2},
			b:        []float64{1},
			expected: 0,
		},
		{
			name:     "interleaved complex real part",
			a:        []float64{0.5, -0.2, 0.1, 0.7}, // (0.5-0.2i, 0.1+0.7i)
			b:        []float64{1, 1, -1, 2},
			expected: 0.5 - 0.2 - 0.1 + 1.4,
		},
		{
			name:     "large vector (for SIMD)",
			a:        make([]float64, 257),
			b:        make([]float64, 257),
			expected: 257,
		},
	}

	for i := range tests[len(tests)-1].a {
		tests[len(tests)-1].a[i] = 1
		tests[len(tests)-1].b[i] = 1
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DotProduct(tt.a, tt.b)
			if !approxEqual(result, tt.expected, epsilon) {
				t.Errorf("DotProduct() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestNorm(t *testing.T) {
	tests := []struct {
		name     string
		v        []float64
		expected float64
	}{
		{"3-4-5", []float64{3, 4}, 5},
		{"empty", []float64{}, 0},
		{"unit", []float64{0, 0, 1}, 1},
		{"complex (1+i, -3+4i)", []float64{1, 1, -3, 4}, 3 * math.Sqrt(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Norm(tt.v); !approxEqual(got, tt.expected, epsilon) {
				t.Errorf("Norm() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestScaleInPlace(t *testing.T) {
	v := []float64{3, 4, -1}
	ScaleInPlace(v, 0.5)
	want := []float64{1.5, 2, -0.5}
	for i := range v {
		if !approxEqual(v[i], want[i], epsilon) {
			t.Fatalf("ScaleInPlace()[%d] = %v, want %v", i, v[i], want[i])
		}
	}

	// empty is a no-op
	ScaleInPlace(nil, 2)
}

func TestAxpyInPlace(t *testing.T) {
	dst := []float64{1, 1, 1, 1, 1, 1}
	x := []float64{2, 4, 6, 8, 10, 12}
	AxpyInPlace(dst, -0.5, x)

	want := []float64{0, -1, -2, -3, -4, -5}
	for i := range dst {
		if !approxEqual(dst[i], want[i], epsilon) {
			t.Fatalf("AxpyInPlace()[%d] = %v, want %v", i, dst[i], want[i])
		}
	}

	// mismatched lengths leave dst untouched
	dst = []float64{1, 2}
	AxpyInPlace(dst, 1, []float64{1})
	if dst[0] != 1 || dst[1] != 2 {
		t.Errorf("AxpyInPlace() modified dst on length mismatch: %v", dst)
	}
}

func TestInfo(t *testing.T) {
	info := Info()
	if info.Implementation == "" {
		t.Error("expected a non-empty implementation name")
	}
	if info.Accelerated && info.Implementation == ImplAVX2 && len(info.Features) == 0 {
		t.Error("accelerated AVX2 path should report its features")
	}
}
