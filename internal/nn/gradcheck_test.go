package nn

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/diff/fd"
)

// numericGrad estimates d f / d param by central differences. f must read
// param through the tensor it belongs to; param is restored afterwards.
func numericGrad(param []float64, f func() float64) []float64 {
	orig := append([]float64(nil), param...)
	grad := fd.Gradient(nil, func(x []float64) float64 {
		copy(param, x)
		return f()
	}, orig, &fd.Settings{Formula: fd.Central, Step: 1e-6})
	copy(param, orig)
	return grad
}

// assertGradientsMatch checks analytic against numeric gradients with a
// relative tolerance of 1e-5.
func assertGradientsMatch(t *testing.T, name string, analytic, numeric []float64) {
	t.Helper()
	if len(analytic) != len(numeric) {
		t.Fatalf("%s: %d analytic vs %d numeric entries", name, len(analytic), len(numeric))
	}
	for i := range analytic {
		a, n := analytic[i], numeric[i]
		scale := math.Max(1, math.Max(math.Abs(a), math.Abs(n)))
		if math.Abs(a-n)/scale > 1e-5 {
			t.Errorf("%s[%d]: analytic %.10g, numeric %.10g", name, i, a, n)
		}
	}
}

func scaled(data []float64, s float64) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = v * s
	}
	return out
}
