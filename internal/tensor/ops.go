package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func mustSameShape(op string, a, b *Tensor) {
	if !a.shape.Equal(b.shape) {
		panic(fmt.Sprintf("%s: shape mismatch %v vs %v", op, a.shape, b.shape))
	}
}

// Add returns t + other element-wise.
func (t *Tensor) Add(other *Tensor) *Tensor {
	mustSameShape("add", t, other)
	out := t.Clone()
	floats.Add(out.data, other.data)
	return out
}

// Sub returns t - other element-wise.
func (t *Tensor) Sub(other *Tensor) *Tensor {
	mustSameShape("sub", t, other)
	out := t.Clone()
	floats.Sub(out.data, other.data)
	return out
}

// Mul returns t * other element-wise (Hadamard product).
func (t *Tensor) Mul(other *Tensor) *Tensor {
	mustSameShape("mul", t, other)
	out := t.Clone()
	floats.Mul(out.data, other.data)
	return out
}

// Scale returns t multiplied by a scalar.
func (t *Tensor) Scale(s float64) *Tensor {
	out := t.Clone()
	floats.Scale(s, out.data)
	return out
}

// Apply returns a new tensor with fn applied to every element.
func (t *Tensor) Apply(fn func(float64) float64) *Tensor {
	out := t.Clone()
	for i, v := range out.data {
		out.data[i] = fn(v)
	}
	return out
}

// AddInPlace adds other into t.
func (t *Tensor) AddInPlace(other *Tensor) {
	mustSameShape("add", t, other)
	floats.Add(t.data, other.data)
}

// SubInPlace subtracts other from t.
func (t *Tensor) SubInPlace(other *Tensor) {
	mustSameShape("sub", t, other)
	floats.Sub(t.data, other.data)
}

// AddScaledInPlace performs t += alpha * other.
func (t *Tensor) AddScaledInPlace(alpha float64, other *Tensor) {
	mustSameShape("axpy", t, other)
	floats.AddScaled(t.data, alpha, other.data)
}

// Sum returns the sum of all elements.
func (t *Tensor) Sum() float64 {
	return floats.Sum(t.data)
}

// SumSquares returns the squared Frobenius norm of t.
func (t *Tensor) SumSquares() float64 {
	return floats.Dot(t.data, t.data)
}

// Max returns the largest element.
func (t *Tensor) Max() float64 {
	return floats.Max(t.data)
}

// AddLastAxis broadcasts v over every position of t's last axis.
//
// v must hold exactly t.Dim(-1) elements regardless of its own shape, so a
// [1, units] dense bias and a [1, 1, 1, channels] conv bias both work.
func (t *Tensor) AddLastAxis(v *Tensor) *Tensor {
	last := t.shape[len(t.shape)-1]
	if v.NumElements() != last {
		panic(fmt.Sprintf("add last axis: vector has %d elements, last axis is %d", v.NumElements(), last))
	}

	out := t.Clone()
	for off := 0; off < len(out.data); off += last {
		floats.Add(out.data[off:off+last], v.data)
	}
	return out
}

// SumToLastAxis sums every axis except the last one.
//
// The result is a 1-D tensor of length t.Dim(-1).
func (t *Tensor) SumToLastAxis() *Tensor {
	last := t.shape[len(t.shape)-1]
	out := Zeros(Shape{last})
	for off := 0; off < len(t.data); off += last {
		floats.Add(out.data, t.data[off:off+last])
	}
	return out
}

// ArgmaxRows returns, for each row of a 2-D tensor, the column holding the
// largest value. Ties resolve to the first occurrence.
func (t *Tensor) ArgmaxRows() []int {
	rows, cols := t.matrixDims("argmax")
	out := make([]int, rows)
	for i := range out {
		out[i] = floats.MaxIdx(t.data[i*cols : (i+1)*cols])
	}
	return out
}

func (t *Tensor) matrixDims(op string) (int, int) {
	if len(t.shape) != 2 {
		panic(fmt.Sprintf("%s: expected 2D tensor, got shape %v", op, t.shape))
	}
	return t.shape[0], t.shape[1]
}

// dense views a 2-D tensor as a gonum matrix sharing the same storage.
func (t *Tensor) dense(op string) *mat.Dense {
	r, c := t.matrixDims(op)
	return mat.NewDense(r, c, t.data)
}

// MatMul performs matrix multiplication.
// (M, K) @ (K, N) -> (M, N)
func MatMul(a, b *Tensor) *Tensor {
	m, k := a.matrixDims("matmul")
	kAlt, n := b.matrixDims("matmul")
	if k != kAlt {
		panic(fmt.Sprintf("matmul: shape mismatch [%d,%d] @ [%d,%d]", m, k, kAlt, n))
	}

	out := Zeros(Shape{m, n})
	out.dense("matmul").Mul(a.dense("matmul"), b.dense("matmul"))
	return out
}

// MatMulTransB computes a @ b.T.
// (M, K) @ (N, K).T -> (M, N)
func MatMulTransB(a, b *Tensor) *Tensor {
	m, k := a.matrixDims("matmul")
	n, kAlt := b.matrixDims("matmul")
	if k != kAlt {
		panic(fmt.Sprintf("matmul: shape mismatch [%d,%d] @ [%d,%d].T", m, k, n, kAlt))
	}

	out := Zeros(Shape{m, n})
	out.dense("matmul").Mul(a.dense("matmul"), b.dense("matmul").T())
	return out
}

// MatMulTransA computes a.T @ b.
// (K, M).T @ (K, N) -> (M, N)
func MatMulTransA(a, b *Tensor) *Tensor {
	k, m := a.matrixDims("matmul")
	kAlt, n := b.matrixDims("matmul")
	if k != kAlt {
		panic(fmt.Sprintf("matmul: shape mismatch [%d,%d].T @ [%d,%d]", k, m, kAlt, n))
	}

	out := Zeros(Shape{m, n})
	out.dense("matmul").Mul(a.dense("matmul").T(), b.dense("matmul"))
	return out
}
