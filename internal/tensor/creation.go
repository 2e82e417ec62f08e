package tensor

import (
	"math/rand"
)

// Zeros creates a tensor filled with zeros.
// Panics on an invalid shape.
//
// Example:
//
//	t := tensor.Zeros(Shape{3, 4})
func Zeros(shape Shape) *Tensor {
	if err := shape.Validate(); err != nil {
		panic(err)
	}
	return newTensor(make([]float64, shape.NumElements()), shape)
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape) *Tensor {
	return Full(shape, 1)
}

// Full creates a tensor filled with a specific value.
//
// Example:
//
//	t := tensor.Full(Shape{3, 3}, 3.14)
func Full(shape Shape, value float64) *Tensor {
	t := Zeros(shape)
	for i := range t.data {
		t.data[i] = value
	}
	return t
}

// ZerosLike creates a zero tensor with the same shape as t.
func ZerosLike(t *Tensor) *Tensor {
	return Zeros(t.shape)
}

// Randn creates a tensor with values drawn from N(0, 1) using rng.
//
// Passing a seeded source makes initialization reproducible:
//
//	rng := rand.New(rand.NewSource(42))
//	w := tensor.Randn(Shape{64, 784}, rng)
func Randn(shape Shape, rng *rand.Rand) *Tensor {
	t := Zeros(shape)
	for i := range t.data {
		t.data[i] = rng.NormFloat64()
	}
	return t
}
