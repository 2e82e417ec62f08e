// Package tensor provides the dense float64 arrays the layers and optimizers
// operate on.
//
// Tensors are row-major. The first axis is the batch axis; image tensors use
// the NHWC layout [batch, height, width, channels].
package tensor

import (
	"fmt"

	"github.com/pkg/errors"
)

// Tensor is a dense row-major array of float64 values.
//
// Example:
//
//	t := tensor.Zeros(tensor.Shape{3, 4})
//	t.Set(1.5, 2, 3)
//	v := t.At(2, 3) // 1.5
type Tensor struct {
	data   []float64
	shape  Shape
	stride []int
}

// newTensor wraps data without copying. Callers guarantee len(data) matches shape.
func newTensor(data []float64, shape Shape) *Tensor {
	return &Tensor{
		data:   data,
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
	}
}

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid shape")
	}
	if shape.NumElements() != len(data) {
		return nil, errors.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}

	buf := make([]float64, len(data))
	copy(buf, data)
	return newTensor(buf, shape), nil
}

// MustFromSlice is FromSlice that panics on error. Intended for literals in
// tests and examples.
func MustFromSlice(data []float64, shape Shape) *Tensor {
	t, err := FromSlice(data, shape)
	if err != nil {
		panic(err)
	}
	return t
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// Dim returns the size of axis i.
func (t *Tensor) Dim(i int) int {
	return t.shape[i]
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return len(t.data)
}

// Strides returns the tensor's memory strides.
func (t *Tensor) Strides() []int {
	return t.stride
}

// Data returns the backing slice of the tensor.
//
// WARNING: Modifications to the returned slice will modify the tensor.
func (t *Tensor) Data() []float64 {
	return t.data
}

// offset converts indices into a flat offset, panicking when out of bounds.
func (t *Tensor) offset(indices []int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("expected %d indices, got %d", len(t.shape), len(indices)))
	}

	offset := 0
	for i, idx := range indices {
		if idx < 0 || idx >= t.shape[i] {
			panic(fmt.Sprintf("index %d out of bounds for dimension %d (size %d)", idx, i, t.shape[i]))
		}
		offset += idx * t.stride[i]
	}
	return offset
}

// At returns the element at the given indices.
// Panics if indices are out of bounds.
//
// Example:
//
//	t := tensor.Zeros(Shape{3, 4})
//	value := t.At(1, 2) // Row 1, column 2
func (t *Tensor) At(indices ...int) float64 {
	return t.data[t.offset(indices)]
}

// Set sets the element at the given indices.
// Panics if indices are out of bounds.
func (t *Tensor) Set(value float64, indices ...int) {
	t.data[t.offset(indices)] = value
}

// String returns a human-readable representation of the tensor.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor[float64]%v", t.shape)
}

// Clone creates a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	buf := make([]float64, len(t.data))
	copy(buf, t.data)
	return newTensor(buf, t.shape)
}

// SameShape reports whether t and other have identical shapes.
func (t *Tensor) SameShape(other *Tensor) bool {
	return t.shape.Equal(other.shape)
}
