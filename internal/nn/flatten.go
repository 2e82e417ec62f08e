package nn

import (
	"math/rand"

	"github.com/born-ml/minikeras/internal/tensor"
	"github.com/pkg/errors"
)

// Flatten reshapes [batch, d1, d2, ...] into [batch, d1*d2*...].
//
// It is a pure reshape: the output shares storage with the input and no
// element changes position in memory.
type Flatten struct {
	inputShape tensor.Shape
}

// NewFlatten creates a Flatten layer.
func NewFlatten() *Flatten {
	return &Flatten{}
}

// Initialize remembers the per-example shape to restore in Backward.
func (f *Flatten) Initialize(inputShape tensor.Shape, _ *rand.Rand) error {
	if err := inputShape.Validate(); err != nil || len(inputShape) == 0 {
		return errors.Wrapf(ErrShapeMismatch, "Flatten: invalid input shape %v", inputShape)
	}
	f.inputShape = inputShape.Clone()
	return nil
}

// Forward reshapes the input to [batch, features].
func (f *Flatten) Forward(input *tensor.Tensor, _ bool) (*tensor.Tensor, error) {
	if f.inputShape == nil {
		return nil, errors.Wrap(ErrNotInitialized, "Flatten")
	}
	shape := input.Shape()
	if len(shape) != len(f.inputShape)+1 || !shape[1:].Equal(f.inputShape) {
		return nil, errors.Wrapf(ErrShapeMismatch, "Flatten: expected per-example shape %v, got input %v", f.inputShape, shape)
	}
	return input.Reshape(tensor.Shape{shape[0], f.inputShape.NumElements()})
}

// Backward reshapes the gradient back to the original per-example shape.
func (f *Flatten) Backward(da *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor, *tensor.Tensor, error) {
	if f.inputShape == nil {
		return nil, nil, nil, errors.Wrap(ErrNotInitialized, "Flatten")
	}
	shape := da.Shape()
	if len(shape) != 2 || shape[1] != f.inputShape.NumElements() {
		return nil, nil, nil, errors.Wrapf(ErrShapeMismatch, "Flatten: output gradient %v, expected [batch, %d]", shape, f.inputShape.NumElements())
	}
	dInput, err := da.Reshape(f.inputShape.WithBatch(shape[0]))
	if err != nil {
		return nil, nil, nil, err
	}
	return dInput, nil, nil, nil
}

// UpdateParams always fails: Flatten has no parameters.
func (f *Flatten) UpdateParams(_, _ *tensor.Tensor) error {
	return errors.Wrap(ErrNotTrainable, "Flatten")
}

// Params returns nil, nil.
func (f *Flatten) Params() (*tensor.Tensor, *tensor.Tensor) {
	return nil, nil
}

// OutputShape returns [product of input dims].
func (f *Flatten) OutputShape() tensor.Shape {
	return tensor.Shape{f.inputShape.NumElements()}
}

// String returns a string representation of the layer.
func (f *Flatten) String() string {
	return "Flatten()"
}
