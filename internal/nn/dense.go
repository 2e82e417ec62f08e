package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/minikeras/internal/tensor"
	"github.com/pkg/errors"
)

// Dense implements a fully connected layer.
//
// Performs the transformation: a = f(x @ W.T + b)
// where:
//   - x is the input tensor with shape [batch_size, in_features]
//   - W is the weight matrix with shape [units, in_features]
//   - b is the bias with shape [1, units]
//   - f is the layer activation
//
// Weights are initialized with He scaling, biases with zeros.
//
// Example:
//
//	layer := nn.NewDense(64, nn.ReLU)
//	err := layer.Initialize(tensor.Shape{784}, rng)
//	output, err := layer.Forward(input, false) // [batch, 64]
type Dense struct {
	units      int
	inFeatures int
	activation Activation

	weights *tensor.Tensor // [units, in_features]
	biases  *tensor.Tensor // [1, units]

	cache denseCache
}

type denseCache struct {
	input *tensor.Tensor // x
	z     *tensor.Tensor // pre-activation
	a     *tensor.Tensor // post-activation
}

// NewDense creates a Dense layer with the given number of units.
// Parameters are allocated by Initialize.
func NewDense(units int, activation Activation) *Dense {
	return &Dense{
		units:      units,
		activation: activation,
	}
}

// Initialize allocates weights for a 1-D input shape.
func (d *Dense) Initialize(inputShape tensor.Shape, rng *rand.Rand) error {
	if d.units <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "%s: units must be positive", d)
	}
	if err := d.activation.Validate(); err != nil {
		return errors.Wrapf(err, "%s", d)
	}
	if len(inputShape) != 1 || inputShape[0] <= 0 {
		return errors.Wrapf(ErrShapeMismatch, "%s: expected 1D input shape, got %v (add a Flatten layer)", d, inputShape)
	}

	d.inFeatures = inputShape[0]
	d.weights = HeNormal(tensor.Shape{d.units, d.inFeatures}, d.inFeatures, rng)
	d.biases = tensor.Zeros(tensor.Shape{1, d.units})
	return nil
}

// Forward computes a = f(x @ W.T + b).
//
// Input shape: [batch_size, in_features]
// Output shape: [batch_size, units]
func (d *Dense) Forward(input *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	if d.weights == nil {
		return nil, errors.Wrapf(ErrNotInitialized, "%s", d)
	}
	shape := input.Shape()
	if len(shape) != 2 || shape[1] != d.inFeatures {
		return nil, errors.Wrapf(ErrShapeMismatch, "%s: expected input [batch, %d], got %v", d, d.inFeatures, shape)
	}

	z := tensor.MatMulTransB(input, d.weights).AddLastAxis(d.biases)
	a := d.activation.F(z)

	d.cache = denseCache{}
	if training {
		d.cache = denseCache{input: input, z: z, a: a}
	}
	return a, nil
}

// Backward computes gradients from da, the gradient w.r.t. the output.
//
//	dz = da * f'(z)
//	dW = dz.T @ x / batch_size
//	db = mean(dz, axis=0)
//	dx = dz @ W
func (d *Dense) Backward(da *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor, *tensor.Tensor, error) {
	c := d.cache
	if c.input == nil {
		return nil, nil, nil, errors.Wrapf(ErrNoCache, "%s", d)
	}
	if !da.SameShape(c.a) {
		return nil, nil, nil, errors.Wrapf(ErrShapeMismatch, "%s: output gradient %v vs output %v", d, da.Shape(), c.a.Shape())
	}
	d.cache = denseCache{}

	dz, err := activationBackward(d.activation, da, c.z, c.a)
	if err != nil {
		return nil, nil, nil, errors.Wrapf(err, "%s", d)
	}

	batch := float64(c.input.Dim(0))
	dw := tensor.MatMulTransA(dz, c.input).Scale(1 / batch)
	db, err := dz.SumToLastAxis().Scale(1 / batch).Reshape(d.biases.Shape())
	if err != nil {
		return nil, nil, nil, err
	}
	dInput := tensor.MatMul(dz, d.weights)

	return dInput, dw, db, nil
}

// UpdateParams subtracts dw and db from the weights and biases.
func (d *Dense) UpdateParams(dw, db *tensor.Tensor) error {
	return updateInPlace(d.String(), d.weights, d.biases, dw, db)
}

// Params returns the weight and bias tensors.
func (d *Dense) Params() (*tensor.Tensor, *tensor.Tensor) {
	return d.weights, d.biases
}

// OutputShape returns [units].
func (d *Dense) OutputShape() tensor.Shape {
	return tensor.Shape{d.units}
}

// Units returns the number of output units.
func (d *Dense) Units() int {
	return d.units
}

// Activation returns the layer activation.
func (d *Dense) Activation() Activation {
	return d.activation
}

// String returns a string representation of the layer.
func (d *Dense) String() string {
	return fmt.Sprintf("Dense(units=%d, activation=%s)", d.units, d.activation)
}
