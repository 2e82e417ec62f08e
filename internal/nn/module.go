// Package nn implements the layers, activations and losses of minikeras.
//
// This package provides:
//   - Layer interface: the forward/backward/update protocol every layer honors
//   - Dense: fully connected layer
//   - Conv2D: 2D cross-correlation over NHWC images
//   - Pool: max and average pooling
//   - Flatten: reshape to [batch, features]
//   - Activations: Identity, Sigmoid, ReLU, Softmax
//   - Losses: SigmoidCrossEntropy, SoftmaxCrossEntropy, MeanSquaredError
//
// Layers own their parameters and a cache of the last training-mode forward
// pass. Shapes passed to Initialize exclude the batch axis.
package nn

import (
	"math/rand"

	"github.com/born-ml/minikeras/internal/tensor"
	"github.com/pkg/errors"
)

// Layer is the protocol between a layer and the model driving it.
//
// The model calls Initialize once, in order, feeding each layer the output
// shape of the previous one. During training it calls Forward with
// training=true, then Backward exactly once with the gradient of the cost
// w.r.t. the layer output, then UpdateParams with the optimizer's deltas.
//
// Example:
//
//	layer := nn.NewDense(10, nn.Softmax)
//	if err := layer.Initialize(tensor.Shape{64}, rng); err != nil {
//	    return err
//	}
//	out, err := layer.Forward(input, true)
//	dInput, dw, db, err := layer.Backward(dOut)
type Layer interface {
	// Initialize infers shapes from the per-example input shape and
	// allocates parameters. Weights are drawn from rng, biases start at zero.
	Initialize(inputShape tensor.Shape, rng *rand.Rand) error

	// Forward computes the layer output. When training is true the inputs
	// and intermediates needed by Backward are cached; otherwise any cache
	// left by an earlier training Forward is dropped.
	Forward(input *tensor.Tensor, training bool) (*tensor.Tensor, error)

	// Backward consumes the cache of the last training Forward and returns
	// the gradient w.r.t. the input and, for trainable layers, the weight
	// and bias gradients averaged over the batch. dw and db are nil for
	// layers without parameters.
	Backward(outputGrad *tensor.Tensor) (inputGrad, dw, db *tensor.Tensor, err error)

	// UpdateParams subtracts dw and db from the parameters in place.
	// The optimizer scales them by the learning rate beforehand.
	UpdateParams(dw, db *tensor.Tensor) error

	// Params returns the weight and bias tensors, or nil, nil for layers
	// without learnable parameters.
	Params() (weights, biases *tensor.Tensor)

	// OutputShape returns the per-example output shape. Valid after Initialize.
	OutputShape() tensor.Shape
}

// LayerActivation returns the activation applied by l, if it applies one.
func LayerActivation(l Layer) (Activation, bool) {
	a, ok := l.(interface{ Activation() Activation })
	if !ok {
		return 0, false
	}
	return a.Activation(), true
}

// IsTrainable reports whether a layer exposes learnable parameters.
func IsTrainable(l Layer) bool {
	w, b := l.Params()
	return w != nil || b != nil
}

// updateInPlace validates gradient shapes and subtracts them from params.
func updateInPlace(name string, weights, biases, dw, db *tensor.Tensor) error {
	if weights == nil {
		return ErrNotInitialized
	}
	if dw == nil || db == nil {
		return errors.Wrapf(ErrShapeMismatch, "%s: nil gradient", name)
	}
	if !weights.SameShape(dw) {
		return errors.Wrapf(ErrShapeMismatch, "%s: weights %v vs gradient %v", name, weights.Shape(), dw.Shape())
	}
	if !biases.SameShape(db) {
		return errors.Wrapf(ErrShapeMismatch, "%s: biases %v vs gradient %v", name, biases.Shape(), db.Shape())
	}

	weights.SubInPlace(dw)
	biases.SubInPlace(db)
	return nil
}
