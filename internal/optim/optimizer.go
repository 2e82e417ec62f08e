// Package optim implements the optimizers that turn layer gradients into
// parameter updates.
//
// This package provides:
//   - Optimizer interface: accumulator setup and per-step updates
//   - GradientDescent: plain learning-rate scaled descent
//   - RMSProp: squared-gradient moving average with bias correction
//   - Adam: first and second moment moving averages with bias correction
//
// Optimizers are built over the ordered list of trainable layers. Gradients
// handed to Update are index-aligned with that list: wGrads[i] and bGrads[i]
// belong to trainable[i].
//
// Example usage:
//
//	opt := optim.AdamBuilder(optim.AdamConfig{})(trainable)
//	if err := opt.Initialize(); err != nil {
//	    return err
//	}
//	for step := 1; step <= steps; step++ {
//	    wGrads, bGrads := backward(...)
//	    if err := opt.Update(0.001, wGrads, bGrads, step); err != nil {
//	        return err
//	    }
//	}
package optim

import (
	"math"

	"github.com/born-ml/minikeras/internal/nn"
	"github.com/born-ml/minikeras/internal/tensor"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidStep is returned when Update is called with step < 1.
	// Bias correction divides by 1 - beta^step, which is zero at step 0.
	ErrInvalidStep = errors.New("optimizer step must start at 1")

	// ErrGradientCount is returned when the gradient slices do not line up
	// with the trainable layers.
	ErrGradientCount = errors.New("gradient count does not match trainable layers")

	// ErrNotInitialized is returned by stateful optimizers when Update runs
	// before Initialize.
	ErrNotInitialized = errors.New("optimizer not initialized")
)

// Optimizer updates the parameters of a fixed list of trainable layers.
type Optimizer interface {
	// Initialize allocates zeroed accumulators shaped like every weight and
	// bias tensor. Optimizers without state return nn.ErrNotImplemented.
	Initialize() error

	// Update applies one optimization step. step counts updates from 1.
	Update(learningRate float64, wGrads, bGrads []*tensor.Tensor, step int) error
}

// Builder creates an optimizer over the trainable layers of a model.
type Builder func(trainable []nn.Layer) Optimizer

// checkUpdate validates the arguments shared by every optimizer's Update.
// Every gradient is checked against its parameter before an optimizer
// touches any layer or accumulator, so a failed Update changes nothing.
func checkUpdate(layers []nn.Layer, wGrads, bGrads []*tensor.Tensor, step int) error {
	if step < 1 {
		return errors.Wrapf(ErrInvalidStep, "got step %d", step)
	}
	if len(wGrads) != len(layers) || len(bGrads) != len(layers) {
		return errors.Wrapf(ErrGradientCount, "%d layers, %d weight and %d bias gradients",
			len(layers), len(wGrads), len(bGrads))
	}
	for i, l := range layers {
		w, b := l.Params()
		if w == nil || b == nil {
			return errors.Wrapf(nn.ErrNotInitialized, "trainable layer %d (%v) has no parameters", i, l)
		}
		if wGrads[i] == nil || !wGrads[i].SameShape(w) {
			return errors.Wrapf(nn.ErrShapeMismatch, "layer %d weights %v, gradient %v", i, w.Shape(), shapeOf(wGrads[i]))
		}
		if bGrads[i] == nil || !bGrads[i].SameShape(b) {
			return errors.Wrapf(nn.ErrShapeMismatch, "layer %d biases %v, gradient %v", i, b.Shape(), shapeOf(bGrads[i]))
		}
	}
	return nil
}

func shapeOf(t *tensor.Tensor) tensor.Shape {
	if t == nil {
		return nil
	}
	return t.Shape()
}

// zerosLikeParams returns one zero tensor per weight and per bias tensor.
func zerosLikeParams(layers []nn.Layer) (weights, biases []*tensor.Tensor, err error) {
	weights = make([]*tensor.Tensor, len(layers))
	biases = make([]*tensor.Tensor, len(layers))
	for i, l := range layers {
		w, b := l.Params()
		if w == nil || b == nil {
			return nil, nil, errors.Wrapf(nn.ErrNotInitialized, "trainable layer %d (%v) has no parameters", i, l)
		}
		weights[i] = tensor.ZerosLike(w)
		biases[i] = tensor.ZerosLike(b)
	}
	return weights, biases, nil
}

// biasCorrection returns 1 - beta^step.
func biasCorrection(beta float64, step int) float64 {
	return 1 - math.Pow(beta, float64(step))
}
