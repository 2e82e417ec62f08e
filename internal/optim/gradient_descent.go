package optim

import (
	"github.com/born-ml/minikeras/internal/nn"
	"github.com/born-ml/minikeras/internal/tensor"
	"github.com/pkg/errors"
)

// GradientDescent subtracts the learning-rate scaled gradient from every
// trainable layer:
//
//	param = param - lr * gradient
//
// It keeps no state besides the layer list.
//
// Example:
//
//	opt := optim.NewGradientDescent(trainable)
//	err := opt.Update(0.1, wGrads, bGrads, step)
type GradientDescent struct {
	layers []nn.Layer
}

// NewGradientDescent creates a gradient descent optimizer.
func NewGradientDescent(trainable []nn.Layer) *GradientDescent {
	return &GradientDescent{layers: trainable}
}

// GradientDescentBuilder builds a GradientDescent optimizer.
func GradientDescentBuilder() Builder {
	return func(trainable []nn.Layer) Optimizer {
		return NewGradientDescent(trainable)
	}
}

// Initialize always returns nn.ErrNotImplemented: there are no accumulators.
func (g *GradientDescent) Initialize() error {
	return errors.Wrap(nn.ErrNotImplemented, "gradient descent has no accumulator state")
}

// Update hands lr * gradient to each layer's UpdateParams.
func (g *GradientDescent) Update(learningRate float64, wGrads, bGrads []*tensor.Tensor, step int) error {
	if err := checkUpdate(g.layers, wGrads, bGrads, step); err != nil {
		return err
	}
	for i, l := range g.layers {
		if err := l.UpdateParams(wGrads[i].Scale(learningRate), bGrads[i].Scale(learningRate)); err != nil {
			return errors.Wrapf(err, "gradient descent: layer %d", i)
		}
	}
	return nil
}
