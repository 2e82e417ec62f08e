package optim

import (
	"math"

	"github.com/born-ml/minikeras/internal/nn"
	"github.com/born-ml/minikeras/internal/tensor"
	"github.com/pkg/errors"
)

// RMSProp scales each step by a running average of squared gradients.
//
// Update rule:
//
//	s_t = beta * s_{t-1} + (1-beta) * gradient²
//	s_hat = s_t / (1 - beta^t)
//	param = param - lr * gradient / (sqrt(s_hat) + eps)
type RMSProp struct {
	layers []nn.Layer
	beta   float64
	eps    float64

	sw []*tensor.Tensor // squared-gradient averages for weights
	sb []*tensor.Tensor // squared-gradient averages for biases
}

// RMSPropConfig holds configuration for RMSProp.
type RMSPropConfig struct {
	Beta    float64 // Decay of the squared-gradient average (default: 0.9)
	Epsilon float64 // Term for numerical stability (default: 1e-8)
}

// NewRMSProp creates an RMSProp optimizer. Zero config fields take their
// defaults.
func NewRMSProp(trainable []nn.Layer, config RMSPropConfig) *RMSProp {
	if config.Beta == 0 {
		config.Beta = 0.9
	}
	if config.Epsilon == 0 {
		config.Epsilon = 1e-8
	}
	return &RMSProp{
		layers: trainable,
		beta:   config.Beta,
		eps:    config.Epsilon,
	}
}

// RMSPropBuilder builds RMSProp optimizers with the given configuration.
func RMSPropBuilder(config RMSPropConfig) Builder {
	return func(trainable []nn.Layer) Optimizer {
		return NewRMSProp(trainable, config)
	}
}

// Initialize zeroes the squared-gradient averages.
func (r *RMSProp) Initialize() error {
	sw, sb, err := zerosLikeParams(r.layers)
	if err != nil {
		return errors.Wrap(err, "rmsprop")
	}
	r.sw, r.sb = sw, sb
	return nil
}

// Update applies one bias-corrected RMSProp step.
func (r *RMSProp) Update(learningRate float64, wGrads, bGrads []*tensor.Tensor, step int) error {
	if err := checkUpdate(r.layers, wGrads, bGrads, step); err != nil {
		return err
	}
	if r.sw == nil {
		return errors.Wrap(ErrNotInitialized, "rmsprop")
	}

	correction := biasCorrection(r.beta, step)
	for i, l := range r.layers {
		dw, err := r.delta(learningRate, correction, r.sw[i], wGrads[i])
		if err != nil {
			return errors.Wrapf(err, "rmsprop: layer %d weights", i)
		}
		db, err := r.delta(learningRate, correction, r.sb[i], bGrads[i])
		if err != nil {
			return errors.Wrapf(err, "rmsprop: layer %d biases", i)
		}
		if err := l.UpdateParams(dw, db); err != nil {
			return errors.Wrapf(err, "rmsprop: layer %d", i)
		}
	}
	return nil
}

// delta advances the average s with grad and returns the scaled step.
func (r *RMSProp) delta(lr, correction float64, s, grad *tensor.Tensor) (*tensor.Tensor, error) {
	if !s.SameShape(grad) {
		return nil, errors.Wrapf(nn.ErrShapeMismatch, "accumulator %v vs gradient %v", s.Shape(), grad.Shape())
	}

	out := tensor.ZerosLike(grad)
	sData, gData, oData := s.Data(), grad.Data(), out.Data()
	for j, g := range gData {
		sData[j] = r.beta*sData[j] + (1-r.beta)*g*g
		oData[j] = lr * g / (math.Sqrt(sData[j]/correction) + r.eps)
	}
	return out, nil
}

// Square returns the squared-gradient averages of trainable layer i.
func (r *RMSProp) Square(i int) (weights, biases *tensor.Tensor) {
	return r.sw[i], r.sb[i]
}
