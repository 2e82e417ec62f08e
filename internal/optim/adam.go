package optim

import (
	"math"

	"github.com/born-ml/minikeras/internal/nn"
	"github.com/born-ml/minikeras/internal/tensor"
	"github.com/pkg/errors"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Adam combines momentum with RMSProp's per-parameter scaling:
//   - Maintains exponential moving averages of gradients (first moment)
//   - Maintains exponential moving averages of squared gradients (second moment)
//   - Applies bias correction to compensate for initialization at zero
//
// Update rule:
//
//	v_t = beta1 * v_{t-1} + (1-beta1) * gradient       // First moment
//	s_t = beta2 * s_{t-1} + (1-beta2) * gradient²      // Second moment
//	v_hat = v_t / (1 - beta1^t)                        // Bias correction
//	s_hat = s_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * v_hat / (sqrt(s_hat) + eps)  // Parameter update
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
//
// Example:
//
//	opt := optim.NewAdam(trainable, optim.AdamConfig{})
//	if err := opt.Initialize(); err != nil {
//	    return err
//	}
//	err := opt.Update(0.001, wGrads, bGrads, step)
type Adam struct {
	layers []nn.Layer
	beta1  float64
	beta2  float64
	eps    float64

	vw, vb []*tensor.Tensor // first moments
	sw, sb []*tensor.Tensor // second moments
}

// AdamConfig holds configuration for Adam optimizer.
type AdamConfig struct {
	Beta1   float64 // Decay of the first moment (default: 0.9)
	Beta2   float64 // Decay of the second moment (default: 0.999)
	Epsilon float64 // Term for numerical stability (default: 1e-8)
}

// NewAdam creates a new Adam optimizer.
//
// Default hyperparameters:
//   - Beta1: 0.9
//   - Beta2: 0.999
//   - Epsilon: 1e-8
func NewAdam(trainable []nn.Layer, config AdamConfig) *Adam {
	if config.Beta1 == 0 {
		config.Beta1 = 0.9
	}
	if config.Beta2 == 0 {
		config.Beta2 = 0.999
	}
	if config.Epsilon == 0 {
		config.Epsilon = 1e-8
	}

	return &Adam{
		layers: trainable,
		beta1:  config.Beta1,
		beta2:  config.Beta2,
		eps:    config.Epsilon,
	}
}

// AdamBuilder builds Adam optimizers with the given configuration.
func AdamBuilder(config AdamConfig) Builder {
	return func(trainable []nn.Layer) Optimizer {
		return NewAdam(trainable, config)
	}
}

// Initialize zeroes both moment accumulators.
func (a *Adam) Initialize() error {
	vw, vb, err := zerosLikeParams(a.layers)
	if err != nil {
		return errors.Wrap(err, "adam")
	}
	sw, sb, err := zerosLikeParams(a.layers)
	if err != nil {
		return errors.Wrap(err, "adam")
	}
	a.vw, a.vb, a.sw, a.sb = vw, vb, sw, sb
	return nil
}

// Update performs a single optimization step using Adam algorithm.
//
// Every trainable layer goes through:
//  1. Update biased first moment estimate
//  2. Update biased second moment estimate
//  3. Compute bias-corrected moment estimates
//  4. Hand the scaled step to the layer
func (a *Adam) Update(learningRate float64, wGrads, bGrads []*tensor.Tensor, step int) error {
	if err := checkUpdate(a.layers, wGrads, bGrads, step); err != nil {
		return err
	}
	if a.vw == nil {
		return errors.Wrap(ErrNotInitialized, "adam")
	}

	c1 := biasCorrection(a.beta1, step)
	c2 := biasCorrection(a.beta2, step)

	for i, l := range a.layers {
		dw, err := a.delta(learningRate, c1, c2, a.vw[i], a.sw[i], wGrads[i])
		if err != nil {
			return errors.Wrapf(err, "adam: layer %d weights", i)
		}
		db, err := a.delta(learningRate, c1, c2, a.vb[i], a.sb[i], bGrads[i])
		if err != nil {
			return errors.Wrapf(err, "adam: layer %d biases", i)
		}
		if err := l.UpdateParams(dw, db); err != nil {
			return errors.Wrapf(err, "adam: layer %d", i)
		}
	}
	return nil
}

// delta advances the moments v and s with grad and returns the scaled step.
func (a *Adam) delta(lr, c1, c2 float64, v, s, grad *tensor.Tensor) (*tensor.Tensor, error) {
	if !v.SameShape(grad) {
		return nil, errors.Wrapf(nn.ErrShapeMismatch, "accumulator %v vs gradient %v", v.Shape(), grad.Shape())
	}

	out := tensor.ZerosLike(grad)
	vData, sData, gData, oData := v.Data(), s.Data(), grad.Data(), out.Data()
	for j, g := range gData {
		vData[j] = a.beta1*vData[j] + (1-a.beta1)*g
		sData[j] = a.beta2*sData[j] + (1-a.beta2)*g*g

		vHat := vData[j] / c1
		sHat := sData[j] / c2
		oData[j] = lr * vHat / (math.Sqrt(sHat) + a.eps)
	}
	return out, nil
}

// Velocity returns the first moment accumulators of trainable layer i.
func (a *Adam) Velocity(i int) (weights, biases *tensor.Tensor) {
	return a.vw[i], a.vb[i]
}

// Square returns the second moment accumulators of trainable layer i.
func (a *Adam) Square(i int) (weights, biases *tensor.Tensor) {
	return a.sw[i], a.sb[i]
}
