package nn

import (
	"fmt"
	"math"
	"strings"

	"github.com/born-ml/minikeras/internal/tensor"
	"github.com/pkg/errors"
)

// Activation selects the non-linearity a layer applies to its pre-activation.
//
// The set is closed: unknown names are rejected by ParseActivation when a
// model is configured, never at training time.
type Activation int

// Supported activations.
const (
	Identity Activation = iota
	Sigmoid
	ReLU
	Softmax
)

var activationNames = map[string]Activation{
	"identity": Identity,
	"linear":   Identity,
	"sigmoid":  Sigmoid,
	"relu":     ReLU,
	"softmax":  Softmax,
}

// ParseActivation resolves a configuration name such as "relu".
func ParseActivation(name string) (Activation, error) {
	a, ok := activationNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownActivation, "%q", name)
	}
	return a, nil
}

// String returns the canonical name of the activation.
func (a Activation) String() string {
	switch a {
	case Identity:
		return "identity"
	case Sigmoid:
		return "sigmoid"
	case ReLU:
		return "relu"
	case Softmax:
		return "softmax"
	default:
		return fmt.Sprintf("Activation(%d)", int(a))
	}
}

// Validate reports whether a is one of the supported activations.
func (a Activation) Validate() error {
	if a < Identity || a > Softmax {
		return errors.Wrapf(ErrUnknownActivation, "%s", a)
	}
	return nil
}

// F applies the activation. Softmax is computed along the last axis; the
// others are element-wise.
func (a Activation) F(x *tensor.Tensor) *tensor.Tensor {
	switch a {
	case Identity:
		return x.Clone()
	case Sigmoid:
		return x.Apply(sigmoid)
	case ReLU:
		return x.Apply(func(v float64) float64 { return math.Max(0, v) })
	case Softmax:
		return softmax(x)
	default:
		panic(fmt.Sprintf("activation: %s", a))
	}
}

// DF returns the local derivative of the activation at x.
//
// cachedY is the forward output F(x); when non-nil it is reused instead of
// recomputing. Softmax has no standalone derivative and returns
// ErrNotImplemented: it is only trained through SoftmaxCrossEntropy, whose
// gradient is already taken with respect to the softmax input.
func (a Activation) DF(x, cachedY *tensor.Tensor) (*tensor.Tensor, error) {
	switch a {
	case Identity:
		return tensor.Ones(x.Shape()), nil
	case Sigmoid:
		y := cachedY
		if y == nil {
			y = x.Apply(sigmoid)
		}
		return y.Apply(func(v float64) float64 { return v * (1 - v) }), nil
	case ReLU:
		return x.Apply(func(v float64) float64 {
			if v > 0 {
				return 1
			}
			return 0
		}), nil
	case Softmax:
		return nil, errors.Wrap(ErrNotImplemented, "softmax derivative")
	default:
		return nil, a.Validate()
	}
}

// sigmoid is the overflow-safe logistic function.
func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// softmax normalizes each slice along the last axis after subtracting its max.
func softmax(x *tensor.Tensor) *tensor.Tensor {
	out := x.Clone()
	data := out.Data()
	shape := out.Shape()
	last := shape[len(shape)-1]

	for off := 0; off < len(data); off += last {
		row := data[off : off+last]
		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}
		var sum float64
		for i, v := range row {
			row[i] = math.Exp(v - maxVal)
			sum += row[i]
		}
		for i := range row {
			row[i] /= sum
		}
	}
	return out
}

// activationBackward turns the gradient w.r.t. a layer's output into the
// gradient w.r.t. its pre-activation.
//
// A Softmax layer is only valid as the output layer under
// SoftmaxCrossEntropy, whose Grad is already dL/dz; model.New rejects every
// other placement.
func activationBackward(act Activation, da, z, a *tensor.Tensor) (*tensor.Tensor, error) {
	if act == Softmax {
		// SoftmaxCrossEntropy.Grad is already dL/dz.
		return da, nil
	}
	df, err := act.DF(z, a)
	if err != nil {
		return nil, err
	}
	return da.Mul(df), nil
}
