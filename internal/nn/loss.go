package nn

import (
	"math"
	"strings"

	"github.com/born-ml/minikeras/internal/tensor"
	"github.com/pkg/errors"
)

// ClipEpsilon bounds predictions away from 0 and 1 before logarithms and
// divisions in the cross-entropy losses.
const ClipEpsilon = 1e-20

// Loss scores a batch of predictions against targets.
//
// Cost is the mean over the batch. Grad returns the per-example gradient
// with the same shape as pred; layers divide by the batch size when they
// reduce it into weight gradients.
type Loss interface {
	Cost(pred, target *tensor.Tensor) (float64, error)
	Grad(pred, target *tensor.Tensor) (*tensor.Tensor, error)
}

// ParseLoss resolves a configuration name such as "softmax_cross_entropy".
func ParseLoss(name string) (Loss, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sigmoid_cross_entropy", "binary_cross_entropy":
		return SigmoidCrossEntropy{}, nil
	case "softmax_cross_entropy", "categorical_cross_entropy":
		return SoftmaxCrossEntropy{}, nil
	case "mse", "mean_squared_error":
		return MeanSquaredError{}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownLoss, "%q", name)
	}
}

func checkLossShapes(name string, pred, target *tensor.Tensor) error {
	if !pred.SameShape(target) {
		return errors.Wrapf(ErrShapeMismatch, "%s: predictions %v vs targets %v", name, pred.Shape(), target.Shape())
	}
	return nil
}

// upperClip is the largest value below 1 that 1-ClipEpsilon can represent.
// In float64 1-1e-20 rounds to 1, which would let log(1-p) reach -Inf.
func upperClip() float64 {
	upper := 1 - ClipEpsilon
	if upper >= 1 {
		upper = math.Nextafter(1, 0)
	}
	return upper
}

func clip(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// SigmoidCrossEntropy is binary cross-entropy for sigmoid outputs.
//
// Cost = -1/N * sum(y*log(p) + (1-y)*log(1-p))
type SigmoidCrossEntropy struct{}

// Cost computes the mean binary cross-entropy over the batch.
func (SigmoidCrossEntropy) Cost(pred, target *tensor.Tensor) (float64, error) {
	if err := checkLossShapes("sigmoid cross-entropy", pred, target); err != nil {
		return 0, err
	}

	hi := upperClip()
	p, y := pred.Data(), target.Data()
	var sum float64
	for i := range p {
		pi := clip(p[i], ClipEpsilon, hi)
		sum += y[i]*math.Log(pi) + (1-y[i])*math.Log(1-pi)
	}
	return -sum / float64(target.Dim(0)), nil
}

// Grad returns -(y/p - (1-y)/(1-p)) with p clipped.
func (SigmoidCrossEntropy) Grad(pred, target *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkLossShapes("sigmoid cross-entropy", pred, target); err != nil {
		return nil, err
	}

	hi := upperClip()
	out := tensor.ZerosLike(pred)
	g, p, y := out.Data(), pred.Data(), target.Data()
	for i := range g {
		pi := clip(p[i], ClipEpsilon, hi)
		g[i] = -(y[i]/pi - (1-y[i])/(1-pi))
	}
	return out, nil
}

// SoftmaxCrossEntropy is categorical cross-entropy for softmax outputs.
//
// Cost = -1/N * sum(y*log(p))
//
// It must be paired with a Softmax activation on the final layer.
type SoftmaxCrossEntropy struct{}

// Cost computes the mean categorical cross-entropy over the batch.
func (SoftmaxCrossEntropy) Cost(pred, target *tensor.Tensor) (float64, error) {
	if err := checkLossShapes("softmax cross-entropy", pred, target); err != nil {
		return 0, err
	}

	p, y := pred.Data(), target.Data()
	var sum float64
	for i := range p {
		if y[i] == 0 {
			continue
		}
		sum += y[i] * math.Log(clip(p[i], ClipEpsilon, 1))
	}
	return -sum / float64(target.Dim(0)), nil
}

// Grad returns p - y, the gradient with respect to the softmax input.
//
// Layers with a Softmax activation pass this through without applying a
// derivative of their own.
func (SoftmaxCrossEntropy) Grad(pred, target *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkLossShapes("softmax cross-entropy", pred, target); err != nil {
		return nil, err
	}
	return pred.Sub(target), nil
}

// MeanSquaredError is half the squared error, averaged over the batch.
//
// Cost = 1/(2N) * sum((p - y)²)
type MeanSquaredError struct{}

// Cost computes the squared error cost.
func (MeanSquaredError) Cost(pred, target *tensor.Tensor) (float64, error) {
	if err := checkLossShapes("mse", pred, target); err != nil {
		return 0, err
	}
	return pred.Sub(target).SumSquares() / (2 * float64(target.Dim(0))), nil
}

// Grad returns p - y.
func (MeanSquaredError) Grad(pred, target *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkLossShapes("mse", pred, target); err != nil {
		return nil, err
	}
	return pred.Sub(target), nil
}
