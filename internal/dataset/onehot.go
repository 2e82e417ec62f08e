package dataset

import (
	"github.com/born-ml/minikeras/internal/tensor"
	"github.com/pkg/errors"
)

// ErrLabelOutOfRange is returned by OneHot for labels outside [0, numClasses).
var ErrLabelOutOfRange = errors.New("label out of range")

// OneHot turns integer labels shaped [N, 1] into a [N, numClasses] tensor
// with a single 1 per row.
func OneHot(labels *tensor.Tensor, numClasses int) (*tensor.Tensor, error) {
	shape := labels.Shape()
	if len(shape) != 2 || shape[1] != 1 {
		return nil, errors.Errorf("one-hot: expected labels shaped [N, 1], got %v", shape)
	}
	if numClasses <= 0 {
		return nil, errors.Errorf("one-hot: numClasses must be positive, got %d", numClasses)
	}

	n := shape[0]
	out := tensor.Zeros(tensor.Shape{n, numClasses})
	data := out.Data()
	for i, v := range labels.Data() {
		c := int(v)
		if float64(c) != v || c < 0 || c >= numClasses {
			return nil, errors.Wrapf(ErrLabelOutOfRange, "row %d: label %g with %d classes", i, v, numClasses)
		}
		data[i*numClasses+c] = 1
	}
	return out, nil
}
