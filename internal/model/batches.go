package model

import (
	"github.com/born-ml/minikeras/internal/tensor"
	"github.com/pkg/errors"
)

// Batch is a pair of inputs and targets sharing the batch axis.
type Batch struct {
	X *tensor.Tensor
	Y *tensor.Tensor
}

// Size returns the number of examples in the batch.
func (b Batch) Size() int {
	return b.X.Dim(0)
}

// checkPair validates that x and y hold the same non-zero number of samples.
func checkPair(x, y *tensor.Tensor) (int, error) {
	if x == nil || y == nil {
		return 0, ErrEmptyDataset
	}
	n := x.Dim(0)
	if y.Dim(0) != n {
		return 0, errors.Wrapf(ErrSampleMismatch, "%d inputs, %d targets", n, y.Dim(0))
	}
	return n, nil
}

// CreateMiniBatches shuffles x and y with one shared permutation and slices
// them into consecutive batches of miniBatchSize. The last batch holds the
// remainder when the sample count is not a multiple of miniBatchSize.
func (s *Sequential) CreateMiniBatches(x, y *tensor.Tensor, miniBatchSize int) ([]Batch, error) {
	if miniBatchSize <= 0 {
		return nil, errors.Wrapf(ErrInvalidBatchSize, "got %d", miniBatchSize)
	}
	n, err := checkPair(x, y)
	if err != nil {
		return nil, err
	}

	perm := s.rng.Perm(n)
	xs, ys := x.Rows(perm), y.Rows(perm)

	batches := make([]Batch, 0, (n+miniBatchSize-1)/miniBatchSize)
	for start := 0; start < n; start += miniBatchSize {
		end := min(start+miniBatchSize, n)
		batches = append(batches, Batch{
			X: xs.SliceRows(start, end),
			Y: ys.SliceRows(start, end),
		})
	}
	return batches, nil
}
