package model

import (
	"time"

	"github.com/born-ml/minikeras/internal/tensor"
	"github.com/pkg/errors"
)

// evalBatchSize bounds the memory used by Predict and Evaluate.
const evalBatchSize = 256

// Dataset is a validation pair.
type Dataset struct {
	X *tensor.Tensor
	Y *tensor.Tensor
}

// FitConfig holds the hyperparameters of a training run.
type FitConfig struct {
	MiniBatchSize int
	LearningRate  float64
	Epochs        int

	// Validation is evaluated after every epoch when set.
	Validation *Dataset
}

// History records per-epoch metrics of a training run.
type History struct {
	// Cost is the mean mini-batch cost of each epoch, weighted by batch size.
	Cost []float64

	ValCost     []float64
	ValAccuracy []float64

	// Steps is the number of optimizer updates performed.
	Steps int
}

// Fit trains the model for cfg.Epochs passes over (x, y). Every epoch
// reshuffles the data; the optimizer step counter starts at 1 and runs
// across epochs.
func (s *Sequential) Fit(x, y *tensor.Tensor, cfg FitConfig) (*History, error) {
	if cfg.MiniBatchSize <= 0 {
		return nil, errors.Wrapf(ErrInvalidBatchSize, "got %d", cfg.MiniBatchSize)
	}
	if cfg.Epochs <= 0 || cfg.LearningRate <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "epochs %d, learning rate %g", cfg.Epochs, cfg.LearningRate)
	}
	n, err := checkPair(x, y)
	if err != nil {
		return nil, err
	}
	if cfg.Validation != nil {
		if _, err := checkPair(cfg.Validation.X, cfg.Validation.Y); err != nil {
			return nil, errors.Wrap(err, "validation data")
		}
	}

	s.logger.Info("training started",
		"samples", n,
		"epochs", cfg.Epochs,
		"batch_size", cfg.MiniBatchSize,
		"learning_rate", cfg.LearningRate,
		"params", s.NumParams())

	hist := &History{}
	step := 1
	start := time.Now()

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		batches, err := s.CreateMiniBatches(x, y, cfg.MiniBatchSize)
		if err != nil {
			return hist, err
		}

		var epochCost float64
		for _, b := range batches {
			cost, err := s.TrainStep(b.X, b.Y, cfg.LearningRate, step)
			if err != nil {
				return hist, errors.Wrapf(err, "epoch %d", epoch)
			}
			epochCost += cost * float64(b.Size()) / float64(n)
			step++
		}
		hist.Cost = append(hist.Cost, epochCost)
		hist.Steps = step - 1

		attrs := []any{"epoch", epoch, "step", hist.Steps, "cost", epochCost}
		if cfg.Validation != nil {
			valCost, valAcc, err := s.Evaluate(cfg.Validation.X, cfg.Validation.Y)
			if err != nil {
				return hist, errors.Wrapf(err, "validate epoch %d", epoch)
			}
			hist.ValCost = append(hist.ValCost, valCost)
			hist.ValAccuracy = append(hist.ValAccuracy, valAcc)
			attrs = append(attrs, "val_cost", valCost, "val_accuracy", valAcc)
		}
		attrs = append(attrs, "elapsed", time.Since(start).Round(time.Millisecond))
		s.logger.Info("epoch complete", attrs...)
	}

	return hist, nil
}

// Predict runs an inference forward pass over x in bounded chunks and
// returns the stacked final activations.
func (s *Sequential) Predict(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x == nil || x.NumElements() == 0 {
		return nil, ErrEmptyDataset
	}
	n := x.Dim(0)

	var out *tensor.Tensor
	for start := 0; start < n; start += evalBatchSize {
		end := min(start+evalBatchSize, n)
		aL, err := s.ForwardProp(x.SliceRows(start, end), false)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = tensor.Zeros(aL.Shape()[1:].WithBatch(n))
		}
		row := aL.NumElements() / (end - start)
		copy(out.Data()[start*row:end*row], aL.Data())
	}
	return out, nil
}

// Evaluate returns the cost and accuracy of the model on (x, y).
//
// Accuracy compares row argmaxes for multi-column targets and thresholds
// at 0.5 for single-column targets.
func (s *Sequential) Evaluate(x, y *tensor.Tensor) (cost, accuracy float64, err error) {
	n, err := checkPair(x, y)
	if err != nil {
		return 0, 0, err
	}
	aL, err := s.Predict(x)
	if err != nil {
		return 0, 0, err
	}

	cost, err = s.loss.Cost(aL, y)
	if err != nil {
		return 0, 0, errors.Wrap(err, "cost")
	}
	cost += s.l2Penalty(n)

	return cost, Accuracy(aL, y), nil
}

// Accuracy returns the fraction of rows where pred matches target.
func Accuracy(pred, target *tensor.Tensor) float64 {
	n := pred.Dim(0)
	if n == 0 {
		return 0
	}

	correct := 0
	if target.NumElements() == n {
		p, t := pred.Data(), target.Data()
		for i := 0; i < n; i++ {
			if (p[i] >= 0.5) == (t[i] >= 0.5) {
				correct++
			}
		}
	} else {
		p, t := pred.ArgmaxRows(), target.ArgmaxRows()
		for i := range p {
			if p[i] == t[i] {
				correct++
			}
		}
	}
	return float64(correct) / float64(n)
}
