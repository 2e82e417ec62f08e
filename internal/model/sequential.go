// Package model implements the Sequential container that drives layers,
// losses and optimizers through training.
//
// A training step is a strict pipeline: forward pass in training mode,
// backward pass producing every trainable layer's gradients, cost, and a
// single optimizer update. Nothing runs concurrently.
package model

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/born-ml/minikeras/internal/nn"
	"github.com/born-ml/minikeras/internal/optim"
	"github.com/born-ml/minikeras/internal/tensor"
	"github.com/pkg/errors"
)

// Errors returned by Sequential.
var (
	ErrInvalidConfig = errors.New("invalid model configuration")

	// ErrNoGradients is returned by UpdateParams when no BackwardProp has
	// recorded gradients since the last update.
	ErrNoGradients = errors.New("no gradients recorded")

	ErrInvalidBatchSize = errors.New("mini-batch size must be positive")
	ErrSampleMismatch   = errors.New("inputs and targets differ in sample count")
	ErrEmptyDataset     = errors.New("dataset is empty")
)

// Config describes a Sequential model.
type Config struct {
	// InputShape is the per-example input shape, without the batch axis.
	InputShape tensor.Shape

	// Layers in forward order. They are initialized by New.
	Layers []nn.Layer

	Loss nn.Loss

	// Optimizer builds the optimizer over the trainable layers
	// (default: gradient descent).
	Optimizer optim.Builder

	// L2Lambda enables L2 weight decay when positive.
	L2Lambda float64

	// Seed drives weight initialization and mini-batch shuffling.
	Seed int64

	// Logger receives training progress (default: discarded).
	Logger *slog.Logger
}

// Sequential chains layers so that each layer's output is the next
// layer's input.
//
// Example:
//
//	m, err := model.New(model.Config{
//	    InputShape: tensor.Shape{28, 28, 1},
//	    Layers: []nn.Layer{
//	        nn.NewConv2D(5, 1, 32, nn.Valid, nn.ReLU),
//	        nn.NewPool(2, 2, nn.MaxPool),
//	        nn.NewFlatten(),
//	        nn.NewDense(64, nn.ReLU),
//	        nn.NewDense(10, nn.Softmax),
//	    },
//	    Loss:      nn.SoftmaxCrossEntropy{},
//	    Optimizer: optim.AdamBuilder(optim.AdamConfig{}),
//	})
type Sequential struct {
	inputShape tensor.Shape
	layers     []nn.Layer
	loss       nn.Loss
	l2Lambda   float64
	rng        *rand.Rand
	logger     *slog.Logger

	trainable []nn.Layer
	// slot maps a layer index to its trainable index, or -1.
	slot      []int
	optimizer optim.Optimizer

	wGrads []*tensor.Tensor
	bGrads []*tensor.Tensor
}

// New initializes every layer with the output shape of its predecessor,
// collects the trainable layers and initializes the optimizer over them.
func New(cfg Config) (*Sequential, error) {
	if err := cfg.InputShape.Validate(); err != nil || len(cfg.InputShape) == 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "input shape %v", cfg.InputShape)
	}
	if len(cfg.Layers) == 0 {
		return nil, errors.Wrap(ErrInvalidConfig, "no layers")
	}
	if cfg.Loss == nil {
		return nil, errors.Wrap(ErrInvalidConfig, "no loss function")
	}
	if err := checkSoftmax(cfg.Layers, cfg.Loss); err != nil {
		return nil, err
	}
	if cfg.L2Lambda < 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "negative L2 lambda %g", cfg.L2Lambda)
	}
	if cfg.Optimizer == nil {
		cfg.Optimizer = optim.GradientDescentBuilder()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Sequential{
		inputShape: cfg.InputShape.Clone(),
		layers:     cfg.Layers,
		loss:       cfg.Loss,
		l2Lambda:   cfg.L2Lambda,
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		logger:     cfg.Logger,
		slot:       make([]int, len(cfg.Layers)),
	}

	shape := s.inputShape
	for i, l := range s.layers {
		if err := l.Initialize(shape, s.rng); err != nil {
			return nil, errors.Wrapf(err, "initialize layer %d", i)
		}
		shape = l.OutputShape()

		s.slot[i] = -1
		if nn.IsTrainable(l) {
			s.slot[i] = len(s.trainable)
			s.trainable = append(s.trainable, l)
		}
	}

	s.optimizer = cfg.Optimizer(s.trainable)
	if err := s.optimizer.Initialize(); err != nil && !errors.Is(err, nn.ErrNotImplemented) {
		return nil, errors.Wrap(err, "initialize optimizer")
	}
	return s, nil
}

// checkSoftmax allows a Softmax activation only on the last layer and only
// when the loss is SoftmaxCrossEntropy. Softmax layers pass their gradient
// through unchanged, which is correct for that pairing alone.
func checkSoftmax(layers []nn.Layer, loss nn.Loss) error {
	last := len(layers) - 1
	for i, l := range layers {
		act, ok := nn.LayerActivation(l)
		if !ok || act != nn.Softmax {
			continue
		}
		if i != last {
			return errors.Wrapf(ErrInvalidConfig, "layer %d (%v): softmax is only supported on the output layer", i, l)
		}
		switch loss.(type) {
		case nn.SoftmaxCrossEntropy, *nn.SoftmaxCrossEntropy:
		default:
			return errors.Wrapf(ErrInvalidConfig, "layer %d (%v): softmax output requires softmax cross-entropy, got %T", i, l, loss)
		}
	}
	return nil
}

// ForwardProp runs every layer in order and returns the final activation.
// With training=true each layer caches what its Backward needs.
func (s *Sequential) ForwardProp(x *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	a := x
	for i, l := range s.layers {
		var err error
		if a, err = l.Forward(a, training); err != nil {
			return nil, errors.Wrapf(err, "forward layer %d", i)
		}
	}
	return a, nil
}

// BackwardProp propagates the loss gradient through the layers in reverse
// and records the weight and bias gradients of every trainable layer.
//
// With L2 enabled, (lambda / batch_size) * W is added to each dw.
func (s *Sequential) BackwardProp(aL, y *tensor.Tensor) error {
	da, err := s.loss.Grad(aL, y)
	if err != nil {
		return errors.Wrap(err, "loss gradient")
	}

	batch := float64(aL.Dim(0))
	wGrads := make([]*tensor.Tensor, len(s.trainable))
	bGrads := make([]*tensor.Tensor, len(s.trainable))

	for i := len(s.layers) - 1; i >= 0; i-- {
		l := s.layers[i]
		dInput, dw, db, err := l.Backward(da)
		if err != nil {
			return errors.Wrapf(err, "backward layer %d", i)
		}
		da = dInput

		k := s.slot[i]
		if k < 0 {
			continue
		}
		if s.l2Lambda > 0 {
			w, _ := l.Params()
			dw.AddScaledInPlace(s.l2Lambda/batch, w)
		}
		wGrads[k], bGrads[k] = dw, db
	}

	s.wGrads, s.bGrads = wGrads, bGrads
	return nil
}

// UpdateParams hands the recorded gradients to the optimizer. step counts
// updates from 1.
func (s *Sequential) UpdateParams(learningRate float64, step int) error {
	if s.wGrads == nil {
		return ErrNoGradients
	}
	err := s.optimizer.Update(learningRate, s.wGrads, s.bGrads, step)
	s.wGrads, s.bGrads = nil, nil
	return err
}

// ComputeCost returns the loss plus, with L2 enabled,
// (lambda / (2 * batch_size)) * sum of squared weights.
func (s *Sequential) ComputeCost(aL, y *tensor.Tensor) (float64, error) {
	cost, err := s.loss.Cost(aL, y)
	if err != nil {
		return 0, errors.Wrap(err, "cost")
	}
	return cost + s.l2Penalty(aL.Dim(0)), nil
}

func (s *Sequential) l2Penalty(batch int) float64 {
	if s.l2Lambda <= 0 {
		return 0
	}
	var sum float64
	for _, l := range s.trainable {
		w, _ := l.Params()
		sum += w.SumSquares()
	}
	return s.l2Lambda / (2 * float64(batch)) * sum
}

// TrainStep runs forward, backward, cost and update on one mini-batch and
// returns the cost.
func (s *Sequential) TrainStep(x, y *tensor.Tensor, learningRate float64, step int) (float64, error) {
	aL, err := s.ForwardProp(x, true)
	if err != nil {
		return 0, err
	}
	if err := s.BackwardProp(aL, y); err != nil {
		return 0, err
	}
	cost, err := s.ComputeCost(aL, y)
	if err != nil {
		return 0, err
	}
	if err := s.UpdateParams(learningRate, step); err != nil {
		return 0, errors.Wrapf(err, "update at step %d", step)
	}
	return cost, nil
}

// Layers returns the layers in forward order.
func (s *Sequential) Layers() []nn.Layer {
	return s.layers
}

// Trainable returns the layers with learnable parameters, in forward order.
func (s *Sequential) Trainable() []nn.Layer {
	return s.trainable
}

// Optimizer returns the optimizer built over the trainable layers.
func (s *Sequential) Optimizer() optim.Optimizer {
	return s.optimizer
}

// NumParams returns the number of learnable scalars.
func (s *Sequential) NumParams() int {
	total := 0
	for _, l := range s.trainable {
		w, b := l.Params()
		total += w.NumElements() + b.NumElements()
	}
	return total
}

// Summary renders one line per layer with its output shape and parameter
// count.
func (s *Sequential) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Input %v\n", s.inputShape)
	for i, l := range s.layers {
		params := 0
		if w, b := l.Params(); w != nil {
			params = w.NumElements() + b.NumElements()
		}
		fmt.Fprintf(&sb, "%2d  %-60v -> %-14v params=%d\n", i, l, l.OutputShape(), params)
	}
	fmt.Fprintf(&sb, "Total params: %d", s.NumParams())
	return sb.String()
}
