// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math/rand"

	"github.com/born-ml/minikeras/internal/nn"
	"github.com/born-ml/minikeras/internal/tensor"
)

// Layer is the forward/backward/update protocol every layer implements.
type Layer = nn.Layer

// Activation selects the nonlinearity applied by a layer.
type Activation = nn.Activation

// Supported activations.
const (
	Identity = nn.Identity
	Sigmoid  = nn.Sigmoid
	ReLU     = nn.ReLU
	Softmax  = nn.Softmax
)

// ParseActivation resolves an activation name such as "relu".
func ParseActivation(name string) (Activation, error) {
	return nn.ParseActivation(name)
}

// Loss computes a scalar cost and its gradient w.r.t. the predictions.
type Loss = nn.Loss

// Loss functions.
type (
	SigmoidCrossEntropy = nn.SigmoidCrossEntropy
	SoftmaxCrossEntropy = nn.SoftmaxCrossEntropy
	MeanSquaredError    = nn.MeanSquaredError
)

// ParseLoss resolves a loss name such as "softmax_cross_entropy".
func ParseLoss(name string) (Loss, error) {
	return nn.ParseLoss(name)
}

// Dense is a fully connected layer.
type Dense = nn.Dense

// NewDense creates a fully connected layer with the given number of units.
//
// Example:
//
//	hidden := nn.NewDense(64, nn.ReLU)
func NewDense(units int, activation Activation) *Dense {
	return nn.NewDense(units, activation)
}

// Padding selects how Conv2D treats image borders.
type Padding = nn.Padding

// Supported paddings.
const (
	Valid = nn.Valid
	Same  = nn.Same
)

// ParsePadding resolves "valid" or "same".
func ParsePadding(name string) (Padding, error) {
	return nn.ParsePadding(name)
}

// Conv2D is a 2D convolutional layer over NHWC images.
type Conv2D = nn.Conv2D

// NewConv2D creates a convolutional layer.
//
// Example:
//
//	conv := nn.NewConv2D(5, 1, 32, nn.Valid, nn.ReLU) // 28x28x1 -> 24x24x32
func NewConv2D(kernelSize, stride, filters int, padding Padding, activation Activation) *Conv2D {
	return nn.NewConv2D(kernelSize, stride, filters, padding, activation)
}

// PoolMode selects max or average pooling.
type PoolMode = nn.PoolMode

// Supported pooling modes.
const (
	MaxPool     = nn.MaxPool
	AveragePool = nn.AveragePool
)

// ParsePoolMode resolves "max" or "average".
func ParsePoolMode(name string) (PoolMode, error) {
	return nn.ParsePoolMode(name)
}

// Pool is a 2D pooling layer.
type Pool = nn.Pool

// NewPool creates a pooling layer.
//
// Example:
//
//	pool := nn.NewPool(2, 2, nn.MaxPool) // 24x24x32 -> 12x12x32
func NewPool(poolSize, stride int, mode PoolMode) *Pool {
	return nn.NewPool(poolSize, stride, mode)
}

// Flatten reshapes [batch, ...] into [batch, features].
type Flatten = nn.Flatten

// NewFlatten creates a Flatten layer.
func NewFlatten() *Flatten {
	return nn.NewFlatten()
}

// HeNormal draws weights from N(0, 2/fanIn).
func HeNormal(shape tensor.Shape, fanIn int, rng *rand.Rand) *tensor.Tensor {
	return nn.HeNormal(shape, fanIn, rng)
}

// IsTrainable reports whether a layer has learnable parameters.
func IsTrainable(l Layer) bool {
	return nn.IsTrainable(l)
}

// Errors returned by layers, activations and losses.
var (
	ErrNotImplemented    = nn.ErrNotImplemented
	ErrUnknownActivation = nn.ErrUnknownActivation
	ErrUnknownLoss       = nn.ErrUnknownLoss
	ErrUnknownPoolMode   = nn.ErrUnknownPoolMode
	ErrUnknownPadding    = nn.ErrUnknownPadding
	ErrInvalidConfig     = nn.ErrInvalidConfig
	ErrShapeMismatch     = nn.ErrShapeMismatch
	ErrNotInitialized    = nn.ErrNotInitialized
	ErrNoCache           = nn.ErrNoCache
	ErrNotTrainable      = nn.ErrNotTrainable
)
