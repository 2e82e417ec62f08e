// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/born-ml/minikeras/internal/optim"
	"github.com/born-ml/minikeras/nn"
)

// Optimizer updates the parameters of a fixed list of trainable layers.
type Optimizer = optim.Optimizer

// Builder creates an optimizer over the trainable layers of a model.
type Builder = optim.Builder

// Gradient Descent

// GradientDescent is plain gradient descent.
type GradientDescent = optim.GradientDescent

// NewGradientDescent creates a gradient descent optimizer.
func NewGradientDescent(trainable []nn.Layer) *GradientDescent {
	return optim.NewGradientDescent(trainable)
}

// GradientDescentBuilder builds GradientDescent optimizers.
func GradientDescentBuilder() Builder {
	return optim.GradientDescentBuilder()
}

// RMSProp

// RMSProp represents the RMSProp optimizer.
type RMSProp = optim.RMSProp

// RMSPropConfig contains configuration for RMSProp.
type RMSPropConfig = optim.RMSPropConfig

// NewRMSProp creates an RMSProp optimizer.
//
// Example:
//
//	opt := optim.NewRMSProp(trainable, optim.RMSPropConfig{Beta: 0.9})
func NewRMSProp(trainable []nn.Layer, config RMSPropConfig) *RMSProp {
	return optim.NewRMSProp(trainable, config)
}

// RMSPropBuilder builds RMSProp optimizers with the given configuration.
func RMSPropBuilder(config RMSPropConfig) Builder {
	return optim.RMSPropBuilder(config)
}

// Adam (Adaptive Moment Estimation)

// Adam represents the Adam optimizer.
type Adam = optim.Adam

// AdamConfig contains configuration for Adam optimizer.
type AdamConfig = optim.AdamConfig

// NewAdam creates a new Adam optimizer with bias correction.
//
// Example:
//
//	opt := optim.NewAdam(trainable, optim.AdamConfig{
//	    Beta1:   0.9,
//	    Beta2:   0.999,
//	    Epsilon: 1e-8,
//	})
func NewAdam(trainable []nn.Layer, config AdamConfig) *Adam {
	return optim.NewAdam(trainable, config)
}

// AdamBuilder builds Adam optimizers with the given configuration.
func AdamBuilder(config AdamConfig) Builder {
	return optim.AdamBuilder(config)
}

// Errors returned by optimizers.
var (
	ErrInvalidStep    = optim.ErrInvalidStep
	ErrGradientCount  = optim.ErrGradientCount
	ErrNotInitialized = optim.ErrNotInitialized
)
