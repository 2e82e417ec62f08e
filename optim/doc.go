// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the optimizers that update minikeras layers.
//
// # Overview
//
// This package contains:
//   - GradientDescent: param -= lr * grad
//   - RMSProp: squared-gradient moving average with bias correction
//   - Adam: first and second moments with bias correction
//   - Optimizer interface and Builder factory
//
// # Basic Usage
//
// Models take a Builder and construct the optimizer over their trainable
// layers themselves:
//
//	m, err := models.NewSequential(models.Config{
//	    InputShape: tensor.Shape{784},
//	    Layers:     layers,
//	    Loss:       nn.SoftmaxCrossEntropy{},
//	    Optimizer:  optim.AdamBuilder(optim.AdamConfig{}),
//	})
//
// # Step counting
//
// Update takes the 1-based number of the current step. RMSProp and Adam
// divide by 1 - beta^step for bias correction, so step 0 is rejected with
// ErrInvalidStep.
package optim
