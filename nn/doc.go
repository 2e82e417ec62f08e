// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the layers, activations and loss functions of
// minikeras.
//
// # Overview
//
// This package contains:
//   - Layers: Dense, Conv2D, Pool, Flatten
//   - Activations: Identity, Sigmoid, ReLU, Softmax
//   - Loss functions: SigmoidCrossEntropy, SoftmaxCrossEntropy, MeanSquaredError
//   - Initialization: HeNormal
//
// # Basic Usage
//
//	import "github.com/born-ml/minikeras/nn"
//
//	layers := []nn.Layer{
//	    nn.NewConv2D(5, 1, 32, nn.Valid, nn.ReLU),
//	    nn.NewPool(2, 2, nn.MaxPool),
//	    nn.NewFlatten(),
//	    nn.NewDense(64, nn.ReLU),
//	    nn.NewDense(10, nn.Softmax),
//	}
//
// Layers are normally driven by models.Sequential, which initializes them
// in order and runs the forward and backward passes.
//
// # Softmax and cross-entropy
//
// SoftmaxCrossEntropy returns the gradient with respect to the softmax
// input, prediction - target. A layer with a Softmax activation therefore
// passes its incoming gradient through unchanged, and Softmax must be
// paired with SoftmaxCrossEntropy on the last layer.
//
// # Errors
//
// Configuration mistakes (unknown activation, loss or pooling mode, shapes
// that do not fit) surface from Initialize or the Parse functions. Test for
// them with errors.Is against the exported Err values.
package nn
