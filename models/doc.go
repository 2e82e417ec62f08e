// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package models provides the Sequential model.
//
// # Overview
//
// A Sequential model owns an ordered list of layers, a loss and an
// optimizer. New initializes the layers in order, feeding each the output
// shape of its predecessor, and builds the optimizer over the trainable
// ones.
//
// # Basic Usage
//
//	cnn, err := models.NewSequential(models.Config{
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
//	    Logger:    slog.Default(),
//	})
//	if err != nil {
//	    return err
//	}
//
//	hist, err := cnn.Fit(xTrain, yTrain, models.FitConfig{
//	    MiniBatchSize: 256,
//	    LearningRate:  0.001,
//	    Epochs:        30,
//	    Validation:    &models.Dataset{X: xTest, Y: yTest},
//	})
//
// # Training step
//
// TrainStep runs forward (training mode), backward, cost and one optimizer
// update on a mini-batch. Fit repeats it over shuffled mini-batches and
// logs one record per epoch through the configured slog.Logger.
//
// # Saving weights
//
//	err := cnn.SaveWeights("mnist.mkw")
//	...
//	err = other.LoadWeights("mnist.mkw") // same architecture required
//
// Only layer parameters are stored; a loaded model starts with fresh
// optimizer state.
package models
