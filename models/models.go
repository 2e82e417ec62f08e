// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package models

import (
	"github.com/born-ml/minikeras/internal/model"
	"github.com/born-ml/minikeras/tensor"
)

// Sequential chains layers and trains them with a loss and optimizer.
type Sequential = model.Sequential

// Config describes a Sequential model.
type Config = model.Config

// FitConfig holds the hyperparameters of a training run.
type FitConfig = model.FitConfig

// Dataset is a validation pair.
type Dataset = model.Dataset

// History records per-epoch metrics of a training run.
type History = model.History

// Batch is a pair of inputs and targets sharing the batch axis.
type Batch = model.Batch

// NewSequential initializes the layers and optimizer described by cfg.
func NewSequential(cfg Config) (*Sequential, error) {
	return model.New(cfg)
}

// Accuracy returns the fraction of rows where pred matches target.
//
// Multi-column targets compare row argmaxes; single-column targets are
// thresholded at 0.5.
func Accuracy(pred, target *tensor.Tensor) float64 {
	return model.Accuracy(pred, target)
}

// Errors returned by Sequential.
var (
	ErrInvalidConfig    = model.ErrInvalidConfig
	ErrNoGradients      = model.ErrNoGradients
	ErrInvalidBatchSize = model.ErrInvalidBatchSize
	ErrSampleMismatch   = model.ErrSampleMismatch
	ErrEmptyDataset     = model.ErrEmptyDataset
	ErrWeightsMismatch  = model.ErrWeightsMismatch
)
