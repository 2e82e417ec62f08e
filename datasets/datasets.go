// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package datasets loads, downloads and encodes training data.
//
// # MNIST
//
//	dir, err := datasets.DownloadMNIST(ctx, "datasets") // ~/.minikeras/datasets
//	train, test, err := datasets.LoadMNIST(dir)
//	yTrain, err := datasets.OneHot(train.Y, 10)
//
// Images come back as [N, 28, 28, 1] scaled to [0, 1] and labels as [N, 1].
package datasets

import (
	"context"

	"github.com/born-ml/minikeras/internal/dataset"
	"github.com/born-ml/minikeras/tensor"
)

// MNISTBaseURL hosts the gzipped MNIST IDX files.
const MNISTBaseURL = dataset.MNISTBaseURL

// Split is one partition of a labelled image dataset.
type Split = dataset.Split

// Images is a stack of grayscale images read from an IDX file.
type Images = dataset.Images

// LoadMNIST reads the MNIST training and test sets from dir.
func LoadMNIST(dir string) (train, test Split, err error) {
	return dataset.LoadMNIST(dir)
}

// DownloadMNIST fetches MNIST into ~/.minikeras/<cacheDir> unless cached and
// returns that directory.
func DownloadMNIST(ctx context.Context, cacheDir string) (string, error) {
	return dataset.DownloadMNIST(ctx, cacheDir)
}

// GetFile downloads url into ~/.minikeras/<cacheDir>/<filename> once and
// returns the local path.
func GetFile(ctx context.Context, url, filename, cacheDir string) (string, error) {
	return dataset.GetFile(ctx, url, filename, cacheDir)
}

// ReadIDXImages reads an IDX image file, plain or gzipped.
func ReadIDXImages(filename string) (*Images, error) {
	return dataset.ReadIDXImages(filename)
}

// ReadIDXLabels reads an IDX label file, plain or gzipped.
func ReadIDXLabels(filename string) ([]byte, error) {
	return dataset.ReadIDXLabels(filename)
}

// OneHot turns [N, 1] integer labels into a [N, numClasses] tensor.
func OneHot(labels *tensor.Tensor, numClasses int) (*tensor.Tensor, error) {
	return dataset.OneHot(labels, numClasses)
}

// Errors returned by the loaders.
var (
	ErrBadIDX          = dataset.ErrBadIDX
	ErrDownload        = dataset.ErrDownload
	ErrLabelOutOfRange = dataset.ErrLabelOutOfRange
)
