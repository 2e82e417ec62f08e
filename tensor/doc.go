// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the float64 tensors minikeras models compute on.
//
// # Overview
//
// Tensors are dense, row-major N-dimensional arrays. Axis 0 is the batch
// axis and image tensors use NHWC layout: [batch, height, width, channels].
// This package provides:
//   - Creation: Zeros, Ones, Full, FromSlice, Randn
//   - Element access: At, Set, Data
//   - Elementwise and reduction operations backed by gonum/floats
//   - Matrix multiplication backed by gonum/mat
//   - Batch helpers: Rows, SliceRows, Reshape
//
// # Basic Usage
//
//	import "github.com/born-ml/minikeras/tensor"
//
//	func main() {
//	    x := tensor.MustFromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2})
//	    w := tensor.Ones(tensor.Shape{2, 2})
//	    y := tensor.MatMul(x, w)    // (2, 2)
//	    fmt.Println(y.ArgmaxRows()) // [0 0]
//	}
//
// # Reproducibility
//
// Randn draws from an explicit *rand.Rand so a fixed seed reproduces the
// same tensor bit for bit:
//
//	rng := rand.New(rand.NewSource(42))
//	w := tensor.Randn(tensor.Shape{64, 784}, rng)
package tensor
