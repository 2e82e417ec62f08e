// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn_test

import (
	"math/rand"
	"testing"

	"github.com/born-ml/minikeras/nn"
	"github.com/born-ml/minikeras/tensor"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLayerInterface verifies that every layer implements Layer and
// reports its trainability.
func TestLayerInterface(t *testing.T) {
	tests := []struct {
		name      string
		layer     nn.Layer
		input     tensor.Shape
		trainable bool
	}{
		{"Dense", nn.NewDense(4, nn.ReLU), tensor.Shape{3}, true},
		{"Conv2D", nn.NewConv2D(3, 1, 2, nn.Same, nn.ReLU), tensor.Shape{5, 5, 1}, true},
		{"Pool", nn.NewPool(2, 2, nn.AveragePool), tensor.Shape{4, 4, 2}, false},
		{"Flatten", nn.NewFlatten(), tensor.Shape{2, 2, 2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.layer.Initialize(tt.input, rand.New(rand.NewSource(1))))
			assert.Equal(t, tt.trainable, nn.IsTrainable(tt.layer))

			x := tensor.Ones(tt.input.WithBatch(2))
			out, err := tt.layer.Forward(x, true)
			require.NoError(t, err)
			assert.Equal(t, tt.layer.OutputShape().WithBatch(2), out.Shape())

			dx, _, _, err := tt.layer.Backward(tensor.Ones(out.Shape()))
			require.NoError(t, err)
			assert.Equal(t, x.Shape(), dx.Shape())
		})
	}
}

func TestParsers(t *testing.T) {
	act, err := nn.ParseActivation("softmax")
	require.NoError(t, err)
	assert.Equal(t, nn.Softmax, act)

	_, err = nn.ParseActivation("tanh")
	assert.True(t, errors.Is(err, nn.ErrUnknownActivation))

	loss, err := nn.ParseLoss("softmax_cross_entropy")
	require.NoError(t, err)
	assert.IsType(t, nn.SoftmaxCrossEntropy{}, loss)

	mode, err := nn.ParsePoolMode("average")
	require.NoError(t, err)
	assert.Equal(t, nn.AveragePool, mode)

	pad, err := nn.ParsePadding("valid")
	require.NoError(t, err)
	assert.Equal(t, nn.Valid, pad)
}
