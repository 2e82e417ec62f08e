package nn

import (
	"math/rand"
	"testing"

	"github.com/born-ml/minikeras/internal/tensor"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePadding(t *testing.T) {
	p, err := ParsePadding("same")
	require.NoError(t, err)
	assert.Equal(t, Same, p)

	_, err = ParsePadding("full")
	assert.True(t, errors.Is(err, ErrUnknownPadding))
}

func TestConv2D_OutputShape(t *testing.T) {
	tests := []struct {
		name    string
		conv    *Conv2D
		input   tensor.Shape
		want    tensor.Shape
		wantPad int
	}{
		{"valid 5x5", NewConv2D(5, 1, 32, Valid, ReLU), tensor.Shape{28, 28, 1}, tensor.Shape{24, 24, 32}, 0},
		{"same 3x3", NewConv2D(3, 1, 8, Same, ReLU), tensor.Shape{28, 28, 1}, tensor.Shape{28, 28, 8}, 1},
		{"stride 2", NewConv2D(3, 2, 4, Valid, Identity), tensor.Shape{7, 9, 3}, tensor.Shape{3, 4, 4}, 0},
		{"same stride 2", NewConv2D(5, 2, 2, Same, Identity), tensor.Shape{8, 8, 1}, tensor.Shape{4, 4, 2}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.conv.Initialize(tt.input, rand.New(rand.NewSource(1))))
			assert.Equal(t, tt.want, tt.conv.OutputShape())
			assert.Equal(t, tt.wantPad, tt.conv.Pad())

			w, b := tt.conv.Params()
			k := tt.conv.kernelSize
			assert.Equal(t, tensor.Shape{k, k, tt.input[2], tt.want[2]}, w.Shape())
			assert.Equal(t, tensor.Shape{1, 1, 1, tt.want[2]}, b.Shape())
		})
	}
}

func TestConv2D_InitializeErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	err := NewConv2D(3, 0, 4, Valid, ReLU).Initialize(tensor.Shape{5, 5, 1}, rng)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	err = NewConv2D(7, 1, 4, Valid, ReLU).Initialize(tensor.Shape{5, 5, 1}, rng)
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	err = NewConv2D(3, 1, 4, Padding(5), ReLU).Initialize(tensor.Shape{5, 5, 1}, rng)
	assert.True(t, errors.Is(err, ErrUnknownPadding))

	err = NewConv2D(3, 1, 4, Valid, ReLU).Initialize(tensor.Shape{25}, rng)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestConv2D_ForwardKnownValues(t *testing.T) {
	conv := NewConv2D(2, 1, 1, Valid, Identity)
	require.NoError(t, conv.Initialize(tensor.Shape{3, 3, 1}, rand.New(rand.NewSource(1))))
	w, b := conv.Params()
	copy(w.Data(), []float64{1, 0, 0, -1}) // top-left minus bottom-right
	b.Data()[0] = 10

	x := tensor.MustFromSlice([]float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}, tensor.Shape{1, 3, 3, 1})

	out, err := conv.Forward(x, false)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 2, 2, 1}, out.Shape())
	// Not flipped: x[i][j] - x[i+1][j+1] = -4 everywhere, plus bias.
	assert.InDeltaSlice(t, []float64{6, 6, 6, 6}, out.Data(), 1e-12)
}

func TestConv2D_SamePaddingZeroBorder(t *testing.T) {
	conv := NewConv2D(3, 1, 1, Same, Identity)
	require.NoError(t, conv.Initialize(tensor.Shape{3, 3, 1}, rand.New(rand.NewSource(1))))
	w, _ := conv.Params()
	for i := range w.Data() {
		w.Data()[i] = 1
	}

	out, err := conv.Forward(tensor.Ones(tensor.Shape{1, 3, 3, 1}), false)
	require.NoError(t, err)
	// Window sums count the in-bounds neighbours.
	assert.Equal(t, []float64{4, 6, 4, 6, 9, 6, 4, 6, 4}, out.Data())
}

func TestConv2D_GradientCheck(t *testing.T) {
	tests := []struct {
		name  string
		conv  *Conv2D
		input tensor.Shape
	}{
		{"valid stride 1", NewConv2D(3, 1, 3, Valid, Sigmoid), tensor.Shape{5, 5, 2}},
		{"same stride 1", NewConv2D(3, 1, 2, Same, Identity), tensor.Shape{4, 4, 2}},
		{"valid stride 2", NewConv2D(2, 2, 2, Valid, Sigmoid), tensor.Shape{5, 5, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const batch = 2
			rng := rand.New(rand.NewSource(21))
			require.NoError(t, tt.conv.Initialize(tt.input, rng))

			x := tensor.Randn(tt.input.WithBatch(batch), rng)
			upstream := tensor.Randn(tt.conv.OutputShape().WithBatch(batch), rng)

			objective := func() float64 {
				a, err := tt.conv.Forward(x, false)
				require.NoError(t, err)
				return a.Mul(upstream).Sum() / batch
			}

			_, err := tt.conv.Forward(x, true)
			require.NoError(t, err)
			dx, dw, db, err := tt.conv.Backward(upstream)
			require.NoError(t, err)
			assert.Equal(t, x.Shape(), dx.Shape())

			w, b := tt.conv.Params()
			assertGradientsMatch(t, "dw", dw.Data(), numericGrad(w.Data(), objective))
			assertGradientsMatch(t, "db", db.Data(), numericGrad(b.Data(), objective))
			assertGradientsMatch(t, "dx", scaled(dx.Data(), 1.0/batch), numericGrad(x.Data(), objective))
		})
	}
}

func TestConv2D_BackwardWithoutForward(t *testing.T) {
	conv := NewConv2D(3, 1, 1, Valid, ReLU)
	require.NoError(t, conv.Initialize(tensor.Shape{4, 4, 1}, rand.New(rand.NewSource(1))))
	_, _, _, err := conv.Backward(tensor.Zeros(tensor.Shape{1, 2, 2, 1}))
	assert.True(t, errors.Is(err, ErrNoCache))

	_, err = conv.Forward(tensor.Ones(tensor.Shape{1, 4, 4, 1}), true)
	require.NoError(t, err)
	_, err = conv.Forward(tensor.Zeros(tensor.Shape{1, 4, 4, 1}), false)
	require.NoError(t, err)
	_, _, _, err = conv.Backward(tensor.Zeros(tensor.Shape{1, 2, 2, 1}))
	assert.True(t, errors.Is(err, ErrNoCache), "inference forward drops the training cache")
}

func TestConv2D_WorkerCountDoesNotChangeResults(t *testing.T) {
	run := func(workers int) (a, dx, dw, db *tensor.Tensor) {
		conv := NewConv2D(3, 2, 5, Same, ReLU).SetWorkers(workers)
		rng := rand.New(rand.NewSource(4))
		require.NoError(t, conv.Initialize(tensor.Shape{9, 7, 3}, rng))

		x := tensor.Randn(tensor.Shape{6, 9, 7, 3}, rng)
		a, err := conv.Forward(x, true)
		require.NoError(t, err)
		dx, dw, db, err = conv.Backward(tensor.Randn(a.Shape(), rng))
		require.NoError(t, err)
		return a, dx, dw, db
	}

	a1, dx1, dw1, db1 := run(1)
	a4, dx4, dw4, db4 := run(4)

	assert.Equal(t, a1.Data(), a4.Data())
	assert.Equal(t, dx1.Data(), dx4.Data())
	assert.Equal(t, dw1.Data(), dw4.Data())
	assert.Equal(t, db1.Data(), db4.Data())
}
