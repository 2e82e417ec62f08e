package nn

import (
	"math/rand"
	"testing"

	"github.com/born-ml/minikeras/internal/tensor"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDense(t *testing.T, units, in int, act Activation, seed int64) *Dense {
	t.Helper()
	d := NewDense(units, act)
	require.NoError(t, d.Initialize(tensor.Shape{in}, rand.New(rand.NewSource(seed))))
	return d
}

func TestDense_Initialize(t *testing.T) {
	d := newTestDense(t, 4, 3, ReLU, 1)

	w, b := d.Params()
	assert.Equal(t, tensor.Shape{4, 3}, w.Shape())
	assert.Equal(t, tensor.Shape{1, 4}, b.Shape())
	assert.Equal(t, 0.0, b.SumSquares(), "biases start at zero")
	assert.Equal(t, tensor.Shape{4}, d.OutputShape())
	assert.True(t, IsTrainable(d))
}

func TestDense_InitializeErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	err := NewDense(0, ReLU).Initialize(tensor.Shape{3}, rng)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	err = NewDense(2, Activation(9)).Initialize(tensor.Shape{3}, rng)
	assert.True(t, errors.Is(err, ErrUnknownActivation))

	err = NewDense(2, ReLU).Initialize(tensor.Shape{4, 4, 1}, rng)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestDense_ForwardKnownValues(t *testing.T) {
	d := newTestDense(t, 2, 3, Identity, 1)
	w, b := d.Params()
	copy(w.Data(), []float64{1, 0, -1, 2, 1, 0})
	copy(b.Data(), []float64{0.5, -0.5})

	x := tensor.MustFromSlice([]float64{1, 2, 3, 0, 1, 0}, tensor.Shape{2, 3})
	out, err := d.Forward(x, false)
	require.NoError(t, err)

	// row0: [1-3, 2+2] + b = [-1.5, 3.5]; row1: [0, 1] + b = [0.5, 0.5]
	assert.Equal(t, tensor.Shape{2, 2}, out.Shape())
	assert.InDeltaSlice(t, []float64{-1.5, 3.5, 0.5, 0.5}, out.Data(), 1e-12)
}

func TestDense_ForwardErrors(t *testing.T) {
	_, err := NewDense(2, ReLU).Forward(tensor.Zeros(tensor.Shape{1, 3}), false)
	assert.True(t, errors.Is(err, ErrNotInitialized))

	d := newTestDense(t, 2, 3, ReLU, 1)
	_, err = d.Forward(tensor.Zeros(tensor.Shape{1, 4}), false)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestDense_BackwardRequiresTrainingForward(t *testing.T) {
	d := newTestDense(t, 2, 3, ReLU, 1)
	x := tensor.Ones(tensor.Shape{1, 3})
	da := tensor.Ones(tensor.Shape{1, 2})

	_, _, _, err := d.Backward(da)
	assert.True(t, errors.Is(err, ErrNoCache))

	_, err = d.Forward(x, false)
	require.NoError(t, err)
	_, _, _, err = d.Backward(da)
	assert.True(t, errors.Is(err, ErrNoCache), "inference forward must not populate the cache")

	_, err = d.Forward(x, true)
	require.NoError(t, err)
	_, _, _, err = d.Backward(da)
	require.NoError(t, err)

	_, _, _, err = d.Backward(da)
	assert.True(t, errors.Is(err, ErrNoCache), "cache is consumed by backward")

	_, err = d.Forward(x, true)
	require.NoError(t, err)
	_, err = d.Forward(tensor.Full(tensor.Shape{1, 3}, 2), false)
	require.NoError(t, err)
	_, _, _, err = d.Backward(da)
	assert.True(t, errors.Is(err, ErrNoCache), "inference forward drops the training cache")
}

func TestDense_GradientCheck(t *testing.T) {
	for _, act := range []Activation{Identity, Sigmoid} {
		t.Run(act.String(), func(t *testing.T) {
			const batch = 5
			d := newTestDense(t, 3, 4, act, 11)
			rng := rand.New(rand.NewSource(12))
			x := tensor.Randn(tensor.Shape{batch, 4}, rng)
			upstream := tensor.Randn(tensor.Shape{batch, 3}, rng)

			// objective has dL/da = upstream / batch, matching the loss convention.
			objective := func() float64 {
				a, err := d.Forward(x, false)
				require.NoError(t, err)
				return a.Mul(upstream).Sum() / batch
			}

			_, err := d.Forward(x, true)
			require.NoError(t, err)
			dx, dw, db, err := d.Backward(upstream)
			require.NoError(t, err)

			w, b := d.Params()
			assertGradientsMatch(t, "dw", dw.Data(), numericGrad(w.Data(), objective))
			assertGradientsMatch(t, "db", db.Data(), numericGrad(b.Data(), objective))
			assertGradientsMatch(t, "dx", scaled(dx.Data(), 1.0/batch), numericGrad(x.Data(), objective))
		})
	}
}

func TestDense_UpdateParams(t *testing.T) {
	d := newTestDense(t, 2, 2, Identity, 1)
	w, b := d.Params()
	before := w.Clone()

	dw := tensor.Full(tensor.Shape{2, 2}, 0.5)
	db := tensor.Full(tensor.Shape{1, 2}, 1)
	require.NoError(t, d.UpdateParams(dw, db))

	assert.InDeltaSlice(t, before.Sub(dw).Data(), w.Data(), 1e-15)
	assert.Equal(t, []float64{-1, -1}, b.Data())

	err := d.UpdateParams(tensor.Zeros(tensor.Shape{3, 2}), db)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestDense_SameSeedSameWeights(t *testing.T) {
	a := newTestDense(t, 8, 16, ReLU, 99)
	b := newTestDense(t, 8, 16, ReLU, 99)
	wa, _ := a.Params()
	wb, _ := b.Params()
	assert.Equal(t, wa.Data(), wb.Data())
}
