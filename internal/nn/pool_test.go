package nn

import (
	"testing"

	"github.com/born-ml/minikeras/internal/tensor"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, size, stride int, mode PoolMode, input tensor.Shape) *Pool {
	t.Helper()
	p := NewPool(size, stride, mode)
	require.NoError(t, p.Initialize(input, nil))
	return p
}

func TestParsePoolMode(t *testing.T) {
	m, err := ParsePoolMode("Max")
	require.NoError(t, err)
	assert.Equal(t, MaxPool, m)

	m, err = ParsePoolMode("average")
	require.NoError(t, err)
	assert.Equal(t, AveragePool, m)

	_, err = ParsePoolMode("min")
	assert.True(t, errors.Is(err, ErrUnknownPoolMode))
}

func TestPool_OutputShape(t *testing.T) {
	tests := []struct {
		size, stride int
		input, want  tensor.Shape
	}{
		{2, 2, tensor.Shape{24, 24, 32}, tensor.Shape{12, 12, 32}},
		{3, 2, tensor.Shape{7, 7, 1}, tensor.Shape{3, 3, 1}},
		{2, 1, tensor.Shape{3, 4, 2}, tensor.Shape{2, 3, 2}},
		{2, 2, tensor.Shape{5, 5, 1}, tensor.Shape{2, 2, 1}},
	}
	for _, tt := range tests {
		p := newTestPool(t, tt.size, tt.stride, MaxPool, tt.input)
		assert.Equal(t, tt.want, p.OutputShape(), "pool %d stride %d on %v", tt.size, tt.stride, tt.input)
		assert.False(t, IsTrainable(p))
	}
}

func TestPool_InitializeErrors(t *testing.T) {
	err := NewPool(0, 1, MaxPool).Initialize(tensor.Shape{4, 4, 1}, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	err = NewPool(2, 2, PoolMode(7)).Initialize(tensor.Shape{4, 4, 1}, nil)
	assert.True(t, errors.Is(err, ErrUnknownPoolMode))

	err = NewPool(5, 1, MaxPool).Initialize(tensor.Shape{4, 4, 1}, nil)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestPool_MaxForwardBackward(t *testing.T) {
	p := newTestPool(t, 2, 2, MaxPool, tensor.Shape{4, 4, 1})
	x := tensor.MustFromSlice([]float64{
		1, 3, 2, 1,
		4, 2, 0, 5,
		1, 1, 9, 8,
		0, 2, 7, 6,
	}, tensor.Shape{1, 4, 4, 1})

	out, err := p.Forward(x, true)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5, 2, 9}, out.Data())

	da := tensor.MustFromSlice([]float64{10, 20, 30, 40}, tensor.Shape{1, 2, 2, 1})
	dx, dw, db, err := p.Backward(da)
	require.NoError(t, err)
	assert.Nil(t, dw)
	assert.Nil(t, db)
	assert.Equal(t, []float64{
		0, 0, 0, 0,
		10, 0, 0, 20,
		0, 0, 40, 0,
		0, 30, 0, 0,
	}, dx.Data())

	// Non-overlapping windows conserve the gradient mass.
	assert.Equal(t, da.Sum(), dx.Sum())
}

func TestPool_MaxTieGoesToFirstOccurrence(t *testing.T) {
	p := newTestPool(t, 2, 2, MaxPool, tensor.Shape{2, 2, 1})
	x := tensor.Full(tensor.Shape{1, 2, 2, 1}, 3)

	_, err := p.Forward(x, true)
	require.NoError(t, err)
	dx, _, _, err := p.Backward(tensor.Ones(tensor.Shape{1, 1, 1, 1}))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0, 0}, dx.Data())
}

func TestPool_MaxPerChannel(t *testing.T) {
	p := newTestPool(t, 2, 2, MaxPool, tensor.Shape{2, 2, 2})
	// channel 0: 1, 2, 3, 4; channel 1: 8, 7, 6, 5
	x := tensor.MustFromSlice([]float64{1, 8, 2, 7, 3, 6, 4, 5}, tensor.Shape{1, 2, 2, 2})

	out, err := p.Forward(x, true)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 8}, out.Data())

	dx, _, _, err := p.Backward(tensor.MustFromSlice([]float64{1, 2}, tensor.Shape{1, 1, 1, 2}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2, 0, 0, 0, 0, 1, 0}, dx.Data())
}

func TestPool_AverageForwardBackward(t *testing.T) {
	p := newTestPool(t, 2, 2, AveragePool, tensor.Shape{2, 4, 1})
	x := tensor.MustFromSlice([]float64{
		1, 2, 3, 4,
		5, 6, 7, 8,
	}, tensor.Shape{1, 2, 4, 1})

	out, err := p.Forward(x, true)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{3.5, 5.5}, out.Data(), 1e-12)

	dx, _, _, err := p.Backward(tensor.MustFromSlice([]float64{4, 8}, tensor.Shape{1, 1, 2, 1}))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 1, 2, 2, 1, 1, 2, 2}, dx.Data(), 1e-12)
}

func TestPool_OverlappingWindowsAccumulate(t *testing.T) {
	p := newTestPool(t, 2, 1, AveragePool, tensor.Shape{2, 3, 1})

	_, err := p.Forward(tensor.Zeros(tensor.Shape{1, 2, 3, 1}), true)
	require.NoError(t, err)
	dx, _, _, err := p.Backward(tensor.Full(tensor.Shape{1, 1, 2, 1}, 4))
	require.NoError(t, err)
	// The middle column belongs to both windows.
	assert.InDeltaSlice(t, []float64{1, 2, 1, 1, 2, 1}, dx.Data(), 1e-12)
}

func TestPool_GradientCheck(t *testing.T) {
	for _, mode := range []PoolMode{MaxPool, AveragePool} {
		t.Run(mode.String(), func(t *testing.T) {
			p := newTestPool(t, 2, 1, mode, tensor.Shape{3, 3, 2})
			// Distinct values keep the max away from ties under perturbation.
			data := make([]float64, 18)
			for i := range data {
				data[i] = float64((i*7)%18) * 0.1
			}
			x := tensor.MustFromSlice(data, tensor.Shape{1, 3, 3, 2})
			upstream := tensor.Full(p.OutputShape().WithBatch(1), 1)
			for i := range upstream.Data() {
				upstream.Data()[i] = float64(i + 1)
			}

			objective := func() float64 {
				out, err := p.Forward(x, false)
				require.NoError(t, err)
				return out.Mul(upstream).Sum()
			}

			_, err := p.Forward(x, true)
			require.NoError(t, err)
			dx, _, _, err := p.Backward(upstream)
			require.NoError(t, err)
			assertGradientsMatch(t, "dx", dx.Data(), numericGrad(x.Data(), objective))
		})
	}
}

func TestPool_NoCacheAndNotTrainable(t *testing.T) {
	p := newTestPool(t, 2, 2, MaxPool, tensor.Shape{2, 2, 1})

	_, _, _, err := p.Backward(tensor.Zeros(tensor.Shape{1, 1, 1, 1}))
	assert.True(t, errors.Is(err, ErrNoCache))

	_, err = p.Forward(tensor.Zeros(tensor.Shape{1, 2, 2, 1}), false)
	require.NoError(t, err)
	_, _, _, err = p.Backward(tensor.Zeros(tensor.Shape{1, 1, 1, 1}))
	assert.True(t, errors.Is(err, ErrNoCache))

	_, err = p.Forward(tensor.Ones(tensor.Shape{1, 2, 2, 1}), true)
	require.NoError(t, err)
	_, err = p.Forward(tensor.Zeros(tensor.Shape{1, 2, 2, 1}), false)
	require.NoError(t, err)
	_, _, _, err = p.Backward(tensor.Zeros(tensor.Shape{1, 1, 1, 1}))
	assert.True(t, errors.Is(err, ErrNoCache), "inference forward drops the training cache")

	w, b := p.Params()
	assert.Nil(t, w)
	assert.Nil(t, b)
	assert.True(t, errors.Is(p.UpdateParams(nil, nil), ErrNotTrainable))
}
