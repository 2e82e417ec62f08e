package optim_test

import (
	"math/rand"
	"testing"

	"github.com/born-ml/minikeras/internal/nn"
	"github.com/born-ml/minikeras/internal/optim"
	"github.com/born-ml/minikeras/internal/tensor"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trainableLayers returns two initialized Dense layers: 3 -> 4 -> 2.
func trainableLayers(t *testing.T) []nn.Layer {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	first := nn.NewDense(4, nn.ReLU)
	require.NoError(t, first.Initialize(tensor.Shape{3}, rng))
	second := nn.NewDense(2, nn.Softmax)
	require.NoError(t, second.Initialize(first.OutputShape(), rng))
	return []nn.Layer{first, second}
}

// constantGrads returns gradients shaped like every layer's params, filled with v.
func constantGrads(layers []nn.Layer, v float64) (wGrads, bGrads []*tensor.Tensor) {
	for _, l := range layers {
		w, b := l.Params()
		wGrads = append(wGrads, tensor.Full(w.Shape(), v))
		bGrads = append(bGrads, tensor.Full(b.Shape(), v))
	}
	return wGrads, bGrads
}

func snapshot(layers []nn.Layer) (weights, biases []*tensor.Tensor) {
	for _, l := range layers {
		w, b := l.Params()
		weights = append(weights, w.Clone())
		biases = append(biases, b.Clone())
	}
	return weights, biases
}

// assertMovedBy checks param == before - delta elementwise.
func assertMovedBy(t *testing.T, layers []nn.Layer, weights, biases []*tensor.Tensor, delta float64) {
	t.Helper()
	for i, l := range layers {
		w, b := l.Params()
		for j, v := range w.Data() {
			assert.InDelta(t, weights[i].Data()[j]-delta, v, 1e-9, "layer %d weight %d", i, j)
		}
		for j, v := range b.Data() {
			assert.InDelta(t, biases[i].Data()[j]-delta, v, 1e-9, "layer %d bias %d", i, j)
		}
	}
}

func TestGradientDescent_InitializeNotImplemented(t *testing.T) {
	opt := optim.NewGradientDescent(trainableLayers(t))
	assert.True(t, errors.Is(opt.Initialize(), nn.ErrNotImplemented))
}

func TestGradientDescent_Update(t *testing.T) {
	layers := trainableLayers(t)
	weights, biases := snapshot(layers)
	opt := optim.GradientDescentBuilder()(layers)

	wGrads, bGrads := constantGrads(layers, 2)
	require.NoError(t, opt.Update(0.1, wGrads, bGrads, 1))

	// param - lr * grad = param - 0.2
	assertMovedBy(t, layers, weights, biases, 0.2)
}

func TestAdam_InitializeZeroAccumulators(t *testing.T) {
	layers := trainableLayers(t)
	opt := optim.NewAdam(layers, optim.AdamConfig{})
	require.NoError(t, opt.Initialize())

	for i, l := range layers {
		w, b := l.Params()
		vw, vb := opt.Velocity(i)
		sw, sb := opt.Square(i)
		for _, pair := range [][2]*tensor.Tensor{{w, vw}, {b, vb}, {w, sw}, {b, sb}} {
			assert.Equal(t, pair[0].Shape(), pair[1].Shape())
			assert.Equal(t, 0.0, pair[1].SumSquares())
		}
	}
}

func TestRMSProp_InitializeZeroAccumulators(t *testing.T) {
	layers := trainableLayers(t)
	opt := optim.NewRMSProp(layers, optim.RMSPropConfig{})
	require.NoError(t, opt.Initialize())

	for i, l := range layers {
		w, b := l.Params()
		sw, sb := opt.Square(i)
		assert.Equal(t, w.Shape(), sw.Shape())
		assert.Equal(t, b.Shape(), sb.Shape())
		assert.Equal(t, 0.0, sw.SumSquares()+sb.SumSquares())
	}
}

func TestAdam_FirstStep(t *testing.T) {
	layers := trainableLayers(t)
	weights, biases := snapshot(layers)
	opt := optim.NewAdam(layers, optim.AdamConfig{})
	require.NoError(t, opt.Initialize())

	wGrads, bGrads := constantGrads(layers, 0.5)
	require.NoError(t, opt.Update(0.01, wGrads, bGrads, 1))

	// At step 1 bias correction cancels the decay: v_hat = g, s_hat = g²,
	// so each parameter moves by lr * g / (|g| + eps) ~= lr.
	assertMovedBy(t, layers, weights, biases, 0.01)

	vw, _ := opt.Velocity(0)
	sw, _ := opt.Square(0)
	assert.InDelta(t, 0.05, vw.Data()[0], 1e-12)
	assert.InDelta(t, 0.00025, sw.Data()[0], 1e-12)
}

func TestAdam_SecondStepUsesHistory(t *testing.T) {
	layers := trainableLayers(t)[:1]
	opt := optim.NewAdam(layers, optim.AdamConfig{})
	require.NoError(t, opt.Initialize())

	w1, b1 := constantGrads(layers, 1)
	require.NoError(t, opt.Update(0.1, w1, b1, 1))
	weights, biases := snapshot(layers)

	w2, b2 := constantGrads(layers, -1)
	require.NoError(t, opt.Update(0.1, w2, b2, 2))

	// v = 0.9*0.1 - 0.1 = -0.01, v_hat = -0.01/0.19
	// s = 0.999*0.001 + 0.001 = 0.001999, s_hat = 0.001999/(1-0.999²) = 1
	expected := 0.1 * (-0.01 / 0.19) / (1 + 1e-8)
	assertMovedBy(t, layers, weights, biases, expected)
}

func TestRMSProp_FirstStep(t *testing.T) {
	layers := trainableLayers(t)
	weights, biases := snapshot(layers)
	opt := optim.RMSPropBuilder(optim.RMSPropConfig{Beta: 0.5})(layers)
	require.NoError(t, opt.Initialize())

	wGrads, bGrads := constantGrads(layers, -3)
	require.NoError(t, opt.Update(0.02, wGrads, bGrads, 1))

	// s_hat = g², so the step is lr * g / |g| = -lr.
	assertMovedBy(t, layers, weights, biases, -0.02)
}

func TestOptimizers_RejectBadArguments(t *testing.T) {
	builders := map[string]optim.Builder{
		"gradient_descent": optim.GradientDescentBuilder(),
		"rmsprop":          optim.RMSPropBuilder(optim.RMSPropConfig{}),
		"adam":             optim.AdamBuilder(optim.AdamConfig{}),
	}

	for name, build := range builders {
		t.Run(name, func(t *testing.T) {
			layers := trainableLayers(t)
			opt := build(layers)
			if err := opt.Initialize(); err != nil {
				require.True(t, errors.Is(err, nn.ErrNotImplemented))
			}
			wGrads, bGrads := constantGrads(layers, 1)

			err := opt.Update(0.1, wGrads, bGrads, 0)
			assert.True(t, errors.Is(err, optim.ErrInvalidStep))

			err = opt.Update(0.1, wGrads[:1], bGrads, 1)
			assert.True(t, errors.Is(err, optim.ErrGradientCount))

			bad := []*tensor.Tensor{tensor.Zeros(tensor.Shape{1, 1}), wGrads[1]}
			err = opt.Update(0.1, bad, bGrads, 1)
			assert.True(t, errors.Is(err, nn.ErrShapeMismatch))

			err = opt.Update(0.1, wGrads, []*tensor.Tensor{bGrads[0], nil}, 1)
			assert.True(t, errors.Is(err, nn.ErrShapeMismatch))
		})
	}
}

func TestOptimizers_FailedUpdateChangesNothing(t *testing.T) {
	builders := map[string]optim.Builder{
		"gradient_descent": optim.GradientDescentBuilder(),
		"rmsprop":          optim.RMSPropBuilder(optim.RMSPropConfig{}),
		"adam":             optim.AdamBuilder(optim.AdamConfig{}),
	}

	for name, build := range builders {
		t.Run(name, func(t *testing.T) {
			layers := trainableLayers(t)
			opt := build(layers)
			if err := opt.Initialize(); err != nil {
				require.True(t, errors.Is(err, nn.ErrNotImplemented))
			}
			weights, biases := snapshot(layers)
			wGrads, bGrads := constantGrads(layers, 1)

			// The first layer's gradients are valid, the last bias gradient is not.
			bGrads[1] = tensor.Zeros(tensor.Shape{1, 7})
			err := opt.Update(0.1, wGrads, bGrads, 1)
			require.True(t, errors.Is(err, nn.ErrShapeMismatch), "got %v", err)

			assertMovedBy(t, layers, weights, biases, 0)
			for i := range layers {
				var accW, accB *tensor.Tensor
				switch o := opt.(type) {
				case *optim.Adam:
					accW, accB = o.Velocity(i)
				case *optim.RMSProp:
					accW, accB = o.Square(i)
				default:
					continue
				}
				assert.Zero(t, accW.SumSquares(), "layer %d", i)
				assert.Zero(t, accB.SumSquares(), "layer %d", i)
			}
		})
	}
}

func TestStatefulOptimizers_RequireInitialize(t *testing.T) {
	layers := trainableLayers(t)
	wGrads, bGrads := constantGrads(layers, 1)

	err := optim.NewAdam(layers, optim.AdamConfig{}).Update(0.1, wGrads, bGrads, 1)
	assert.True(t, errors.Is(err, optim.ErrNotInitialized))

	err = optim.NewRMSProp(layers, optim.RMSPropConfig{}).Update(0.1, wGrads, bGrads, 1)
	assert.True(t, errors.Is(err, optim.ErrNotInitialized))
}

func TestInitialize_RejectsUninitializedLayers(t *testing.T) {
	layers := []nn.Layer{nn.NewDense(3, nn.ReLU)}
	err := optim.NewAdam(layers, optim.AdamConfig{}).Initialize()
	assert.True(t, errors.Is(err, nn.ErrNotInitialized))
}
