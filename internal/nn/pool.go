package nn

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/born-ml/minikeras/internal/tensor"
	"github.com/pkg/errors"
)

// PoolMode selects the reduction applied to each pooling window.
type PoolMode int

// Supported pooling modes.
const (
	MaxPool PoolMode = iota
	AveragePool
)

// ParsePoolMode resolves "max" or "average".
func ParsePoolMode(name string) (PoolMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "max":
		return MaxPool, nil
	case "average":
		return AveragePool, nil
	default:
		return 0, errors.Wrapf(ErrUnknownPoolMode, "%q", name)
	}
}

// String returns "max" or "average".
func (m PoolMode) String() string {
	switch m {
	case MaxPool:
		return "max"
	case AveragePool:
		return "average"
	default:
		return fmt.Sprintf("PoolMode(%d)", int(m))
	}
}

// Pool is a 2D pooling layer over NHWC images.
//
// Pooling reduces spatial dimensions by taking the maximum or the mean of
// each window, per channel. Pool has no learnable parameters.
//
// Input shape:  [batch, height, width, channels]
// Output shape: [batch, out_height, out_width, channels]
//
// Where:
//
//	out_height = (height - poolSize) / stride + 1
//	out_width = (width - poolSize) / stride + 1
//
// Windows overlap when stride < poolSize; gradients from overlapping
// windows accumulate.
//
// Example:
//
//	pool := nn.NewPool(2, 2, nn.MaxPool)
//	err := pool.Initialize(tensor.Shape{24, 24, 32}, rng) // output [12, 12, 32]
type Pool struct {
	poolSize int
	stride   int
	mode     PoolMode

	inH, inW   int
	outH, outW int
	channels   int

	cache poolCache
}

type poolCache struct {
	inputShape tensor.Shape
	// argmax holds, for every output element, the flat input offset that
	// produced the max. Only populated in MaxPool mode.
	argmax []int
}

// NewPool creates a new pooling layer.
//
// Common patterns:
//   - NewPool(2, 2, MaxPool): Standard 2x2 non-overlapping pooling
//   - NewPool(3, 2, MaxPool): Overlapping 3x3 pooling with stride 2
func NewPool(poolSize, stride int, mode PoolMode) *Pool {
	return &Pool{
		poolSize: poolSize,
		stride:   stride,
		mode:     mode,
	}
}

// Initialize computes the output size with the no-padding pooling formula.
func (p *Pool) Initialize(inputShape tensor.Shape, _ *rand.Rand) error {
	if p.poolSize <= 0 || p.stride <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "%s: pool size and stride must be positive", p)
	}
	if p.mode != MaxPool && p.mode != AveragePool {
		return errors.Wrapf(ErrUnknownPoolMode, "%s", p)
	}
	if len(inputShape) != 3 {
		return errors.Wrapf(ErrShapeMismatch, "%s: expected input shape (height, width, channels), got %v", p, inputShape)
	}

	p.inH, p.inW, p.channels = inputShape[0], inputShape[1], inputShape[2]
	if p.inH < p.poolSize || p.inW < p.poolSize {
		return errors.Wrapf(ErrShapeMismatch, "%s: window larger than input %v", p, inputShape)
	}
	p.outH = (p.inH-p.poolSize)/p.stride + 1
	p.outW = (p.inW-p.poolSize)/p.stride + 1
	return nil
}

// Forward reduces every window. In MaxPool mode with training=true the
// position of each window's max (first occurrence on ties) is cached.
func (p *Pool) Forward(input *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	if p.outH == 0 {
		return nil, errors.Wrapf(ErrNotInitialized, "%s", p)
	}
	shape := input.Shape()
	if len(shape) != 4 || !shape[1:].Equal(tensor.Shape{p.inH, p.inW, p.channels}) {
		return nil, errors.Wrapf(ErrShapeMismatch, "%s: expected input [batch, %d, %d, %d], got %v", p, p.inH, p.inW, p.channels, shape)
	}

	n := shape[0]
	out := tensor.Zeros(tensor.Shape{n, p.outH, p.outW, p.channels})
	xData, oData := input.Data(), out.Data()

	var argmax []int
	if training && p.mode == MaxPool {
		argmax = make([]int, len(oData))
	}
	area := float64(p.poolSize * p.poolSize)

	p.eachWindow(n, func(oOff, ch int, window []int) {
		switch p.mode {
		case MaxPool:
			best := window[0]
			for _, off := range window[1:] {
				if xData[off+ch] > xData[best+ch] {
					best = off
				}
			}
			oData[oOff+ch] = xData[best+ch]
			if argmax != nil {
				argmax[oOff+ch] = best + ch
			}
		case AveragePool:
			var sum float64
			for _, off := range window {
				sum += xData[off+ch]
			}
			oData[oOff+ch] = sum / area
		}
	})

	p.cache = poolCache{}
	if training {
		p.cache = poolCache{inputShape: shape.Clone(), argmax: argmax}
	}
	return out, nil
}

// Backward routes gradients back to the inputs of each window.
//
// MaxPool sends each output gradient to the cached argmax position only.
// AveragePool spreads it evenly, output_gradient / poolSize², over the window.
// dw and db are always nil.
func (p *Pool) Backward(da *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor, *tensor.Tensor, error) {
	cache := p.cache
	if cache.inputShape == nil {
		return nil, nil, nil, errors.Wrapf(ErrNoCache, "%s", p)
	}
	n := cache.inputShape[0]
	want := tensor.Shape{n, p.outH, p.outW, p.channels}
	if !da.Shape().Equal(want) {
		return nil, nil, nil, errors.Wrapf(ErrShapeMismatch, "%s: output gradient %v, expected %v", p, da.Shape(), want)
	}
	p.cache = poolCache{}

	dInput := tensor.Zeros(cache.inputShape)
	dxData, daData := dInput.Data(), da.Data()

	switch p.mode {
	case MaxPool:
		for o, off := range cache.argmax {
			dxData[off] += daData[o]
		}
	case AveragePool:
		area := float64(p.poolSize * p.poolSize)
		p.eachWindow(n, func(oOff, ch int, window []int) {
			g := daData[oOff+ch] / area
			for _, off := range window {
				dxData[off+ch] += g
			}
		})
	}

	return dInput, nil, nil, nil
}

// eachWindow calls fn for every output element with the output offset of its
// pixel, the channel, and the input offsets (channel 0) of the window pixels
// in row-major order.
func (p *Pool) eachWindow(n int, fn func(oOff, ch int, window []int)) {
	window := make([]int, p.poolSize*p.poolSize)
	c := p.channels

	for b := 0; b < n; b++ {
		for i := 0; i < p.outH; i++ {
			vStart := i * p.stride
			for j := 0; j < p.outW; j++ {
				hStart := j * p.stride

				w := 0
				for kh := 0; kh < p.poolSize; kh++ {
					for kw := 0; kw < p.poolSize; kw++ {
						window[w] = ((b*p.inH+vStart+kh)*p.inW + hStart + kw) * c
						w++
					}
				}

				oOff := ((b*p.outH+i)*p.outW + j) * c
				for ch := 0; ch < c; ch++ {
					fn(oOff, ch, window)
				}
			}
		}
	}
}

// UpdateParams always fails: pooling has no parameters.
func (p *Pool) UpdateParams(_, _ *tensor.Tensor) error {
	return errors.Wrapf(ErrNotTrainable, "%s", p)
}

// Params returns nil, nil.
func (p *Pool) Params() (*tensor.Tensor, *tensor.Tensor) {
	return nil, nil
}

// OutputShape returns [out_height, out_width, channels].
func (p *Pool) OutputShape() tensor.Shape {
	return tensor.Shape{p.outH, p.outW, p.channels}
}

// Mode returns the pooling mode.
func (p *Pool) Mode() PoolMode {
	return p.mode
}

// String returns a string representation of the layer.
func (p *Pool) String() string {
	return fmt.Sprintf("Pool(pool_size=%d, stride=%d, mode=%s)", p.poolSize, p.stride, p.mode)
}
