package nn

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/born-ml/minikeras/internal/parallel"
	"github.com/born-ml/minikeras/internal/tensor"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Padding selects how Conv2D treats image borders.
type Padding int

// Supported paddings.
const (
	// Valid applies no padding; the output shrinks by kernel_size-1.
	Valid Padding = iota
	// Same pads by (kernel_size-1)/2 so stride-1 outputs keep the input size
	// for odd kernels.
	Same
)

// ParsePadding resolves "valid" or "same".
func ParsePadding(name string) (Padding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "valid":
		return Valid, nil
	case "same":
		return Same, nil
	default:
		return 0, errors.Wrapf(ErrUnknownPadding, "%q", name)
	}
}

// String returns "valid" or "same".
func (p Padding) String() string {
	switch p {
	case Valid:
		return "valid"
	case Same:
		return "same"
	default:
		return fmt.Sprintf("Padding(%d)", int(p))
	}
}

// Conv2D is a 2D convolutional layer over NHWC images.
//
// Computes the cross-correlation (the kernel is not flipped):
//
//	z[n, i, j, co] = b[co] + sum_{kh, kw, ci} x_pad[n, i*s+kh, j*s+kw, ci] * W[kh, kw, ci, co]
//	a = f(z)
//
// Input shape:  [batch, height, width, in_channels]
// Kernel shape: [kernel_size, kernel_size, in_channels, filters]
// Bias shape:   [1, 1, 1, filters]
// Output shape: [batch, out_h, out_w, filters]
//
// Where:
//
//	out_h = (height - kernel_size + 2*pad) / stride + 1
//	out_w = (width - kernel_size + 2*pad) / stride + 1
//
// Example:
//
//	// 5x5 kernel, stride 1, 32 filters on 28x28 grayscale images
//	conv := nn.NewConv2D(5, 1, 32, nn.Valid, nn.ReLU)
//	err := conv.Initialize(tensor.Shape{28, 28, 1}, rng) // output [24, 24, 32]
type Conv2D struct {
	kernelSize int
	stride     int
	filters    int
	padding    Padding
	activation Activation

	pad           int
	inH, inW, inC int
	outH, outW    int

	weights *tensor.Tensor // [kernel_size, kernel_size, in_channels, filters]
	biases  *tensor.Tensor // [1, 1, 1, filters]

	par   parallel.Config
	cache convCache
}

type convCache struct {
	input *tensor.Tensor
	z     *tensor.Tensor
	a     *tensor.Tensor
}

// NewConv2D creates a new 2D convolutional layer.
//
// Parameters:
//   - kernelSize: Size of the square kernel
//   - stride: Step between neighbouring windows
//   - filters: Number of output channels
//   - padding: Valid or Same
//   - activation: Activation applied to the output
func NewConv2D(kernelSize, stride, filters int, padding Padding, activation Activation) *Conv2D {
	return &Conv2D{
		kernelSize: kernelSize,
		stride:     stride,
		filters:    filters,
		padding:    padding,
		activation: activation,
		par:        parallel.DefaultConfig(),
	}
}

// SetWorkers bounds the goroutines used by Forward and Backward. Values
// below 2 run the loops on the calling goroutine. Results are identical
// for every worker count.
func (c *Conv2D) SetWorkers(n int) *Conv2D {
	if n < 2 {
		c.par = parallel.Sequential()
		return c
	}
	c.par = parallel.Config{Enabled: true, NumWorkers: n, MinChunkSize: 1}
	return c
}

// Initialize computes the output size and allocates the kernel.
//
// The kernel is drawn with He scaling over kernel_size² * in_channels inputs.
func (c *Conv2D) Initialize(inputShape tensor.Shape, rng *rand.Rand) error {
	if c.kernelSize <= 0 || c.stride <= 0 || c.filters <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "%s: kernel size, stride and filters must be positive", c)
	}
	if err := c.activation.Validate(); err != nil {
		return errors.Wrapf(err, "%s", c)
	}
	if len(inputShape) != 3 {
		return errors.Wrapf(ErrShapeMismatch, "%s: expected input shape (height, width, channels), got %v", c, inputShape)
	}

	switch c.padding {
	case Valid:
		c.pad = 0
	case Same:
		c.pad = (c.kernelSize - 1) / 2
	default:
		return errors.Wrapf(ErrUnknownPadding, "%s", c)
	}

	c.inH, c.inW, c.inC = inputShape[0], inputShape[1], inputShape[2]
	spanH := c.inH - c.kernelSize + 2*c.pad
	spanW := c.inW - c.kernelSize + 2*c.pad
	if spanH < 0 || spanW < 0 {
		return errors.Wrapf(ErrShapeMismatch, "%s: kernel larger than padded input %v", c, inputShape)
	}
	c.outH = spanH/c.stride + 1
	c.outW = spanW/c.stride + 1

	k := c.kernelSize
	c.weights = HeNormal(tensor.Shape{k, k, c.inC, c.filters}, k*k*c.inC, rng)
	c.biases = tensor.Zeros(tensor.Shape{1, 1, 1, c.filters})
	return nil
}

// Forward performs the windowed multiply-and-sum for every output position.
func (c *Conv2D) Forward(input *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	if c.weights == nil {
		return nil, errors.Wrapf(ErrNotInitialized, "%s", c)
	}
	if err := c.checkInput(input); err != nil {
		return nil, err
	}

	n := input.Dim(0)
	padded := input.Pad2D(c.pad)
	out := tensor.Zeros(tensor.Shape{n, c.outH, c.outW, c.filters})

	xData, wData, oData := padded.Data(), c.weights.Data(), out.Data()
	hp, wp := c.inH+2*c.pad, c.inW+2*c.pad
	k, cin, cout := c.kernelSize, c.inC, c.filters

	// Images are independent: each goroutine owns whole output images.
	parallel.For(n, func(b int) {
		for i := 0; i < c.outH; i++ {
			vStart := i * c.stride
			for j := 0; j < c.outW; j++ {
				hStart := j * c.stride
				oOff := ((b*c.outH+i)*c.outW + j) * cout
				oRow := oData[oOff : oOff+cout]

				for kh := 0; kh < k; kh++ {
					for kw := 0; kw < k; kw++ {
						xOff := ((b*hp+vStart+kh)*wp + hStart + kw) * cin
						for ci := 0; ci < cin; ci++ {
							wOff := ((kh*k+kw)*cin + ci) * cout
							floats.AddScaled(oRow, xData[xOff+ci], wData[wOff:wOff+cout])
						}
					}
				}
			}
		}
	}, c.par)

	z := out.AddLastAxis(c.biases)
	a := c.activation.F(z)

	c.cache = convCache{}
	if training {
		c.cache = convCache{input: input, z: z, a: a}
	}
	return a, nil
}

// Backward scatters every output gradient back over the window it was
// computed from.
//
//	dz = da * f'(z)
//	db = sum(dz over batch, height, width) / batch_size
//	dW[kh, kw, ci, :] += x_pad[n, i*s+kh, j*s+kw, ci] * dz[n, i, j, :]
//	dx_pad[n, i*s+kh, j*s+kw, ci] += W[kh, kw, ci, :] . dz[n, i, j, :]
//
// dx is dx_pad with the padding cropped off.
func (c *Conv2D) Backward(da *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor, *tensor.Tensor, error) {
	cache := c.cache
	if cache.input == nil {
		return nil, nil, nil, errors.Wrapf(ErrNoCache, "%s", c)
	}
	if !da.SameShape(cache.a) {
		return nil, nil, nil, errors.Wrapf(ErrShapeMismatch, "%s: output gradient %v vs output %v", c, da.Shape(), cache.a.Shape())
	}
	c.cache = convCache{}

	dz, err := activationBackward(c.activation, da, cache.z, cache.a)
	if err != nil {
		return nil, nil, nil, errors.Wrapf(err, "%s", c)
	}

	n := cache.input.Dim(0)
	batch := float64(n)

	padded := cache.input.Pad2D(c.pad)
	dPadded := tensor.ZerosLike(padded)
	dw := tensor.ZerosLike(c.weights)

	xData, dxData := padded.Data(), dPadded.Data()
	wData, dwData, dzData := c.weights.Data(), dw.Data(), dz.Data()
	hp, wp := c.inH+2*c.pad, c.inW+2*c.pad
	k, cin, cout := c.kernelSize, c.inC, c.filters

	// dx: one goroutine per image.
	parallel.For(n, func(b int) {
		for i := 0; i < c.outH; i++ {
			vStart := i * c.stride
			for j := 0; j < c.outW; j++ {
				hStart := j * c.stride
				zOff := ((b*c.outH+i)*c.outW + j) * cout
				dzRow := dzData[zOff : zOff+cout]

				for kh := 0; kh < k; kh++ {
					for kw := 0; kw < k; kw++ {
						xOff := ((b*hp+vStart+kh)*wp + hStart + kw) * cin
						for ci := 0; ci < cin; ci++ {
							wOff := ((kh*k+kw)*cin + ci) * cout
							dxData[xOff+ci] += floats.Dot(wData[wOff:wOff+cout], dzRow)
						}
					}
				}
			}
		}
	}, c.par)

	// dW: one goroutine per kernel row (kh, kw, ci), summed over the batch
	// in the same order as a sequential pass.
	parallel.For(k*k*cin, func(r int) {
		kh, kw, ci := r/(k*cin), (r/cin)%k, r%cin
		dwRow := dwData[r*cout : (r+1)*cout]
		for b := 0; b < n; b++ {
			for i := 0; i < c.outH; i++ {
				for j := 0; j < c.outW; j++ {
					x := xData[((b*hp+i*c.stride+kh)*wp+j*c.stride+kw)*cin+ci]
					zOff := ((b*c.outH+i)*c.outW + j) * cout
					floats.AddScaled(dwRow, x, dzData[zOff:zOff+cout])
				}
			}
		}
	}, c.par)

	dw = dw.Scale(1 / batch)
	db, err := dz.SumToLastAxis().Scale(1 / batch).Reshape(c.biases.Shape())
	if err != nil {
		return nil, nil, nil, err
	}

	return dPadded.Crop2D(c.pad), dw, db, nil
}

func (c *Conv2D) checkInput(input *tensor.Tensor) error {
	want := tensor.Shape{c.inH, c.inW, c.inC}
	shape := input.Shape()
	if len(shape) != 4 || !shape[1:].Equal(want) {
		return errors.Wrapf(ErrShapeMismatch, "%s: expected input [batch, %d, %d, %d], got %v", c, c.inH, c.inW, c.inC, shape)
	}
	return nil
}

// UpdateParams subtracts dw and db from the kernel and biases.
func (c *Conv2D) UpdateParams(dw, db *tensor.Tensor) error {
	return updateInPlace(c.String(), c.weights, c.biases, dw, db)
}

// Params returns the kernel and bias tensors.
func (c *Conv2D) Params() (*tensor.Tensor, *tensor.Tensor) {
	return c.weights, c.biases
}

// OutputShape returns [out_h, out_w, filters].
func (c *Conv2D) OutputShape() tensor.Shape {
	return tensor.Shape{c.outH, c.outW, c.filters}
}

// Activation returns the activation function.
func (c *Conv2D) Activation() Activation {
	return c.activation
}

// Pad returns the number of zero rows/columns added on each side.
func (c *Conv2D) Pad() int {
	return c.pad
}

// String returns a string representation of the layer.
func (c *Conv2D) String() string {
	return fmt.Sprintf("Conv2D(kernel_size=%d, stride=%d, filters=%d, padding=%s, activation=%s)",
		c.kernelSize, c.stride, c.filters, c.padding, c.activation)
}
