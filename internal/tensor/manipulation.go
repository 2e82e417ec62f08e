package tensor

import (
	"fmt"

	"github.com/pkg/errors"
)

// Reshape returns a tensor with the same data and a new shape.
//
// The result shares storage with t; no element is moved.
func (t *Tensor) Reshape(shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrap(err, "reshape")
	}
	if shape.NumElements() != len(t.data) {
		return nil, errors.Errorf("reshape: cannot view %v (%d elements) as %v", t.shape, len(t.data), shape)
	}
	return newTensor(t.data, shape), nil
}

// rowSize is the number of elements in one slice along axis 0.
func (t *Tensor) rowSize() int {
	if len(t.shape) == 0 {
		panic("rows: scalar tensor has no batch axis")
	}
	return len(t.data) / t.shape[0]
}

// Rows gathers the given indices along axis 0 into a new tensor.
func (t *Tensor) Rows(indices []int) *Tensor {
	size := t.rowSize()
	shape := t.shape.Clone()
	shape[0] = len(indices)

	buf := make([]float64, len(indices)*size)
	for i, idx := range indices {
		if idx < 0 || idx >= t.shape[0] {
			panic(fmt.Sprintf("rows: index %d out of bounds (size %d)", idx, t.shape[0]))
		}
		copy(buf[i*size:(i+1)*size], t.data[idx*size:(idx+1)*size])
	}
	return newTensor(buf, shape)
}

// SliceRows copies rows [start, end) along axis 0.
func (t *Tensor) SliceRows(start, end int) *Tensor {
	if start < 0 || end > t.shape[0] || start >= end {
		panic(fmt.Sprintf("slice rows: invalid range [%d, %d) for size %d", start, end, t.shape[0]))
	}

	size := t.rowSize()
	shape := t.shape.Clone()
	shape[0] = end - start

	buf := make([]float64, (end-start)*size)
	copy(buf, t.data[start*size:end*size])
	return newTensor(buf, shape)
}

func mustNHWC(op string, t *Tensor) (n, h, w, c int) {
	if len(t.shape) != 4 {
		panic(fmt.Sprintf("%s: expected 4D input [N,H,W,C], got shape %v", op, t.shape))
	}
	return t.shape[0], t.shape[1], t.shape[2], t.shape[3]
}

// Pad2D zero pads the height and width axes of an NHWC tensor by pad on every side.
func (t *Tensor) Pad2D(pad int) *Tensor {
	if pad == 0 {
		return t.Clone()
	}

	n, h, w, c := mustNHWC("pad2d", t)
	hp, wp := h+2*pad, w+2*pad
	out := Zeros(Shape{n, hp, wp, c})

	for b := 0; b < n; b++ {
		for i := 0; i < h; i++ {
			src := (b*h + i) * w * c
			dst := ((b*hp+i+pad)*wp + pad) * c
			copy(out.data[dst:dst+w*c], t.data[src:src+w*c])
		}
	}
	return out
}

// Crop2D removes pad rows and columns from every side of an NHWC tensor.
// It is the inverse of Pad2D.
func (t *Tensor) Crop2D(pad int) *Tensor {
	if pad == 0 {
		return t.Clone()
	}

	n, hp, wp, c := mustNHWC("crop2d", t)
	h, w := hp-2*pad, wp-2*pad
	if h <= 0 || w <= 0 {
		panic(fmt.Sprintf("crop2d: padding %d too large for shape %v", pad, t.shape))
	}
	out := Zeros(Shape{n, h, w, c})

	for b := 0; b < n; b++ {
		for i := 0; i < h; i++ {
			src := ((b*hp+i+pad)*wp + pad) * c
			dst := (b*h + i) * w * c
			copy(out.data[dst:dst+w*c], t.data[src:src+w*c])
		}
	}
	return out
}
