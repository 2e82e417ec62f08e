package serialization

import (
	"time"

	"github.com/born-ml/minikeras/internal/tensor"
)

// Format constants.
const (
	MagicBytes      = "MKW1"
	FormatVersion   = 1
	HeaderAlignment = 64   // Align tensor data to 64 bytes
	FixedHeaderSize = 64   // Fixed header size (0x40 bytes)
	ChecksumSize    = 32   // SHA-256 checksum size (32 bytes)
	ChecksumOffset  = 0x20 // Checksum offset in the fixed header
	DTypeFloat64    = "float64"
	float64Size     = 8
)

// Header represents the JSON header of a .mkw file.
type Header struct {
	FormatVersion    int               `json:"format_version"`
	MinikerasVersion string            `json:"minikeras_version"`
	ModelType        string            `json:"model_type"`
	CreatedAt        time.Time         `json:"created_at"`
	Tensors          []TensorMeta      `json:"tensors"`
	Metadata         map[string]string `json:"metadata"`
}

// TensorMeta describes a tensor in the data section.
type TensorMeta struct {
	Name   string `json:"name"`   // e.g. "layer.0.weights"
	DType  string `json:"dtype"`  // always "float64"
	Shape  []int  `json:"shape"`  // Tensor shape
	Offset int64  `json:"offset"` // Bytes from the start of the data section
	Size   int64  `json:"size"`   // Size in bytes
}

// NamedTensor pairs a tensor with its name in the file. Writers keep the
// slice order.
type NamedTensor struct {
	Name   string
	Tensor *tensor.Tensor
}

// File is a decoded .mkw file.
type File struct {
	Header  Header
	Tensors map[string]*tensor.Tensor
}

// alignedSize returns n rounded up to HeaderAlignment.
func alignedSize(n int64) int64 {
	return n + (HeaderAlignment-n%HeaderAlignment)%HeaderAlignment
}
