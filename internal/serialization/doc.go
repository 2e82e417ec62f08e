// Package serialization provides the .mkw weights format for saving and
// loading minikeras model parameters.
//
// The .mkw format is a small binary container of named float64 tensors:
//
//	Format Structure:
//	  0x00-0x03: Magic "MKW1"
//	  0x04-0x07: Version (uint32 LE)
//	  0x08-0x0F: Reserved
//	  0x10-0x17: Header size (uint64 LE)
//	  0x18-0x1F: Data size (uint64 LE)
//	  0x20-0x3F: SHA-256 checksum of the data section
//	  [Header: JSON metadata]
//	  [Padding to a 64-byte boundary]
//	  [Tensor data: little-endian float64, in header order]
//
// Only parameters are stored. Optimizer accumulators and layer caches are
// not part of the format.
//
// Example usage:
//
//	err := serialization.WriteFile("model.mkw", []serialization.NamedTensor{
//	    {Name: "layer.0.weights", Tensor: w},
//	}, "Sequential", nil)
//
//	f, err := serialization.ReadFile("model.mkw")
//	w := f.Tensors["layer.0.weights"]
package serialization
