package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Write encodes tensors, in order, as a .mkw stream.
func Write(w io.Writer, tensors []NamedTensor, modelType string, metadata map[string]string) error {
	header := Header{
		FormatVersion: FormatVersion,
		ModelType:     modelType,
		CreatedAt:     time.Now().UTC(),
		Tensors:       make([]TensorMeta, 0, len(tensors)),
		Metadata:      metadata,
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	var data bytes.Buffer
	seen := make(map[string]bool, len(tensors))
	for _, nt := range tensors {
		if err := ValidateTensorName(nt.Name); err != nil {
			return err
		}
		if seen[nt.Name] {
			return errors.Wrapf(ErrDuplicateTensor, "%q", nt.Name)
		}
		seen[nt.Name] = true
		if nt.Tensor == nil {
			return errors.Errorf("tensor %q is nil", nt.Name)
		}

		values := nt.Tensor.Data()
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   nt.Name,
			DType:  DTypeFloat64,
			Shape:  nt.Tensor.Shape().Clone(),
			Offset: int64(data.Len()),
			Size:   int64(len(values) * float64Size),
		})

		var buf [float64Size]byte
		for _, v := range values {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			data.Write(buf[:])
		}
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "failed to marshal header")
	}

	var fixed [FixedHeaderSize]byte
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(data.Len()))
	checksum := ComputeChecksum(data.Bytes())
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	padding := make([]byte, alignedSize(FixedHeaderSize+int64(len(headerJSON)))-FixedHeaderSize-int64(len(headerJSON)))

	for _, part := range [][]byte{fixed[:], headerJSON, padding, data.Bytes()} {
		if _, err := w.Write(part); err != nil {
			return errors.Wrap(err, "failed to write weights")
		}
	}
	return nil
}

// WriteFile writes tensors to path. The file is written under a temporary
// name first and renamed into place, so an existing file is never left half
// overwritten.
func WriteFile(path string, tensors []NamedTensor, modelType string, metadata map[string]string) error {
	tmp := path + ".tmp"
	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}

	if err := Write(f, tensors, modelType, metadata); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "failed to close file")
	}
	return errors.Wrap(os.Rename(tmp, path), "failed to move weights into place")
}
