package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"

	"github.com/born-ml/minikeras/internal/tensor"
	"github.com/pkg/errors"
)

// Read decodes a .mkw stream, verifying the checksum and the header.
func Read(r io.Reader) (*File, error) {
	var fixed [FixedHeaderSize]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return nil, errors.Wrap(err, "failed to read fixed header")
	}
	if string(fixed[0:4]) != MagicBytes {
		return nil, errors.Wrapf(ErrInvalidMagic, "got %q", fixed[0:4])
	}
	if v := binary.LittleEndian.Uint32(fixed[4:8]); v != FormatVersion {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version %d", v)
	}

	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	if headerSize > MaxHeaderSize {
		return nil, errors.Wrapf(ErrHeaderTooLarge, "%d bytes", headerSize)
	}
	var stored [ChecksumSize]byte
	copy(stored[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, errors.Wrap(err, "failed to read header")
	}
	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, errors.Wrapf(ErrInvalidFile, "header: %v", err)
	}

	pad := alignedSize(FixedHeaderSize+int64(headerSize)) - FixedHeaderSize - int64(headerSize)
	if _, err := io.CopyN(io.Discard, r, pad); err != nil {
		return nil, errors.Wrap(err, "failed to skip header padding")
	}

	// Bound the allocation by what the header claims before trusting dataSize.
	if err := ValidateHeader(&header, int64(dataSize)); err != nil {
		return nil, err
	}
	if want := totalSize(header.Tensors); uint64(want) != dataSize {
		return nil, errors.Wrapf(ErrInvalidFile, "data section is %d bytes, tensors need %d", dataSize, want)
	}

	data := make([]byte, dataSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errors.Wrap(err, "failed to read tensor data")
	}
	if err := ValidateChecksum(ComputeChecksum(data), stored); err != nil {
		return nil, err
	}

	f := &File{Header: header, Tensors: make(map[string]*tensor.Tensor, len(header.Tensors))}
	for _, meta := range header.Tensors {
		raw := data[meta.Offset : meta.Offset+meta.Size]
		values := make([]float64, len(raw)/float64Size)
		for i := range values {
			values[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*float64Size:]))
		}
		t, err := tensor.FromSlice(values, tensor.Shape(meta.Shape))
		if err != nil {
			return nil, errors.Wrapf(err, "tensor %q", meta.Name)
		}
		f.Tensors[meta.Name] = t
	}
	return f, nil
}

// ReadFile reads a .mkw file from disk.
func ReadFile(path string) (*File, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	f, err := Read(bufio.NewReader(file))
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return f, nil
}

func totalSize(tensors []TensorMeta) int64 {
	var n int64
	for _, t := range tensors {
		n += t.Size
	}
	return n
}
