package dataset

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// IDX magic numbers for unsigned byte payloads.
const (
	idxImagesMagic = 2051 // 0x00000803: 3 dimensions
	idxLabelsMagic = 2049 // 0x00000801: 1 dimension
)

// Limits on IDX headers. MNIST uses 60000 28x28 images.
const (
	MaxIDXItems = 1 << 24 // Maximum images or labels in one file
	MaxIDXSide  = 1 << 12 // Maximum image rows or columns
	MaxIDXBytes = 1 << 32 // Maximum payload size
)

// ErrBadIDX is returned for files that are not well-formed IDX data.
var ErrBadIDX = errors.New("malformed IDX file")

// Images is a stack of grayscale images read from an IDX file.
type Images struct {
	Count, Rows, Cols int
	// Pixels holds Count*Rows*Cols bytes, image by image, row-major.
	Pixels []byte
}

// openIDX opens filename, transparently gunzipping files ending in .gz.
func openIDX(filename string) (io.ReadCloser, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(filename, ".gz") {
		return f, nil
	}

	gz, err := gzip.NewReader(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "gunzip %s", filename)
	}
	return struct {
		io.Reader
		io.Closer
	}{gz, f}, nil
}

// ReadIDXImages reads an image file in IDX format.
//
// IDX file format for images:
//
//	magic number: 0x00000803 (2051)
//	number of images: 4 bytes
//	number of rows: 4 bytes
//	number of cols: 4 bytes
//	pixel data: unsigned bytes (0-255)
func ReadIDXImages(filename string) (*Images, error) {
	r, err := openIDX(filename)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return readIDXImages(r)
}

func readIDXImages(r io.Reader) (*Images, error) {
	var header struct {
		Magic, Count, Rows, Cols uint32
	}
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, errors.Wrapf(ErrBadIDX, "read image header: %v", err)
	}
	if header.Magic != idxImagesMagic {
		return nil, errors.Wrapf(ErrBadIDX, "invalid image magic number: got %d, want %d", header.Magic, idxImagesMagic)
	}

	if header.Count > MaxIDXItems || header.Rows == 0 || header.Rows > MaxIDXSide ||
		header.Cols == 0 || header.Cols > MaxIDXSide {
		return nil, errors.Wrapf(ErrBadIDX, "image header out of range: %d images of %dx%d", header.Count, header.Rows, header.Cols)
	}

	img := &Images{Count: int(header.Count), Rows: int(header.Rows), Cols: int(header.Cols)}
	pixels, err := readPayload(r, int64(img.Count)*int64(img.Rows)*int64(img.Cols))
	if err != nil {
		return nil, errors.Wrapf(err, "read %d images", img.Count)
	}
	img.Pixels = pixels
	return img, nil
}

// ReadIDXLabels reads a label file in IDX format.
//
// IDX file format for labels:
//
//	magic number: 0x00000801 (2049)
//	number of labels: 4 bytes
//	label data: unsigned bytes
func ReadIDXLabels(filename string) ([]byte, error) {
	r, err := openIDX(filename)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return readIDXLabels(r)
}

func readIDXLabels(r io.Reader) ([]byte, error) {
	var header struct {
		Magic, Count uint32
	}
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, errors.Wrapf(ErrBadIDX, "read label header: %v", err)
	}
	if header.Magic != idxLabelsMagic {
		return nil, errors.Wrapf(ErrBadIDX, "invalid label magic number: got %d, want %d", header.Magic, idxLabelsMagic)
	}

	if header.Count > MaxIDXItems {
		return nil, errors.Wrapf(ErrBadIDX, "label header out of range: %d labels", header.Count)
	}

	labels, err := readPayload(r, int64(header.Count))
	if err != nil {
		return nil, errors.Wrapf(err, "read %d labels", header.Count)
	}
	return labels, nil
}

// readPayload reads exactly n bytes. The buffer grows with the data actually
// read, so a header claiming more than the file holds fails without a large
// allocation.
func readPayload(r io.Reader, n int64) ([]byte, error) {
	if n > MaxIDXBytes {
		return nil, errors.Wrapf(ErrBadIDX, "payload of %d bytes exceeds %d", n, int64(MaxIDXBytes))
	}
	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, r, n); err != nil {
		return nil, errors.Wrapf(ErrBadIDX, "truncated payload: %v", err)
	}
	return buf.Bytes(), nil
}
