// Package dataset loads and caches the datasets used to train minikeras
// models and encodes their labels.
package dataset

import (
	"context"
	"os"
	"path/filepath"

	"github.com/born-ml/minikeras/internal/tensor"
	"github.com/pkg/errors"
)

// MNISTBaseURL hosts the gzipped MNIST IDX files.
const MNISTBaseURL = "https://storage.googleapis.com/cvdf-datasets/mnist/"

// MNIST file names, without the .gz suffix.
const (
	mnistTrainImages = "train-images-idx3-ubyte"
	mnistTrainLabels = "train-labels-idx1-ubyte"
	mnistTestImages  = "t10k-images-idx3-ubyte"
	mnistTestLabels  = "t10k-labels-idx1-ubyte"
)

// Split is one partition of a labelled image dataset.
type Split struct {
	// X holds images as [N, rows, cols, 1] scaled to [0, 1].
	X *tensor.Tensor
	// Y holds integer labels as [N, 1].
	Y *tensor.Tensor
}

// Len returns the number of examples.
func (s Split) Len() int {
	return s.X.Dim(0)
}

// Head returns the first n examples, or the whole split when n <= 0 or
// n >= Len.
func (s Split) Head(n int) Split {
	if n <= 0 || n >= s.Len() {
		return s
	}
	return Split{X: s.X.SliceRows(0, n), Y: s.Y.SliceRows(0, n)}
}

// LoadMNIST reads the MNIST training and test sets from dir. Each file may
// be stored plain or gzipped with a .gz suffix.
func LoadMNIST(dir string) (train, test Split, err error) {
	if train, err = loadMNISTSplit(dir, mnistTrainImages, mnistTrainLabels); err != nil {
		return Split{}, Split{}, errors.Wrap(err, "mnist train")
	}
	if test, err = loadMNISTSplit(dir, mnistTestImages, mnistTestLabels); err != nil {
		return Split{}, Split{}, errors.Wrap(err, "mnist test")
	}
	return train, test, nil
}

// DownloadMNIST fetches the gzipped MNIST files into the cache directory
// ~/.minikeras/<cacheDir> unless already cached, and returns that directory.
func DownloadMNIST(ctx context.Context, cacheDir string) (string, error) {
	return downloadMNIST(ctx, MNISTBaseURL, cacheDir)
}

func downloadMNIST(ctx context.Context, baseURL, cacheDir string) (string, error) {
	var dir string
	for _, name := range []string{mnistTrainImages, mnistTrainLabels, mnistTestImages, mnistTestLabels} {
		path, err := GetFile(ctx, baseURL+name+".gz", name+".gz", cacheDir)
		if err != nil {
			return "", err
		}
		dir = filepath.Dir(path)
	}
	return dir, nil
}

func loadMNISTSplit(dir, imagesName, labelsName string) (Split, error) {
	images, err := ReadIDXImages(resolve(dir, imagesName))
	if err != nil {
		return Split{}, errors.Wrap(err, "load images")
	}
	labels, err := ReadIDXLabels(resolve(dir, labelsName))
	if err != nil {
		return Split{}, errors.Wrap(err, "load labels")
	}
	if images.Count != len(labels) {
		return Split{}, errors.Wrapf(ErrBadIDX, "image count (%d) != label count (%d)", images.Count, len(labels))
	}
	if images.Count == 0 {
		return Split{}, errors.Wrap(ErrBadIDX, "no examples")
	}

	// Each pixel is 0-255, normalize to [0, 1].
	pixels := make([]float64, len(images.Pixels))
	for i, p := range images.Pixels {
		pixels[i] = float64(p) / 255
	}
	ys := make([]float64, len(labels))
	for i, l := range labels {
		ys[i] = float64(l)
	}

	x, err := tensor.FromSlice(pixels, tensor.Shape{images.Count, images.Rows, images.Cols, 1})
	if err != nil {
		return Split{}, err
	}
	y, err := tensor.FromSlice(ys, tensor.Shape{len(labels), 1})
	if err != nil {
		return Split{}, err
	}
	return Split{X: x, Y: y}, nil
}

// resolve prefers the plain file and falls back to its gzipped sibling.
func resolve(dir, name string) string {
	plain := filepath.Join(dir, name)
	if _, err := os.Stat(plain); err == nil {
		return plain
	}
	return plain + ".gz"
}
