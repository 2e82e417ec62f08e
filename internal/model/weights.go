package model

import (
	"fmt"

	"github.com/born-ml/minikeras/internal/serialization"
	"github.com/born-ml/minikeras/internal/tensor"
	"github.com/pkg/errors"
)

const weightsModelType = "Sequential"

// ErrWeightsMismatch is returned by LoadWeights when a file does not fit the
// model's architecture.
var ErrWeightsMismatch = errors.New("weights do not match model")

// SaveWeights writes the parameters of every trainable layer to path in the
// .mkw format. Tensors are named layer.<index>.weights and
// layer.<index>.biases, where index is the position in Layers().
//
// Optimizer state is not saved.
func (s *Sequential) SaveWeights(path string) error {
	named := make([]serialization.NamedTensor, 0, 2*len(s.trainable))
	metadata := map[string]string{"input_shape": s.inputShape.String()}

	for i, l := range s.layers {
		metadata[fmt.Sprintf("layer.%d", i)] = fmt.Sprint(l)
		if s.slot[i] < 0 {
			continue
		}
		w, b := l.Params()
		named = append(named,
			serialization.NamedTensor{Name: weightsName(i), Tensor: w},
			serialization.NamedTensor{Name: biasesName(i), Tensor: b},
		)
	}

	if err := serialization.WriteFile(path, named, weightsModelType, metadata); err != nil {
		return errors.Wrap(err, "save weights")
	}
	s.logger.Info("weights saved", "path", path, "tensors", len(named))
	return nil
}

// LoadWeights replaces the parameters of every trainable layer with those
// stored at path. Every tensor is checked before any parameter changes, so
// a mismatched file leaves the model untouched.
func (s *Sequential) LoadWeights(path string) error {
	f, err := serialization.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "load weights")
	}
	if f.Header.ModelType != weightsModelType {
		return errors.Wrapf(ErrWeightsMismatch, "model type %q", f.Header.ModelType)
	}
	if len(f.Tensors) != 2*len(s.trainable) {
		return errors.Wrapf(ErrWeightsMismatch, "file has %d tensors, model needs %d", len(f.Tensors), 2*len(s.trainable))
	}

	type pair struct{ dst, src *tensor.Tensor }
	var pairs []pair
	for i, l := range s.layers {
		if s.slot[i] < 0 {
			continue
		}
		w, b := l.Params()
		for _, p := range []struct {
			name string
			dst  *tensor.Tensor
		}{{weightsName(i), w}, {biasesName(i), b}} {
			src, ok := f.Tensors[p.name]
			if !ok {
				return errors.Wrapf(ErrWeightsMismatch, "missing %s", p.name)
			}
			if !src.SameShape(p.dst) {
				return errors.Wrapf(ErrWeightsMismatch, "%s: file %v, model %v", p.name, src.Shape(), p.dst.Shape())
			}
			pairs = append(pairs, pair{p.dst, src})
		}
	}

	for _, p := range pairs {
		copy(p.dst.Data(), p.src.Data())
	}
	s.logger.Info("weights loaded", "path", path, "tensors", len(pairs))
	return nil
}

func weightsName(layer int) string { return fmt.Sprintf("layer.%d.weights", layer) }

func biasesName(layer int) string { return fmt.Sprintf("layer.%d.biases", layer) }
