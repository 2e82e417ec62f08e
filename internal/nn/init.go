package nn

import (
	"math"
	"math/rand"

	"github.com/born-ml/minikeras/internal/tensor"
)

// HeNormal draws weights from N(0, 2/fanIn).
//
// He scaling keeps the variance of ReLU activations roughly constant from
// layer to layer.
//
// Parameters:
//   - shape: Shape of the weight tensor
//   - fanIn: Number of inputs feeding each unit
//   - rng: Random source; a seeded source makes initialization reproducible
func HeNormal(shape tensor.Shape, fanIn int, rng *rand.Rand) *tensor.Tensor {
	w := tensor.Randn(shape, rng)
	scale := math.Sqrt(2.0 / float64(fanIn))
	data := w.Data()
	for i := range data {
		data[i] *= scale
	}
	return w
}
