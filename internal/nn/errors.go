package nn

import "github.com/pkg/errors"

// Errors returned by layers, activations and losses.
//
// Callers should test with errors.Is; returned errors usually carry the
// failing layer and shapes as wrapped context.
var (
	// ErrNotImplemented is returned for operations a component deliberately
	// does not provide, such as the standalone Softmax derivative.
	ErrNotImplemented = errors.New("not implemented")

	ErrUnknownActivation = errors.New("unknown activation")
	ErrUnknownLoss       = errors.New("unknown loss function")
	ErrUnknownPoolMode   = errors.New("unknown pooling mode")
	ErrUnknownPadding    = errors.New("unknown padding")
	ErrInvalidConfig     = errors.New("invalid layer configuration")

	ErrShapeMismatch  = errors.New("shape mismatch")
	ErrNotInitialized = errors.New("layer not initialized")

	// ErrNoCache is returned by Backward when no training-mode Forward
	// preceded it for the current batch.
	ErrNoCache = errors.New("backward called without a training forward pass")

	// ErrNotTrainable is returned by UpdateParams on layers without weights.
	ErrNotTrainable = errors.New("layer has no learnable parameters")
)
