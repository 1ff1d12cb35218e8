package nn

import "errors"

// Common errors.
//
// Every failure in this package is a programming or configuration error:
// it is detected synchronously at the call that finds the mismatch and
// returned wrapped around one of these sentinels. Callers match with
// errors.Is; nothing in the training pipeline retries or recovers.
var (
	// ErrShapeMismatch reports array dimensions incompatible for the
	// requested operation, such as a gradient whose shape differs from
	// the forward output it claims to correspond to.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrDimensionMismatch reports input data whose feature count
	// disagrees with the dimension the model was configured with.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrLabelOutOfRange reports a class label outside [0, numClasses).
	// Encoding such a label would silently corrupt the one-hot targets
	// and every gradient derived from them, so it is rejected up front.
	ErrLabelOutOfRange = errors.New("label out of range")
)
