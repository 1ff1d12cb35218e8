package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// OneHot encodes integer class labels as an [n, numClasses] target matrix
// with a single 1 per row at the label's index and 0 everywhere else.
//
// Fails with ErrShapeMismatch for an empty label vector and with
// ErrLabelOutOfRange if any label falls outside [0, numClasses).
func OneHot(labels []int, numClasses int) (*mat.Dense, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("one-hot: %w: empty label vector", ErrShapeMismatch)
	}
	if numClasses <= 0 {
		return nil, fmt.Errorf("one-hot: %w: class count %d", ErrLabelOutOfRange, numClasses)
	}

	target := mat.NewDense(len(labels), numClasses, nil)
	for i, label := range labels {
		if label < 0 || label >= numClasses {
			return nil, fmt.Errorf("one-hot: %w: label %d at index %d not in [0, %d)",
				ErrLabelOutOfRange, label, i, numClasses)
		}
		target.Set(i, label, 1)
	}
	return target, nil
}
