package nn

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// MSELoss computes the scaled mean-squared-error between a batch of scores
// and a target matrix, together with the gradient of the loss with respect
// to the scores.
//
// For n rows,
//
//	loss    = (1/(2n)) · Σ (target − scores)²
//	dscores = (scores − target) / n
//
// The loss is non-negative and equals 0 exactly when scores == target.
// Fails with ErrShapeMismatch when the two matrices differ in shape.
func MSELoss(scores, target *mat.Dense) (float64, *mat.Dense, error) {
	sn, sc := scores.Dims()
	tn, tc := target.Dims()
	if sn != tn || sc != tc {
		return 0, nil, fmt.Errorf("mse loss: %w: scores are %d×%d but targets are %d×%d",
			ErrShapeMismatch, sn, sc, tn, tc)
	}

	n := float64(sn)

	var diff mat.Dense
	diff.Sub(scores, target)

	raw := diff.RawMatrix()
	var sum float64
	for i := 0; i < raw.Rows; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
		sum += floats.Dot(row, row)
	}
	loss := sum / (2 * n)

	var dscores mat.Dense
	dscores.Scale(1/n, &diff)

	return loss, &dscores, nil
}

// Accuracy returns the fraction of rows whose argmax score equals the label.
//
// scores is [n, numClasses], labels has length n. Rows and labels are paired
// by index; ties resolve to the lowest class index.
func Accuracy(scores *mat.Dense, labels []int) (float64, error) {
	n, _ := scores.Dims()
	if n != len(labels) {
		return 0, fmt.Errorf("accuracy: %w: %d score rows but %d labels", ErrShapeMismatch, n, len(labels))
	}
	if n == 0 {
		return 0, nil
	}

	correct := 0
	for i := 0; i < n; i++ {
		if argmax(scores.RawRowView(i)) == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// argmax returns the index of the largest value, preferring the lowest index
// on ties.
func argmax(row []float64) int {
	best := 0
	for j := 1; j < len(row); j++ {
		if row[j] > row[best] {
			best = j
		}
	}
	return best
}
