package train

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/austinjstromme/AdvancedML-2024/internal/nn"
)

// NumBatches returns the number of full mini-batches a training epoch makes
// from n examples: n/batchSize, with any remainder dropped.
func NumBatches(n, batchSize int) int {
	if batchSize <= 0 {
		return 0
	}
	return n / batchSize
}

// Evaluate computes the batched loss and accuracy of the model over a whole
// dataset.
//
// The dataset is walked in batches of batchSize; unlike training, the final
// partial batch is evaluated too, so every example counts. The returned loss
// is the mean of the per-batch MSE values and the accuracy is the fraction of
// correctly classified examples. An empty dataset evaluates to (0, 0).
func Evaluate(model *nn.TwoLayerNet, x *mat.Dense, labels []int, batchSize int) (loss, acc float64, err error) {
	n, _ := x.Dims()
	if n != len(labels) {
		return 0, 0, fmt.Errorf("evaluate: %w: %d rows but %d labels", nn.ErrShapeMismatch, n, len(labels))
	}
	if n == 0 {
		return 0, 0, nil
	}
	if batchSize <= 0 {
		return 0, 0, fmt.Errorf("evaluate: %w: batch size %d", nn.ErrDimensionMismatch, batchSize)
	}

	var (
		totalLoss    float64
		totalCorrect float64
		batches      int
	)
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}
		bx := denseRows(x, start, end)
		blabels := labels[start:end]

		scores, err := model.Predict(bx)
		if err != nil {
			return 0, 0, err
		}
		target, err := nn.OneHot(blabels, model.NumClasses())
		if err != nil {
			return 0, 0, err
		}
		batchLoss, _, err := nn.MSELoss(scores, target)
		if err != nil {
			return 0, 0, err
		}
		batchAcc, err := nn.Accuracy(scores, blabels)
		if err != nil {
			return 0, 0, err
		}

		totalLoss += batchLoss
		totalCorrect += batchAcc * float64(end-start)
		batches++
	}

	return totalLoss / float64(batches), totalCorrect / float64(n), nil
}

// denseRows views rows [start, end) of x as a Dense.
func denseRows(x *mat.Dense, start, end int) *mat.Dense {
	return x.Slice(start, end, 0, colCount(x)).(*mat.Dense)
}

func colCount(x *mat.Dense) int {
	_, c := x.Dims()
	return c
}
