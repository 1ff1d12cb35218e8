package nn

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestMSELoss_KnownValue(t *testing.T) {
	scores := mat.NewDense(1, 2, []float64{1, 0})
	target := mat.NewDense(1, 2, []float64{0, 1})

	// diff = (1, −1), Σ diff² = 2, loss = 2 / (2·1) = 1.
	loss, dscores, err := MSELoss(scores, target)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, loss, 1e-12)

	want := mat.NewDense(1, 2, []float64{1, -1})
	assert.True(t, mat.EqualApprox(dscores, want, 1e-12), "dscores = %v", mat.Formatted(dscores))
}

func TestMSELoss_ZeroAtEquality(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	data := randSlice(rng, 4*5)
	scores := mat.NewDense(4, 5, data)
	target := mat.NewDense(4, 5, append([]float64(nil), data...))

	loss, dscores, err := MSELoss(scores, target)
	require.NoError(t, err)
	assert.Zero(t, loss)
	assert.True(t, mat.Equal(dscores, mat.NewDense(4, 5, nil)))
}

func TestMSELoss_NonNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 20; trial++ {
		scores := mat.NewDense(3, 4, randSlice(rng, 12))
		target := mat.NewDense(3, 4, randSlice(rng, 12))

		loss, _, err := MSELoss(scores, target)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, loss, 0.0)
	}
}

// TestMSELoss_GradientMatchesNumerical probes dscores with central finite
// differences of the scalar loss.
func TestMSELoss_GradientMatchesNumerical(t *testing.T) {
	const (
		n = 3
		c = 4
	)
	rng := rand.New(rand.NewSource(5))
	// Scores and targets drawn from disjoint ranges so (scores − target)/n
	// stays far from zero in every entry.
	scoreData := uniformSlice(rng, n*c, 1, 2)
	target := mat.NewDense(n, c, uniformSlice(rng, n*c, -1, 0))

	_, dscores, err := MSELoss(mat.NewDense(n, c, scoreData), target)
	require.NoError(t, err)

	num := numGradient(func(v []float64) float64 {
		loss, _, err := MSELoss(mat.NewDense(n, c, v), target)
		require.NoError(t, err)
		return loss
	}, scoreData)

	for i, want := range num {
		got := dscores.At(i/c, i%c)
		assert.LessOrEqual(t, relError(got, want), 1e-7, "dscores[%d]: got %v want %v", i, got, want)
	}
}

func TestMSELoss_ShapeMismatch(t *testing.T) {
	_, _, err := MSELoss(mat.NewDense(2, 3, nil), mat.NewDense(3, 2, nil))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestAccuracy_CountsArgmaxMatches(t *testing.T) {
	scores := mat.NewDense(4, 3, []float64{
		0.9, 0.1, 0.0, // argmax 0
		0.2, 0.3, 0.5, // argmax 2
		0.4, 0.4, 0.1, // tie, lowest index wins: 0
		-1.0, -0.5, -2.0, // argmax 1
	})

	acc, err := Accuracy(scores, []int{0, 2, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, 1.0, acc)

	acc, err = Accuracy(scores, []int{1, 2, 1, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, acc, 1e-12)
}

func TestAccuracy_LengthMismatch(t *testing.T) {
	_, err := Accuracy(mat.NewDense(2, 3, nil), []int{0})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
