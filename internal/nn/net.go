// Package nn implements a two-layer fully-connected classifier with
// hand-derived backpropagation.
//
// The package provides the pieces of the computation graph as explicit
// forward/backward function pairs:
//   - AffineForward/AffineBackward: y = x·w + b and its gradients
//   - ReLUForward/ReLUBackward: elementwise rectification
//   - AffineReLUForward/AffineReLUBackward: the fused composition
//   - OneHot: integer labels to one-hot targets
//   - MSELoss: scaled squared-error loss and its score gradient
//
// Each forward call returns a typed cache consumed by exactly one matching
// backward call. There is no automatic differentiation: every gradient is
// derived by hand from the chain rule, which is the point of the exercise.
//
// TwoLayerNet composes the layers into affine→ReLU→affine and owns the four
// learnable parameters. All arithmetic is float64 on gonum matrices.
package nn

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Defaults used by Config for fields left at their zero value. They match
// the classic MNIST setup: 28×28 inputs, ten digit classes, a small hidden
// layer, and weights drawn from N(0, 0.001²).
const (
	DefaultInputDim    = 784
	DefaultHiddenDim   = 50
	DefaultNumClasses  = 10
	DefaultWeightScale = 1e-3
	DefaultSeed        = 42
)

// Config holds the construction parameters of a TwoLayerNet.
//
// Zero-valued fields are replaced with the package defaults, so the zero
// Config builds the standard MNIST network.
type Config struct {
	InputDim    int     // Feature count of each input row (default 784)
	HiddenDim   int     // Width of the hidden layer (default 50)
	NumClasses  int     // Number of output classes (default 10)
	WeightScale float64 // Standard deviation of the initial weights (default 1e-3)
	Seed        int64   // Seed for the weight initialization (default 42)
}

func (c Config) withDefaults() Config {
	if c.InputDim == 0 {
		c.InputDim = DefaultInputDim
	}
	if c.HiddenDim == 0 {
		c.HiddenDim = DefaultHiddenDim
	}
	if c.NumClasses == 0 {
		c.NumClasses = DefaultNumClasses
	}
	if c.WeightScale == 0 {
		c.WeightScale = DefaultWeightScale
	}
	if c.Seed == 0 {
		c.Seed = DefaultSeed
	}
	return c
}

// Params is the set of learnable parameters of a TwoLayerNet.
//
// The matrices are owned by the network that created them. Shapes are fixed
// at construction: W1 is [inputDim, hiddenDim], B1 has length hiddenDim,
// W2 is [hiddenDim, numClasses], B2 has length numClasses. The only writer
// after construction is the optimizer, which updates the values in place;
// forward passes read them and never run concurrently with an update.
type Params struct {
	W1 *mat.Dense
	B1 *mat.VecDense
	W2 *mat.Dense
	B2 *mat.VecDense
}

// Gradients mirrors Params entry for entry. A fresh set is produced by each
// Loss call and is consumed by the optimizer's next Step; gradient sets are
// never reused across mini-batches.
type Gradients struct {
	W1 *mat.Dense
	B1 *mat.VecDense
	W2 *mat.Dense
	B2 *mat.VecDense
}

// TwoLayerNet is a fully-connected affine→ReLU→affine classifier.
//
// Predict produces raw scores with no softmax on the output; training
// minimizes the mean-squared error between those scores and the one-hot
// encoding of the labels.
type TwoLayerNet struct {
	cfg    Config
	params Params
}

// New constructs a TwoLayerNet from cfg (zero fields defaulted).
//
// Weights are drawn independently from a zero-mean Gaussian with standard
// deviation cfg.WeightScale using a generator seeded with cfg.Seed; biases
// start at zero. The same seed reproduces the same initial parameters
// exactly.
func New(cfg Config) *TwoLayerNet {
	cfg = cfg.withDefaults()
	rng := rand.New(rand.NewSource(cfg.Seed))

	return &TwoLayerNet{
		cfg: cfg,
		params: Params{
			W1: gaussian(rng, cfg.InputDim, cfg.HiddenDim, cfg.WeightScale),
			B1: mat.NewVecDense(cfg.HiddenDim, nil),
			W2: gaussian(rng, cfg.HiddenDim, cfg.NumClasses, cfg.WeightScale),
			B2: mat.NewVecDense(cfg.NumClasses, nil),
		},
	}
}

// gaussian returns an [r, c] matrix of N(0, scale²) draws from rng.
func gaussian(rng *rand.Rand, r, c int, scale float64) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = rng.NormFloat64() * scale
	}
	return mat.NewDense(r, c, data)
}

// Predict runs the forward composition and returns the [n, numClasses] raw
// score matrix for the [n, inputDim] batch x. No normalization is applied to
// the scores; the output layer is linear.
//
// Fails with ErrDimensionMismatch when x's column count differs from the
// configured input dimension.
func (t *TwoLayerNet) Predict(x *mat.Dense) (*mat.Dense, error) {
	if err := t.checkInput(x); err != nil {
		return nil, err
	}

	hidden, _, err := AffineReLUForward(x, t.params.W1, t.params.B1)
	if err != nil {
		return nil, err
	}
	scores, _, err := AffineForward(hidden, t.params.W2, t.params.B2)
	if err != nil {
		return nil, err
	}
	return scores, nil
}

// Loss runs the forward composition on x, measures the mean-squared error of
// the scores against the one-hot encoding of labels, and backpropagates it,
// returning the loss and the gradient of every parameter.
//
// The backward pass mirrors the forward composition in reverse: the score
// gradient (scores − onehot)/n flows through the output affine layer first
// and the fused affine→ReLU layer second. The returned Gradients are fresh
// matrices, independent of the network's parameters.
//
// Fails with ErrDimensionMismatch for a bad feature count, ErrShapeMismatch
// when len(labels) differs from x's row count, and ErrLabelOutOfRange for a
// label outside [0, numClasses).
func (t *TwoLayerNet) Loss(x *mat.Dense, labels []int) (float64, *Gradients, error) {
	if err := t.checkInput(x); err != nil {
		return 0, nil, err
	}
	rows, _ := x.Dims()
	if rows != len(labels) {
		return 0, nil, fmt.Errorf("loss: %w: batch has %d rows but %d labels", ErrShapeMismatch, rows, len(labels))
	}

	hidden, hiddenCache, err := AffineReLUForward(x, t.params.W1, t.params.B1)
	if err != nil {
		return 0, nil, err
	}
	scores, outCache, err := AffineForward(hidden, t.params.W2, t.params.B2)
	if err != nil {
		return 0, nil, err
	}

	target, err := OneHot(labels, t.cfg.NumClasses)
	if err != nil {
		return 0, nil, err
	}
	loss, dscores, err := MSELoss(scores, target)
	if err != nil {
		return 0, nil, err
	}

	dhidden, dw2, db2, err := AffineBackward(dscores, outCache)
	if err != nil {
		return 0, nil, err
	}
	_, dw1, db1, err := AffineReLUBackward(dhidden, hiddenCache)
	if err != nil {
		return 0, nil, err
	}

	return loss, &Gradients{W1: dw1, B1: db1, W2: dw2, B2: db2}, nil
}

func (t *TwoLayerNet) checkInput(x *mat.Dense) error {
	_, cols := x.Dims()
	if cols != t.cfg.InputDim {
		return fmt.Errorf("%w: input has %d features but the model was configured for %d",
			ErrDimensionMismatch, cols, t.cfg.InputDim)
	}
	return nil
}

// Params returns the network's parameter set for in-place updates by the
// optimizer. The network retains ownership; callers must not resize or
// replace the matrices.
func (t *TwoLayerNet) Params() *Params {
	return &t.params
}

// InputDim returns the configured feature count.
func (t *TwoLayerNet) InputDim() int { return t.cfg.InputDim }

// HiddenDim returns the configured hidden layer width.
func (t *TwoLayerNet) HiddenDim() int { return t.cfg.HiddenDim }

// NumClasses returns the configured class count.
func (t *TwoLayerNet) NumClasses() int { return t.cfg.NumClasses }
