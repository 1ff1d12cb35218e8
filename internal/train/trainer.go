// Package train drives mini-batch stochastic gradient descent over a fixed
// dataset.
//
// This package provides:
//   - Trainer: the epoch/mini-batch loop with a small run-state machine
//   - EpochMetrics: the per-epoch record of loss and accuracies
//   - Evaluate: batched loss and accuracy over a full dataset
//
// The loop is single-threaded. Each epoch shuffles the training indices with
// the trainer's seeded generator, walks them in contiguous mini-batches, and
// applies one optimizer step per batch. Any error out of the model aborts the
// run immediately; nothing is retried or skipped.
package train

import (
	"errors"
	"fmt"
	"io"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/austinjstromme/AdvancedML-2024/internal/nn"
	"github.com/austinjstromme/AdvancedML-2024/internal/optim"
)

// Defaults used by Config for fields left at their zero value.
const (
	DefaultEpochs    = 50
	DefaultBatchSize = 400
	DefaultSeed      = 42
)

// ErrAlreadyRun reports a Run call on a trainer that is no longer idle. A
// trainer drives exactly one run; build a new one to train again.
var ErrAlreadyRun = errors.New("trainer has already run")

// State identifies where a Trainer is in its lifecycle.
type State int

const (
	// StateIdle is the state of a new trainer before Run is called.
	StateIdle State = iota
	// StateEpochRunning is the state while Run is inside an epoch. A run
	// that fails stays here; the trainer cannot be reused.
	StateEpochRunning
	// StateCompleted is the state after Run finished every epoch.
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEpochRunning:
		return "epoch-running"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EpochMetrics is the record emitted after each training epoch: the batched
// MSE over the full training set and the accuracies on the training and
// validation sets.
type EpochMetrics struct {
	Epoch    int // 1-based epoch number
	Loss     float64
	TrainAcc float64
	ValAcc   float64
}

// Config holds the training loop parameters.
//
// Zero-valued fields are replaced with the package defaults. Progress, when
// non-nil, receives one formatted line per epoch.
type Config struct {
	Epochs       int     // Number of passes over the training set (default 50)
	BatchSize    int     // Examples per mini-batch (default 400)
	LearningRate float64 // SGD step size (default optim.DefaultLR)
	Seed         int64   // Seed for the per-epoch shuffles (default 42)
	Progress     io.Writer
}

func (c Config) withDefaults() Config {
	if c.Epochs == 0 {
		c.Epochs = DefaultEpochs
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.LearningRate == 0 {
		c.LearningRate = optim.DefaultLR
	}
	if c.Seed == 0 {
		c.Seed = DefaultSeed
	}
	return c
}

// Trainer runs mini-batch SGD on a TwoLayerNet.
//
// The trainer owns its optimizer and shuffle generator, both derived from
// Config. It moves Idle → EpochRunning → Completed across a single Run call
// and never goes backward.
type Trainer struct {
	cfg   Config
	model *nn.TwoLayerNet
	opt   *optim.SGD
	rng   *rand.Rand
	state State
}

// New creates a Trainer for model with cfg (zero fields defaulted).
func New(model *nn.TwoLayerNet, cfg Config) *Trainer {
	cfg = cfg.withDefaults()
	return &Trainer{
		cfg:   cfg,
		model: model,
		opt:   optim.NewSGD(optim.SGDConfig{LR: cfg.LearningRate}),
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		state: StateIdle,
	}
}

// State returns the trainer's current lifecycle state.
func (t *Trainer) State() State {
	return t.state
}

// Run trains for the configured number of epochs and returns the per-epoch
// metrics history.
//
// Each epoch draws a fresh permutation of the training indices from the
// trainer's seeded generator and walks it in contiguous mini-batches of
// Config.BatchSize. A trailing remainder smaller than the batch size is
// dropped, so an epoch performs exactly len(trainLabels)/BatchSize parameter
// updates; a batch size larger than the training set performs none. After the
// updates the full training and validation sets are evaluated in batches,
// including any partial final batch, and the triple is appended to the
// history.
//
// Run is single-shot: a second call, or a call after a failed run, returns
// ErrAlreadyRun. The first model or shape error aborts the run and is
// returned wrapped with its epoch and batch position.
func (t *Trainer) Run(trainX *mat.Dense, trainLabels []int, valX *mat.Dense, valLabels []int) ([]EpochMetrics, error) {
	if t.state != StateIdle {
		return nil, fmt.Errorf("%w (state %s)", ErrAlreadyRun, t.state)
	}
	n, _ := trainX.Dims()
	if n != len(trainLabels) {
		return nil, fmt.Errorf("run: %w: %d training rows but %d labels",
			nn.ErrShapeMismatch, n, len(trainLabels))
	}
	if n == 0 {
		return nil, fmt.Errorf("run: %w: empty training set", nn.ErrShapeMismatch)
	}

	batches := NumBatches(n, t.cfg.BatchSize)
	history := make([]EpochMetrics, 0, t.cfg.Epochs)

	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		t.state = StateEpochRunning

		perm := t.rng.Perm(n)
		for b := 0; b < batches; b++ {
			idx := perm[b*t.cfg.BatchSize : (b+1)*t.cfg.BatchSize]
			bx, blabels := gather(trainX, trainLabels, idx)

			_, grads, err := t.model.Loss(bx, blabels)
			if err != nil {
				return history, fmt.Errorf("epoch %d batch %d: %w", epoch, b, err)
			}
			t.opt.Step(t.model.Params(), grads)
		}

		record, err := t.epochRecord(epoch, trainX, trainLabels, valX, valLabels)
		if err != nil {
			return history, fmt.Errorf("epoch %d evaluation: %w", epoch, err)
		}
		history = append(history, record)

		if t.cfg.Progress != nil {
			fmt.Fprintf(t.cfg.Progress, "Epoch %2d/%d: Loss=%.4f, Train Acc=%.2f%%, Val Acc=%.2f%%\n",
				epoch, t.cfg.Epochs, record.Loss, record.TrainAcc*100, record.ValAcc*100)
		}
	}

	t.state = StateCompleted
	return history, nil
}

// epochRecord measures the post-epoch metrics triple.
func (t *Trainer) epochRecord(epoch int, trainX *mat.Dense, trainLabels []int, valX *mat.Dense, valLabels []int) (EpochMetrics, error) {
	loss, trainAcc, err := Evaluate(t.model, trainX, trainLabels, t.cfg.BatchSize)
	if err != nil {
		return EpochMetrics{}, err
	}

	var valAcc float64
	if valX != nil {
		_, valAcc, err = Evaluate(t.model, valX, valLabels, t.cfg.BatchSize)
		if err != nil {
			return EpochMetrics{}, err
		}
	}

	return EpochMetrics{Epoch: epoch, Loss: loss, TrainAcc: trainAcc, ValAcc: valAcc}, nil
}

// gather copies the rows of x selected by idx into a fresh batch matrix,
// pairing them with their labels.
func gather(x *mat.Dense, labels []int, idx []int) (*mat.Dense, []int) {
	_, cols := x.Dims()
	bx := mat.NewDense(len(idx), cols, nil)
	blabels := make([]int, len(idx))
	for i, j := range idx {
		bx.SetRow(i, x.RawRowView(j))
		blabels[i] = labels[j]
	}
	return bx, blabels
}
