// Package optim implements the parameter update rule used during training.
//
// The only optimizer is plain stochastic gradient descent. There is no
// momentum, no adaptive scaling, and no weight decay: each step moves every
// parameter a fixed multiple of its gradient.
package optim

import (
	"gonum.org/v1/gonum/floats"

	"github.com/austinjstromme/AdvancedML-2024/internal/nn"
)

// DefaultLR is the learning rate used when SGDConfig leaves it unset.
const DefaultLR = 1e-4

// SGDConfig holds the configuration of an SGD optimizer.
type SGDConfig struct {
	LR float64 // Learning rate (default 1e-4)
}

// SGD implements vanilla stochastic gradient descent.
//
// Update rule:
//
//	param = param − lr · gradient
//
// Step mutates the parameters in place, so the optimizer holds no reference
// to the network and carries no state between steps.
type SGD struct {
	lr float64
}

// NewSGD creates an SGD optimizer, substituting DefaultLR for a zero rate.
func NewSGD(config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = DefaultLR
	}
	return &SGD{lr: config.LR}
}

// Step applies one gradient descent update to every parameter in params.
//
// Matrices in params and grads are paired by field and must have matching
// shapes; they do whenever grads came from a Loss call on the network that
// owns params.
func (s *SGD) Step(params *nn.Params, grads *nn.Gradients) {
	floats.AddScaled(params.W1.RawMatrix().Data, -s.lr, grads.W1.RawMatrix().Data)
	floats.AddScaled(params.B1.RawVector().Data, -s.lr, grads.B1.RawVector().Data)
	floats.AddScaled(params.W2.RawMatrix().Data, -s.lr, grads.W2.RawMatrix().Data)
	floats.AddScaled(params.B2.RawVector().Data, -s.lr, grads.B2.RawVector().Data)
}

// LR returns the configured learning rate.
func (s *SGD) LR() float64 {
	return s.lr
}
