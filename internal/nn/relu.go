package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ReLUCache holds the pre-activation input of a ReLU forward pass for the
// matching backward pass.
type ReLUCache struct {
	x *mat.Dense
}

// ReLUForward applies the rectified linear unit y = max(0, x) elementwise.
//
// The input is not modified. The returned cache stores a reference to x for
// ReLUBackward. Works for any input shape; the cache records it.
func ReLUForward(x *mat.Dense) (*mat.Dense, *ReLUCache) {
	var y mat.Dense
	y.Apply(func(_, _ int, v float64) float64 { return math.Max(v, 0) }, x)
	return &y, &ReLUCache{x: x}
}

// ReLUBackward propagates the upstream gradient through the rectification:
// dx equals dout wherever the cached input was strictly positive and is zero
// everywhere else. An input of exactly zero propagates a zero gradient; the
// subgradient at the kink is taken to be 0.
//
// Fails with ErrShapeMismatch when dout's shape differs from the cached
// input's.
func ReLUBackward(dout *mat.Dense, cache *ReLUCache) (*mat.Dense, error) {
	n, m := dout.Dims()
	xn, xm := cache.x.Dims()
	if n != xn || m != xm {
		return nil, fmt.Errorf("relu backward: %w: dout is %d×%d but forward input was %d×%d",
			ErrShapeMismatch, n, m, xn, xm)
	}

	var dx mat.Dense
	dx.Apply(func(i, j int, v float64) float64 {
		if cache.x.At(i, j) > 0 {
			return v
		}
		return 0
	}, dout)
	return &dx, nil
}
